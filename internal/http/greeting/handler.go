// Package greeting serves the fixed greeting at the service root.
package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/greeter/internal/platform/logging"
)

// Message is the body returned for every GET /.
const Message = "Hello World, I am at your service!"

// Banner is written to stdout once when the server starts.
const Banner = "I am the greeter!"

const contentTypeText = "text/plain; charset=utf-8"

// Register wires the root greeting route into the provided API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Greet the caller",
		Description: "Returns a fixed plain-text greeting. No headers, query parameters or body are inspected.",
		Tags:        []string{"Greeting"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Greeting text",
				Content: map[string]*huma.MediaType{
					"text/plain": {Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{Message}}},
				},
			},
		},
	}, getHandler)
}

// GetOutput carries the raw greeting bytes; huma writes []byte bodies verbatim.
type GetOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func getHandler(ctx context.Context, _ *struct{}) (*GetOutput, error) {
	applog.LoggerFromContext(ctx).Debug("greeting served", zap.String("path", "/"))
	return &GetOutput{ContentType: contentTypeText, Body: []byte(Message)}, nil
}
