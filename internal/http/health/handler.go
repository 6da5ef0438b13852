package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Data is the payload for the health endpoint.
type Data struct {
	Status string `json:"status" doc:"Service health" example:"healthy"`
}

// Output wraps Data as the response body.
type Output struct {
	Body Data
}

// Register wires GET /health into the provided API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, func(context.Context, *struct{}) (*Output, error) {
		return &Output{Body: Data{Status: "healthy"}}, nil
	})
}
