// Package routes assembles the chi router, middleware stack and huma API.
package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/greeter/internal/http/greeting"
	"github.com/janisto/greeter/internal/http/health"
	applog "github.com/janisto/greeter/internal/platform/logging"
	"github.com/janisto/greeter/internal/platform/metrics"
	appmiddleware "github.com/janisto/greeter/internal/platform/middleware"
	"github.com/janisto/greeter/internal/platform/respond"
)

const (
	docsPath       = "/api-docs"
	openAPIPath    = "/openapi"
	metricsPath    = "/metrics"
	maxRequestBody = 1 << 20 // 1 MiB
)

// Options configures NewRouter.
type Options struct {
	Version string
	// Metrics, when set, observes every request and is served at /metrics.
	Metrics *metrics.Recorder
}

// Register wires every huma operation into api.
func Register(api huma.API) {
	greeting.Register(api)
	health.Register(api)
}

// NewRouter builds the full HTTP handler used by both server backends.
func NewRouter(opts Options) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	stack := []func(http.Handler) http.Handler{
		appmiddleware.Security(docsPath, openAPIPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// Trusts X-Forwarded-For; deploy behind a proxy that overwrites it.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxRequestBody),
		chimiddleware.GetHead,
	}
	if opts.Metrics != nil {
		stack = append(stack, opts.Metrics.Middleware())
	}
	stack = append(stack,
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)
	router.Use(stack...)

	if opts.Metrics != nil {
		router.Method(http.MethodGet, metricsPath, opts.Metrics.Handler())
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	cfg := huma.DefaultConfig("Greeter API", version)
	cfg.DocsPath = docsPath
	cfg.OpenAPIPath = openAPIPath
	api := humachi.New(router, cfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, advertiseCBOR)

	Register(api)
	return router
}

// advertiseCBOR documents application/cbor next to every JSON response.
func advertiseCBOR(_ *huma.OpenAPI, op *huma.Operation) {
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}
