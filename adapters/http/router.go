// Package http provides the root router, request middleware and the security
// guard shared by module route providers.
package http

import (
	"net/http"
	"time"

	crudhttp "github.com/artpar/crudgate/adapters/http/crud"
	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/pkg/envelope"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterConfig holds optional router configuration.
type RouterConfig struct {
	Logger         zerolog.Logger
	Errors         *crudhttp.ErrorHandler // renders 404/405 envelopes
	Metrics        *metrics.Collector     // optional
	RequestTimeout time.Duration          // 0 disables the timeout middleware
}

// NewRouter creates the root router with the standard middleware stack. Module
// route providers are mounted on it afterwards.
func NewRouter(cfg RouterConfig) chi.Router {
	errors := cfg.Errors
	if errors == nil {
		errors = crudhttp.NewErrorHandler(false)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeEnvelope(w, errors.Response(errs.NotFound("Route not found")))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeEnvelope(w, envelope.Failure(http.StatusMethodNotAllowed, "Method not allowed", nil, nil))
	})

	return r
}

// RouteInfo describes one mounted route.
type RouteInfo struct {
	Method      string `json:"method"`
	Pattern     string `json:"pattern"`
	Middlewares int    `json:"middlewares"`
}

// Walk lists every method and pattern mounted on r, in chi's walk order.
func Walk(r chi.Routes) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := chi.Walk(r, func(method, route string, _ http.Handler, mws ...func(http.Handler) http.Handler) error {
		routes = append(routes, RouteInfo{Method: method, Pattern: route, Middlewares: len(mws)})
		return nil
	})
	return routes, err
}

func writeEnvelope(w http.ResponseWriter, resp envelope.Response) {
	_ = envelope.Write(w, resp)
}
