// Package crud adapts crud operations to HTTP: it executes an operation for an
// inbound request and writes the uniform JSON envelope.
package crud

import (
	"net/http"
	"time"

	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/pkg/envelope"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/artpar/crudgate/adapters/http/crud"

// Deps contains dependencies for the handler.
type Deps struct {
	Errors  *ErrorHandler
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
	Tracer  trace.Tracer       // optional, defaults to the global provider
}

// Handler executes operations and writes envelopes. It is the only place that
// sets the response content type and status for the CRUD pipeline.
type Handler struct {
	errors  *ErrorHandler
	logger  zerolog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		errors:  deps.Errors,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}
	if h.errors == nil {
		h.errors = NewErrorHandler(false)
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(tracerName)
	}
	return h
}

// Errors returns the handler's error mapping.
func (h *Handler) Errors() *ErrorHandler {
	return h.errors
}

// Handle executes op for r and writes the resulting envelope to w.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, op crud.Operation, params crud.Params) {
	start := time.Now()
	resource, kind := op.Resource(), op.Kind().String()

	ctx, span := h.tracer.Start(r.Context(), "crud."+resource+"."+kind,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("crud.resource", resource),
			attribute.String("crud.operation", kind),
			attribute.String("http.method", r.Method),
		),
	)
	defer span.End()

	resp, err := h.Respond(r.WithContext(ctx), op, params)
	span.SetAttributes(attribute.Int("http.status_code", resp.Code))
	if err != nil {
		span.RecordError(err)
		if resp.Code >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, err.Error())
		}
		h.logFailure(r, resource, kind, resp.Code, err)
	}

	if werr := envelope.Write(w, resp); werr != nil {
		h.logger.Error().Err(werr).
			Str("resource", resource).
			Str("operation", kind).
			Msg("failed to write response")
	}

	if h.metrics != nil {
		h.metrics.ObserveOperation(resource, kind, resp.Code, time.Since(start).Seconds())
	}
}

// Respond executes op and returns the envelope without writing it. The returned
// error is the operation failure, if any.
func (h *Handler) Respond(r *http.Request, op crud.Operation, params crud.Params) (envelope.Response, error) {
	req, err := crud.FromHTTP(r)
	if err != nil {
		return h.errors.Response(err), err
	}
	if params == nil {
		params = crud.Params{}
	}
	result, err := op.Execute(req, params)
	if err != nil {
		return h.errors.Response(err), err
	}
	return envelope.Success(result.Data(), result.Message(), result.Code(), result.Meta()), nil
}

// Func returns an http.HandlerFunc running op with the route's path parameters.
func (h *Handler) Func(op crud.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Handle(w, r, op, crud.ParamsFromHTTP(r))
	}
}

func (h *Handler) logFailure(r *http.Request, resource, kind string, code int, err error) {
	ev := h.logger.Debug()
	if code >= http.StatusInternalServerError {
		ev = h.logger.Error()
	}
	ev.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("resource", resource).
		Str("operation", kind).
		Int("status", code).
		Msg("operation failed")
}
