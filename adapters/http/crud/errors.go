package crud

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/pkg/envelope"
)

// ErrorFunc turns a classified error into a failure envelope.
type ErrorFunc func(e *errs.Error) envelope.Response

// ErrorHandler maps errors to failure envelopes.
//
// Every errs.Kind has a default mapping. Handle replaces the mapping for one kind;
// the last registration wins. Errors that are not *errs.Error are unclassified.
type ErrorHandler struct {
	mu        sync.RWMutex
	overrides map[errs.Kind]ErrorFunc
	debug     atomic.Bool
}

// NewErrorHandler creates an ErrorHandler. In debug mode unclassified errors
// carry their message in meta.detail.
func NewErrorHandler(debug bool) *ErrorHandler {
	h := &ErrorHandler{overrides: make(map[errs.Kind]ErrorFunc)}
	h.debug.Store(debug)
	return h
}

// Handle overrides the mapping for kind.
func (h *ErrorHandler) Handle(kind errs.Kind, fn ErrorFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fn == nil {
		delete(h.overrides, kind)
		return
	}
	h.overrides[kind] = fn
}

// SetDebug toggles detail exposure for unclassified errors.
func (h *ErrorHandler) SetDebug(debug bool) {
	h.debug.Store(debug)
}

func (h *ErrorHandler) Debug() bool {
	return h.debug.Load()
}

// Response builds the failure envelope for err.
func (h *ErrorHandler) Response(err error) envelope.Response {
	e, ok := errs.As(err)
	if !ok || e == nil {
		e = errs.Wrap(errs.KindUnclassified, "", err)
	}

	h.mu.RLock()
	fn := h.overrides[e.Kind]
	h.mu.RUnlock()
	if fn != nil {
		return fn(e)
	}
	return h.defaultResponse(e)
}

func (h *ErrorHandler) defaultResponse(e *errs.Error) envelope.Response {
	switch e.Kind {
	case errs.KindValidation:
		fields := e.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		return envelope.Failure(http.StatusUnprocessableEntity, messageOr(e, "Validation failed"), fields, nil)
	case errs.KindBusinessLogic:
		return envelope.Failure(http.StatusConflict, messageOr(e, "Conflict"), nil, nil)
	case errs.KindNotFound:
		return envelope.Failure(http.StatusNotFound, messageOr(e, "Not found"), nil, nil)
	case errs.KindInvalidArgument:
		return envelope.Failure(http.StatusBadRequest, messageOr(e, "Bad request"), nil, nil)
	case errs.KindUnauthorized:
		return envelope.Failure(http.StatusUnauthorized, messageOr(e, "Unauthorized"), nil, nil)
	case errs.KindForbidden:
		return envelope.Failure(http.StatusForbidden, messageOr(e, "Forbidden"), nil, nil)
	case errs.KindTooManyRequests:
		return envelope.Failure(http.StatusTooManyRequests, messageOr(e, "Too many requests"), nil, nil)
	case errs.KindUnclassified:
		return h.internal(e)
	default:
		return h.internal(e)
	}
}

func (h *ErrorHandler) internal(e *errs.Error) envelope.Response {
	var meta map[string]any
	if h.Debug() {
		meta = map[string]any{"detail": e.Error()}
	}
	return envelope.Failure(http.StatusInternalServerError, "Internal server error", nil, meta)
}

func messageOr(e *errs.Error, fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}
