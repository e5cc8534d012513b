// Package crud implements the generic CRUD dispatch pipeline: request validation,
// command execution and uniform results for the five resource operations.
package crud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"

	"github.com/artpar/crudgate/core/errs"
	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes caps the request body read by FromHTTP.
const MaxBodyBytes = 1 << 20

// Params holds path parameters.
type Params map[string]string

// ParamsFromHTTP returns the chi URL parameters of r.
func ParamsFromHTTP(r *http.Request) Params {
	params := make(Params)
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

type attributesKey struct{}

// WithAttribute returns a context carrying a request attribute. Middleware uses it
// to expose values such as the authenticated user id to operations.
func WithAttribute(ctx context.Context, name string, value any) context.Context {
	current, _ := ctx.Value(attributesKey{}).(map[string]any)
	next := maps.Clone(current)
	if next == nil {
		next = make(map[string]any, 1)
	}
	next[name] = value
	return context.WithValue(ctx, attributesKey{}, next)
}

// AttributeFrom reads a request attribute from ctx.
func AttributeFrom(ctx context.Context, name string) (any, bool) {
	attrs, _ := ctx.Value(attributesKey{}).(map[string]any)
	v, ok := attrs[name]
	return v, ok
}

// Request is the read-only view of an inbound request that validators and
// operations consume.
type Request struct {
	ctx        context.Context
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	PathParams Params
	// Body is the decoded JSON object body, or nil.
	Body       map[string]any
	raw        []byte
	attributes map[string]any
}

// NewRequest builds a Request directly, mainly for tests and non-HTTP callers.
func NewRequest(ctx context.Context, method, path string, body []byte, params Params, attributes map[string]any) (*Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req := &Request{
		ctx:        ctx,
		Method:     method,
		Path:       path,
		Query:      url.Values{},
		Header:     http.Header{},
		PathParams: params,
		raw:        body,
		attributes: maps.Clone(attributes),
	}
	if req.PathParams == nil {
		req.PathParams = Params{}
	}
	if req.attributes == nil {
		req.attributes = map[string]any{}
	}
	if err := req.parseBody(); err != nil {
		return nil, err
	}
	return req, nil
}

// FromHTTP reads r into a Request. The body is read once, up to MaxBodyBytes.
func FromHTTP(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "Unable to read request body", err)
		}
		if len(body) > MaxBodyBytes {
			return nil, errs.InvalidArgument("Request body too large")
		}
	}

	attrs, _ := r.Context().Value(attributesKey{}).(map[string]any)
	req, err := NewRequest(r.Context(), r.Method, r.URL.Path, body, ParamsFromHTTP(r), attrs)
	if err != nil {
		return nil, err
	}
	req.Query = r.URL.Query()
	req.Header = r.Header.Clone()
	return req, nil
}

func (r *Request) parseBody() error {
	trimmed := bytes.TrimSpace(r.raw)
	if len(trimmed) == 0 {
		return nil
	}
	if !json.Valid(trimmed) {
		return errs.InvalidArgument("Invalid JSON body")
	}
	if trimmed[0] == '{' {
		var body map[string]any
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return errs.Wrap(errs.KindInvalidArgument, "Invalid JSON body", err)
		}
		r.Body = body
	}
	return nil
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	return r.ctx
}

// RawBody returns the unparsed body.
func (r *Request) RawBody() []byte {
	return r.raw
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Request) Decode(v any) error {
	if len(bytes.TrimSpace(r.raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.raw, v); err != nil {
		return errs.Wrap(errs.KindInvalidArgument, "Invalid JSON body", err)
	}
	return nil
}

// Attribute returns a request attribute.
func (r *Request) Attribute(name string) (any, bool) {
	v, ok := r.attributes[name]
	return v, ok
}

// AttributeString returns a request attribute formatted as a string.
func (r *Request) AttributeString(name string) string {
	v, ok := r.attributes[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
