// Package envelope defines the uniform JSON response wrapper written for every
// API call:
//
//	{"success": true, "data": ..., "message": "...", "code": 200, "meta": {...}}
//
// The encoding is deterministic: struct fields keep declaration order and
// encoding/json sorts map keys, so the same Response always yields the same bytes.
package envelope

import (
	"bytes"
	"encoding/json"
	"maps"
	"net/http"
)

// ContentType is the media type of every envelope.
const ContentType = "application/json"

// Response is the wire envelope.
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Message string         `json:"message"`
	Code    int            `json:"code"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Builder provides a fluent API for building responses.
type Builder struct {
	resp Response
}

// New starts a successful 200 response.
func New() *Builder {
	return &Builder{resp: Response{Success: true, Code: http.StatusOK}}
}

// Fail starts a failed response with the given status.
func Fail(code int) *Builder {
	return &Builder{resp: Response{Success: false, Code: code}}
}

func (b *Builder) Data(data any) *Builder {
	b.resp.Data = data
	return b
}

func (b *Builder) Message(msg string) *Builder {
	b.resp.Message = msg
	return b
}

func (b *Builder) Code(code int) *Builder {
	b.resp.Code = code
	return b
}

// Meta sets a single meta key.
func (b *Builder) Meta(key string, value any) *Builder {
	if b.resp.Meta == nil {
		b.resp.Meta = make(map[string]any)
	}
	b.resp.Meta[key] = value
	return b
}

// MetaAll merges meta into the response meta.
func (b *Builder) MetaAll(meta map[string]any) *Builder {
	if len(meta) == 0 {
		return b
	}
	if b.resp.Meta == nil {
		b.resp.Meta = make(map[string]any, len(meta))
	}
	maps.Copy(b.resp.Meta, meta)
	return b
}

// Build returns the response.
func (b *Builder) Build() Response {
	resp := b.resp
	resp.Meta = maps.Clone(b.resp.Meta)
	if http.StatusText(resp.Code) == "" {
		resp.Code = http.StatusInternalServerError
	}
	return resp
}

// Success builds a successful envelope.
func Success(data any, message string, code int, meta map[string]any) Response {
	return New().Data(data).Message(message).Code(code).MetaAll(meta).Build()
}

// Failure builds a failed envelope.
func Failure(code int, message string, data any, meta map[string]any) Response {
	return Fail(code).Data(data).Message(message).MetaAll(meta).Build()
}

// Marshal encodes resp without HTML escaping and without a trailing newline.
func Marshal(resp Response) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Write writes resp with the JSON content type and resp.Code as status.
// When resp cannot be encoded a 500 envelope is written instead.
func Write(w http.ResponseWriter, resp Response) error {
	body, err := Marshal(resp)
	if err != nil {
		resp = Failure(http.StatusInternalServerError, "Internal server error", nil, nil)
		body, _ = Marshal(resp)
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(resp.Code)
	if _, werr := w.Write(body); werr != nil && err == nil {
		err = werr
	}
	return err
}
