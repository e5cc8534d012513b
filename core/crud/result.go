package crud

import (
	"fmt"
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/artpar/crudgate/core/errs"
)

// Result is the immutable outcome of an operation.
type Result struct {
	data    any
	message string
	code    int
	meta    map[string]any
}

// NewResult creates a Result. A code that is not a known HTTP status becomes 500;
// nil meta becomes an empty map.
func NewResult(data any, message string, code int, meta map[string]any) Result {
	if http.StatusText(code) == "" {
		code = http.StatusInternalServerError
	}
	m := maps.Clone(meta)
	if m == nil {
		m = map[string]any{}
	}
	return Result{data: data, message: message, code: code, meta: m}
}

func (r Result) Data() any       { return r.data }
func (r Result) Message() string { return r.message }

// Code returns the HTTP status of the result.
func (r Result) Code() int {
	if r.code == 0 {
		return http.StatusOK
	}
	return r.code
}

// Meta returns a copy of the result metadata; never nil.
func (r Result) Meta() map[string]any {
	m := maps.Clone(r.meta)
	if m == nil {
		m = map[string]any{}
	}
	return m
}

// WithMeta returns a copy of r with key set in its metadata.
func (r Result) WithMeta(key string, value any) Result {
	m := r.Meta()
	m[key] = value
	r.meta = m
	return r
}

// ResolveID returns the resource id for Show, Update and Delete.
//
// An "id" path parameter always wins, even when empty. The "id" request attribute
// is consulted only when the path parameters have no "id" key. A missing,
// malformed or non-positive id is an InvalidArgument error.
func ResolveID(params Params, req *Request) (int64, error) {
	if raw, ok := params["id"]; ok {
		return parseID(raw)
	}
	if req != nil {
		if v, ok := req.Attribute("id"); ok {
			return idFromAttribute(v)
		}
	}
	return 0, errs.InvalidArgument("Missing resource id")
}

func idFromAttribute(v any) (int64, error) {
	switch id := v.(type) {
	case int64:
		return checkID(id)
	case int:
		return checkID(int64(id))
	case int32:
		return checkID(int64(id))
	case float64:
		// 1<<63 is the first float64 outside int64.
		if math.IsNaN(id) || id < 1 || id >= 1<<63 || id != math.Trunc(id) {
			return 0, errs.InvalidArgument("Invalid resource id")
		}
		return int64(id), nil
	case string:
		return parseID(id)
	case fmt.Stringer:
		return parseID(id.String())
	default:
		return 0, errs.InvalidArgument("Invalid resource id")
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errs.InvalidArgument("Invalid resource id")
	}
	return checkID(id)
}

func checkID(id int64) (int64, error) {
	if id <= 0 {
		return 0, errs.InvalidArgument("Invalid resource id")
	}
	return id, nil
}
