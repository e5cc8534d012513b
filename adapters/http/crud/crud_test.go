package crud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artpar/crudgate/adapters/metrics"
	"github.com/artpar/crudgate/core/crud"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/pkg/envelope"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type itemCmd struct {
	Name string `json:"name"`
}

type itemValidator struct{}

func (itemValidator) ValidateCreate(req *crud.Request) (itemCmd, error) {
	var cmd itemCmd
	if err := req.Decode(&cmd); err != nil {
		return cmd, err
	}
	if cmd.Name == "" {
		return cmd, errs.Validation("", map[string]string{"name": "name is required"})
	}
	return cmd, nil
}

func (v itemValidator) ValidateUpdate(req *crud.Request) (itemCmd, error) {
	return v.ValidateCreate(req)
}

type itemStore struct {
	items []item
	err   error
}

func (s *itemStore) Execute(_ context.Context, cmd itemCmd) (item, error) {
	if s.err != nil {
		return item{}, s.err
	}
	it := item{ID: int64(len(s.items) + 1), Name: cmd.Name}
	s.items = append(s.items, it)
	return it, nil
}

func (s *itemStore) ExecuteWithID(_ context.Context, cmd itemCmd, id int64) (item, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Name = cmd.Name
			return s.items[i], nil
		}
	}
	return item{}, errs.NotFound("Item not found")
}

func (s *itemStore) FindAll(context.Context) ([]item, error) { return s.items, s.err }

func (s *itemStore) FindByID(_ context.Context, id int64) (item, error) {
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return item{}, errs.NotFound("Item not found")
}

func (s *itemStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestRouter(store *itemStore, h *Handler) chi.Router {
	f := crud.NewFactory[itemCmd, item]("item", itemValidator{}, store)
	r := chi.NewRouter()
	r.Route("/items", NewController(f, h).Routes)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestController_CreateAndValidation(t *testing.T) {
	r := newTestRouter(&itemStore{}, NewHandler(Deps{Logger: zerolog.Nop()}))

	rec, body := do(t, r, http.MethodPost, "/items", `{"name":"lamp"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(201), body["code"])
	assert.Equal(t, map[string]any{"id": float64(1), "name": "lamp"}, body["data"])

	rec, body = do(t, r, http.MethodPost, "/items", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(422), body["code"])
	assert.Equal(t, map[string]any{"name": "name is required"}, body["data"])
}

func TestController_ValidationShape(t *testing.T) {
	h := NewHandler(Deps{Logger: zerolog.Nop()})
	op := crud.Action("user", func(*crud.Request, crud.Params) (crud.Result, error) {
		return crud.Result{}, errs.Validation("", map[string]string{"email": "invalid"})
	})

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/users", nil), op, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t,
		`{"success":false,"data":{"email":"invalid"},"message":"Validation failed","code":422}`,
		rec.Body.String())
}

func TestController_ShowUpdateDelete(t *testing.T) {
	store := &itemStore{items: []item{{ID: 1, Name: "lamp"}}}
	r := newTestRouter(store, NewHandler(Deps{Logger: zerolog.Nop()}))

	rec, body := do(t, r, http.MethodGet, "/items/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item retrieved successfully", body["message"])

	rec, _ = do(t, r, http.MethodPatch, "/items/1", `{"name":"desk"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "desk", store.items[0].Name)

	rec, body = do(t, r, http.MethodDelete, "/items/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["data"])

	rec, body = do(t, r, http.MethodDelete, "/items/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = do(t, r, http.MethodGet, "/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestController_IndexEmpty(t *testing.T) {
	r := newTestRouter(&itemStore{}, NewHandler(Deps{Logger: zerolog.Nop()}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"success":true,"data":[],"message":"Item list retrieved successfully","code":200,"meta":{"total":0}}`,
		rec.Body.String())
}

func TestHandler_InvalidJSON(t *testing.T) {
	r := newTestRouter(&itemStore{}, NewHandler(Deps{Logger: zerolog.Nop()}))

	rec, body := do(t, r, http.MethodPost, "/items", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", body["message"])
}

func TestHandler_ByteIdenticalResponses(t *testing.T) {
	h := NewHandler(Deps{Logger: zerolog.Nop()})
	result := crud.NewResult(
		map[string]any{"z": 1, "a": []any{"x", map[string]any{"k2": 2, "k1": 1}}},
		"ok", http.StatusAccepted,
		map[string]any{"page": 1, "total": 10, "cursor": "c"},
	)
	op := crud.Action("thing", func(*crud.Request, crud.Params) (crud.Result, error) { return result, nil })

	var first string
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), op, nil)
		require.Equal(t, http.StatusAccepted, rec.Code)
		if i == 0 {
			first = rec.Body.String()
			continue
		}
		require.Equal(t, first, rec.Body.String())
	}
}

func TestErrorHandler_Defaults(t *testing.T) {
	h := NewErrorHandler(false)
	tests := []struct {
		err  error
		code int
	}{
		{errs.BusinessLogic("Email already taken"), http.StatusConflict},
		{errs.NotFound("gone"), http.StatusNotFound},
		{errs.InvalidArgument("bad id"), http.StatusBadRequest},
		{errs.Unauthorized("who"), http.StatusUnauthorized},
		{errs.Forbidden("no"), http.StatusForbidden},
		{errs.TooManyRequests("slow"), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
		{errs.Wrap(errs.KindUnclassified, "db", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		resp := h.Response(tt.err)
		assert.Equal(t, tt.code, resp.Code, tt.err.Error())
		assert.False(t, resp.Success)
	}

	resp := h.Response(errs.BusinessLogic("Email already taken"))
	assert.Equal(t, "Email already taken", resp.Message)
}

func TestErrorHandler_DebugDetail(t *testing.T) {
	h := NewErrorHandler(false)
	err := errors.New("connection refused")

	resp := h.Response(err)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.Nil(t, resp.Meta)

	h.SetDebug(true)
	resp = h.Response(err)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.Equal(t, "connection refused", resp.Meta["detail"])
}

func TestErrorHandler_Override(t *testing.T) {
	h := NewErrorHandler(false)
	h.Handle(errs.KindBusinessLogic, func(e *errs.Error) envelope.Response {
		return envelope.Failure(http.StatusBadRequest, "first", nil, nil)
	})
	h.Handle(errs.KindBusinessLogic, func(e *errs.Error) envelope.Response {
		return envelope.Failure(http.StatusPreconditionFailed, "second: "+e.Message, nil, nil)
	})

	resp := h.Response(errs.BusinessLogic("stale"))
	assert.Equal(t, http.StatusPreconditionFailed, resp.Code)
	assert.Equal(t, "second: stale", resp.Message)

	h.Handle(errs.KindBusinessLogic, nil)
	assert.Equal(t, http.StatusConflict, h.Response(errs.BusinessLogic("stale")).Code)
}

func TestHandler_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(Deps{Logger: zerolog.Nop(), Metrics: metrics.NewWithRegistry(reg)})
	r := newTestRouter(&itemStore{}, h)

	do(t, r, http.MethodPost, "/items", `{"name":"lamp"}`)
	do(t, r, http.MethodPost, "/items", `{}`)

	families, err := reg.Gather()
	require.NoError(t, err)
	var series int
	for _, f := range families {
		if f.GetName() == "crudgate_crud_operations_total" {
			series = len(f.GetMetric())
		}
	}
	assert.Equal(t, 2, series)
}
