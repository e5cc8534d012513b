package envelope

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMarshal_Shape(t *testing.T) {
	resp := Success(map[string]any{"id": 1, "name": "a<b"}, "ok", http.StatusCreated, nil)

	got, err := Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"success":true,"data":{"id":1,"name":"a<b"},"message":"ok","code":201}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestMarshal_NullDataAndMeta(t *testing.T) {
	resp := Failure(http.StatusNotFound, "missing", nil, map[string]any{"b": 2, "a": 1})

	got, err := Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"success":false,"data":null,"message":"missing","code":404,"meta":{"a":1,"b":2}}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	meta := map[string]any{"z": 1, "y": 2, "x": 3, "w": map[string]any{"q": 1, "p": 2}}
	data := map[string]any{"k3": "c", "k1": "a", "k2": "b"}

	first, err := Marshal(Success(data, "ok", http.StatusOK, meta))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		got, err := Marshal(Success(data, "ok", http.StatusOK, meta))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(got) != string(first) {
			t.Fatalf("Marshal() run %d = %s, want %s", i, got, first)
		}
	}
}

func TestBuilder(t *testing.T) {
	meta := map[string]any{"total": 1}
	b := New().Data([]int{1}).MetaAll(meta).Meta("page", 2)
	resp := b.Build()
	meta["total"] = 99

	if !resp.Success || resp.Code != http.StatusOK {
		t.Errorf("Build() = %+v", resp)
	}
	if resp.Meta["total"] != 1 || resp.Meta["page"] != 2 {
		t.Errorf("Meta = %v", resp.Meta)
	}

	b.Meta("page", 3)
	if resp.Meta["page"] != 2 {
		t.Errorf("built response shares meta with builder")
	}
}

func TestBuild_InvalidCode(t *testing.T) {
	resp := Fail(7).Build()
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500", resp.Code)
	}
}

func TestWrite(t *testing.T) {
	w := httptest.NewRecorder()
	if err := Write(w, Failure(http.StatusConflict, "taken", nil, nil)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if w.Code != http.StatusConflict {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusConflict)
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentType {
		t.Errorf("Content-Type = %q, want %q", ct, ContentType)
	}
}

func TestWrite_UnencodableFallsBackTo500(t *testing.T) {
	w := httptest.NewRecorder()
	err := Write(w, Success(math.Inf(1), "ok", http.StatusOK, nil))
	if err == nil {
		t.Fatal("Write() expected error")
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", w.Code)
	}
	want := `{"success":false,"data":null,"message":"Internal server error","code":500}`
	if w.Body.String() != want {
		t.Errorf("Body = %s, want %s", w.Body.String(), want)
	}
}
