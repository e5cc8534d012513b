// Package e2e runs crudgate over a real listener with a file-backed config
// and database.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/crudgate/app"
	"github.com/artpar/crudgate/bootstrap"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/domain/user"
)

const configTemplate = `
server:
  host: "127.0.0.1"
  port: 0
  shutdown_timeout: 5s

database:
  driver: sqlite
  dsn: "%s"

auth:
  jwt_secret: e2e-secret
  bcrypt_cost: 4

logging:
  level: error
  format: json

debug: %t
`

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

type harness struct {
	t          *testing.T
	app        *bootstrap.App
	addr       string
	configPath string
	dbPath     string
	client     *http.Client
	stopFn     func()
}

// TestE2E_ProductFlow covers the full request path:
// 1. Start crudgate from a config file
// 2. Create a user and sign in
// 3. Create a product, then send an invalid one
// 4. Shut down gracefully
func TestE2E_ProductFlow(t *testing.T) {
	h := start(t)

	h.createUser("seller@example.com")
	token := h.login("seller@example.com")

	resp, body := h.request(http.MethodPost, "/api/products", `{"name":"Lamp","price_cents":4500}`, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if !body.Success || body.Code != http.StatusCreated {
		t.Errorf("envelope = %+v, want success with code 201", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	resp, body = h.request(http.MethodPost, "/api/products", `{"price_cents":-1}`, token)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid create status = %d, want 422", resp.StatusCode)
	}
	var fields map[string]string
	if err := json.Unmarshal(body.Data, &fields); err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(fields) == 0 {
		t.Error("want a non-empty field error map")
	}

	resp, _ = h.request(http.MethodPost, "/api/products", `{"name":`, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed json status = %d, want 400", resp.StatusCode)
	}
}

// TestE2E_DataSurvivesRestart checks that migrations run once and rows persist.
func TestE2E_DataSurvivesRestart(t *testing.T) {
	h := start(t)
	h.createUser("persist@example.com")
	h.stop()

	h2 := startWith(t, h.configPath, h.dbPath)
	h2.login("persist@example.com")

	applied, err := h2.app.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("restart re-applied %v", applied)
	}
}

// TestE2E_ConfigHotReload rewrites the config file and waits for debug mode to
// reach the error handler.
func TestE2E_ConfigHotReload(t *testing.T) {
	h := start(t)
	if h.app.Errors.Debug() {
		t.Fatal("debug should start disabled")
	}

	h.writeConfig(true)

	deadline := time.Now().Add(5 * time.Second)
	for !h.app.Errors.Debug() {
		if time.Now().After(deadline) {
			t.Fatal("config change was not applied")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func start(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return startWith(t, filepath.Join(dir, "crudgate.yaml"), filepath.Join(dir, "test.db"))
}

func startWith(t *testing.T, configPath, dbPath string) *harness {
	t.Helper()

	h := &harness{
		t:          t,
		configPath: configPath,
		dbPath:     dbPath,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
	h.writeConfig(false)

	holder, logger, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	a, err := bootstrap.New(context.Background(), bootstrap.Options{Config: holder, Logger: logger})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	h.app = a

	// Find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	h.addr = listener.Addr().String()
	listener.Close()
	a.HTTPServer.Addr = h.addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
	}
	h.stopFn = stop
	t.Cleanup(stop)

	h.waitReady()
	return h
}

func (h *harness) stop() {
	h.stopFn()
}

func (h *harness) writeConfig(debug bool) {
	h.t.Helper()
	content := fmt.Sprintf(configTemplate, h.dbPath, debug)
	if err := os.WriteFile(h.configPath, []byte(content), 0644); err != nil {
		h.t.Fatalf("write config: %v", err)
	}
}

func (h *harness) waitReady() {
	h.t.Helper()
	client := &http.Client{Timeout: 100 * time.Millisecond}

	for i := 0; i < 50; i++ {
		resp, err := client.Get("http://" + h.addr + "/system/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	h.t.Fatalf("server at %s did not become ready", h.addr)
}

func (h *harness) request(method, path, body, token string) (*http.Response, response) {
	h.t.Helper()

	req, err := http.NewRequest(method, "http://"+h.addr+path, bytes.NewBufferString(body))
	if err != nil {
		h.t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read body: %v", err)
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		h.t.Fatalf("%s %s: body is not an envelope: %s", method, path, raw)
	}
	return resp, out
}

func (h *harness) createUser(email string) {
	h.t.Helper()

	svc := container.MustResolve[*app.UserService](h.app.Container)
	name, password := "E2E User", "Password1"
	if _, err := svc.Execute(context.Background(), user.Command{Email: &email, Name: &name, Password: &password}); err != nil {
		h.t.Fatalf("create user: %v", err)
	}
}

func (h *harness) login(email string) string {
	h.t.Helper()

	resp, body := h.request(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"Password1"}`, "")
	if resp.StatusCode != http.StatusOK {
		h.t.Fatalf("login status = %d: %s", resp.StatusCode, body.Message)
	}
	var session app.Session
	if err := json.Unmarshal(body.Data, &session); err != nil || session.Token == "" {
		h.t.Fatalf("login returned no token: %s", body.Data)
	}
	if session.TokenType != "Bearer" {
		h.t.Errorf("token type = %q", session.TokenType)
	}
	return session.Token
}
