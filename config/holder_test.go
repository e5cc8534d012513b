package config_test

import (
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/artpar/crudgate/config"
	"github.com/rs/zerolog"
)

func validConfig() string {
	return `
logging:
  level: "info"
debug: false
`
}

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeFile(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", got.Logging.Level)
	}
}

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeFile(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var received *config.Config
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		received = cfg
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\ndebug: true\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("OnChange callback was not called")
	}
	if !received.Debug || received.Logging.Level != "debug" {
		t.Errorf("callback received %+v", received)
	}
	if h.Get() != received {
		t.Error("Get() does not return the reloaded config")
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeFile(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var reloadErr error
	h.OnReloadError(func(err error) { reloadErr = err })

	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if reloadErr == nil {
		t.Error("OnReloadError callback was not called")
	}
	if h.Get().Logging.Level != "info" {
		t.Errorf("should keep old config, got level %s", h.Get().Logging.Level)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeFile(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan *config.Config, 8)
	h.OnChange(func(cfg *config.Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// An editor may produce several events; wait for the final content.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Logging.Level == "warn" {
				return
			}
		case <-deadline:
			t.Fatal("file watcher did not trigger reload")
		}
	}
}

func TestHolder_Static(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	h := config.NewStaticHolder(cfg, zerolog.Nop())
	defer h.Stop()

	if h.Path() != "" {
		t.Errorf("Path() = %q, want empty", h.Path())
	}
	if err := h.WatchFile(); err != nil {
		t.Errorf("WatchFile() on static holder error = %v", err)
	}

	t.Setenv("CRUDGATE_DEBUG", "true")
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !h.Get().Debug {
		t.Error("static Reload() did not re-read the environment")
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeFile(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeFile(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	fields := config.ReloadableFields()
	for _, e := range []string{"debug", "logging.level"} {
		if !slices.Contains(fields, e) {
			t.Errorf("%s not in ReloadableFields", e)
		}
	}
}

func TestNonReloadableFields(t *testing.T) {
	fields := config.NonReloadableFields()
	for _, e := range []string{"server.host", "server.port", "database.dsn"} {
		if !slices.Contains(fields, e) {
			t.Errorf("%s not in NonReloadableFields", e)
		}
	}
}
