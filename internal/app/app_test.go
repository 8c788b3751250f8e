package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/grocery-console/internal/domain/product"
	"github.com/xenking/grocery-console/internal/resource"
)

func defaults(t *testing.T) *Config {
	t.Helper()
	cfg, err := loadConfig(aconfig.Config{SkipEnv: true, SkipFiles: true})
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := defaults(t)

	assert.Equal(t, "http://localhost:9000/api", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.False(t, cfg.StaleGuard)
	assert.Equal(t, "127.0.0.1:8080", cfg.Serve.Addr)
	assert.Equal(t, 5, cfg.Serve.LoginThrottle.MaxFailures)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Serve.CORS.Origins)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grocer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url: https://shop.example.com/api
stale_guard: true
serve:
  addr: 0.0.0.0:9999
`), 0o600))
	t.Setenv("GROCER_TIMEOUT", "3s")

	cfg, err := loadConfig(aconfig.Config{EnvPrefix: "GROCER", Files: []string{path}})
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.BackendURL)
	assert.True(t, cfg.StaleGuard)
	assert.Equal(t, "0.0.0.0:9999", cfg.Serve.Addr)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestConfig_Validate(t *testing.T) {
	cfg := defaults(t)
	require.NoError(t, cfg.Validate())

	cfg.BackendURL = "localhost:9000"
	assert.Error(t, cfg.Validate())

	cfg = defaults(t)
	cfg.Serve.LoginThrottle.MaxFailures = 0
	assert.Error(t, cfg.Validate())
}

func TestNewConsole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id": 1, "name": "Fruit"}]`)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := defaults(t)
	cfg.BackendURL = srv.URL
	cfg.SessionFile = filepath.Join(dir, "session.toml")

	console, err := NewConsole(zaptest.NewLogger(t), nil, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = console.Close() })

	require.NoError(t, console.Session.Save("tok"))

	ctx := context.Background()
	require.NoError(t, console.Store.Categories().List(ctx, product.CategoryFilter{}).Wait(ctx))
	snap := console.Store.Categories().Snapshot()
	assert.Equal(t, resource.Fulfilled, snap.Status)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Fruit", snap.Items[0].Name)
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := defaults(t)
	cfg.BackendURL = srv.URL
	cfg.SessionFile = filepath.Join(t.TempDir(), "session.toml")
	cfg.Serve.Addr = "127.0.0.1:0"
	cfg.Serve.Graceful.ReadinessDelay = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, zaptest.NewLogger(t), nil, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
