package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/checkpoint"
	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/source"
)

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {302, "3xx"}, {404, "4xx"}, {503, "5xx"}, {100, "unknown"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.code); got != tt.want {
			t.Errorf("statusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestHandleHealthz(t *testing.T) {
	healthy := true
	h := handleHealthz(func() bool { return healthy })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	healthy = false
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestOpsServerRoutes(t *testing.T) {
	srv := newOpsServer(":0", func() bool { return true })
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr("8080"))
	assert.Equal(t, ":9090", listenAddr(":9090"))
	assert.Equal(t, ":8080", listenAddr(""))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WATCHER_ADDRESS", "addr")
	cfg, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "addr", cfg.Address)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.PageLimit)
	assert.Equal(t, 10000, cfg.CacheSize)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "file", cfg.CheckpointBackend)
	assert.Equal(t, "watcher_state", cfg.StatePath)
	assert.Equal(t, "console", cfg.Sink)
	assert.Equal(t, 3, cfg.SinkRetries)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("WATCHER_ADDRESS", "addr")
	t.Setenv("WATCHER_POLL_INTERVAL", "500ms")
	t.Setenv("WATCHER_MAX_CONCURRENT", "2")
	t.Setenv("WATCHER_CHECKPOINT_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://a:b@c/d")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2, cfg.MaxConcurrent)
	assert.Equal(t, "postgres://a:b@c/d", cfg.DatabaseURL, "unprefixed DATABASE_URL is honoured")
	assert.Equal(t, "9000", cfg.Port)
}

func TestLoadConfigEnvFile(t *testing.T) {
	t.Setenv("WATCHER_ADDRESS", "")
	os.Unsetenv("WATCHER_ADDRESS")

	path := filepath.Join(t.TempDir(), "watcher.env")
	require.NoError(t, os.WriteFile(path, []byte("WATCHER_ADDRESS=from-file\nWATCHER_PAGE_LIMIT=50\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("WATCHER_PAGE_LIMIT") })

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Address)
	assert.Equal(t, 50, cfg.PageLimit)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadConfigRequiresAddress(t *testing.T) {
	t.Setenv("WATCHER_ADDRESS", "")
	os.Unsetenv("WATCHER_ADDRESS")
	_, err := loadConfig("")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Address: "addr", PollInterval: time.Second, PageLimit: 100, CacheSize: 10,
			MaxConcurrent: 4, FetchTimeout: time.Second, CheckpointBackend: "file", Sink: "console",
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"zero cache is allowed", func(c *Config) { c.CacheSize = 0 }, true},
		{"blank address", func(c *Config) { c.Address = "  " }, false},
		{"page limit too big", func(c *Config) { c.PageLimit = 1001 }, false},
		{"page limit zero", func(c *Config) { c.PageLimit = 0 }, false},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, false},
		{"no concurrency", func(c *Config) { c.MaxConcurrent = 0 }, false},
		{"no poll interval", func(c *Config) { c.PollInterval = 0 }, false},
		{"no fetch timeout", func(c *Config) { c.FetchTimeout = 0 }, false},
		{"unknown backend", func(c *Config) { c.CheckpointBackend = "redis" }, false},
		{"postgres backend without url", func(c *Config) { c.CheckpointBackend = "postgres" }, false},
		{"sqlite backend", func(c *Config) { c.CheckpointBackend = "sqlite" }, true},
		{"unknown sink", func(c *Config) { c.Sink = "kafka" }, false},
		{"sqs sink without queue", func(c *Config) { c.Sink = "sqs" }, false},
		{"sqs sink", func(c *Config) { c.Sink = "sqs"; c.SQSQueueURL = "https://sqs/q" }, true},
		{"postgres sink without url", func(c *Config) { c.Sink = "postgres" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json")
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	l = newLogger(&buf, "loud", "text")
	assert.Contains(t, buf.String(), "invalid log level")
	l.Info("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestWiring(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Address: "addr", RPCURL: syntheticRPC, CheckpointBackend: "file", StatePath: filepath.Join(dir, "state"), Sink: "console"}

	src, err := newSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &source.Synthetic{}, src)

	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.File{}, store)

	cfg.CheckpointBackend = "sqlite"
	cfg.SQLitePath = filepath.Join(dir, "watcher.db")
	store, err = openStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg.CheckpointBackend = "none"
	store, err = openStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Nop{}, store)

	_, closeSink, err := newSink(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	closeSink()

	cfg.RPCURL = "http://127.0.0.1:0"
	_, err = newSource(cfg)
	assert.Error(t, err, "addr is not a base58 public key")
}

func TestCheckpointCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WATCHER_ADDRESS", "addr")
	t.Setenv("WATCHER_STATE_PATH", filepath.Join(dir, "state"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.addr"), []byte("sig-1\n"), 0o644))

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Equal(t, "sig-1 slot=0\n", run("checkpoint", "show"))
	assert.Equal(t, "checkpoint for addr cleared\n", run("checkpoint", "reset"))
	assert.Equal(t, "no checkpoint for addr\n", run("checkpoint", "show"))
}

func TestRunWatcherSynthetic(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Address:           "addr",
		RPCURL:            syntheticRPC,
		PollInterval:      10 * time.Millisecond,
		PageLimit:         10,
		CacheSize:         100,
		MaxConcurrent:     2,
		FetchTimeout:      time.Second,
		CheckpointBackend: "file",
		StatePath:         filepath.Join(dir, "state"),
		Sink:              "console",
		SinkRetries:       1,
		Port:              "0",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var logs bytes.Buffer
	require.NoError(t, runWatcher(ctx, cfg, newLogger(&logs, "info", "json")))

	data, err := os.ReadFile(filepath.Join(dir, "state.addr"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "addr-"), "checkpoint written: %q", data)
	assert.Contains(t, logs.String(), "shutting down")
}
