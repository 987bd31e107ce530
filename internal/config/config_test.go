package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsstrigger/internal/store"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 50, cfg.MaxItems)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.Equal(t, 10*time.Minute, cfg.Store.IdleTimeout.Duration)
	require.NoError(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsstrigger.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":8080"
max_items = 20

[store]
kind = "memory"
idle_timeout = "90s"

[riddle]
endpoint = "https://riddle.test/api"

[log]
level = "debug"
json = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 20, cfg.MaxItems)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, 90*time.Second, cfg.Store.IdleTimeout.Duration)
	assert.Equal(t, "https://riddle.test/api", cfg.Riddle.Endpoint)
	assert.True(t, cfg.Log.JSON)

	opts := cfg.StoreOptions()
	assert.Equal(t, store.KindMemory, opts.Kind)
	assert.Equal(t, 90*time.Second, opts.IdleTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\nidle_timeout = \"soon\"\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, "https://app.vercel.app",
		ResolveBaseURL(env(map[string]string{"VERCEL_URL": "app.vercel.app", "PUBLIC_BASE_URL": "https://x.test"}), "https://override.test"))
	assert.Equal(t, "https://override.test",
		ResolveBaseURL(env(map[string]string{"PUBLIC_BASE_URL": "https://x.test"}), "https://override.test/"))
	assert.Equal(t, "https://x.test",
		ResolveBaseURL(env(map[string]string{"PUBLIC_BASE_URL": "https://x.test/"}), ""))
	assert.Equal(t, DefaultBaseURL, ResolveBaseURL(env(nil), ""))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"RIDDLE_API_KEY":    "rk",
		"EDGE_CONFIG_TOKEN": "et",
		"EDGE_CONFIG_URL":   "https://edge.test/ecfg_1",
	}))
	assert.Equal(t, "rk", cfg.Riddle.APIKey)
	assert.Equal(t, "et", cfg.Store.EdgeConfigToken)
	assert.Equal(t, "https://edge.test/ecfg_1", cfg.Store.EdgeConfigURL)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Kind = "redis"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Kind = "edge-config"
	assert.Error(t, cfg.Validate())
	cfg.Store.EdgeConfigURL = "https://edge.test"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.MaxItems = 0
	assert.Error(t, cfg.Validate())
}
