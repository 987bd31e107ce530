// Package config resolves runtime settings from defaults, an optional TOML
// file and the environment. Command-line flags are applied on top in main.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"rsstrigger/internal/feed"
	"rsstrigger/internal/store"
)

const DefaultBaseURL = "http://localhost:3000"

type Config struct {
	Addr     string       `toml:"addr"`
	BaseURL  string       `toml:"base_url"`
	MaxItems int          `toml:"max_items"`
	Store    StoreConfig  `toml:"store"`
	Riddle   RiddleConfig `toml:"riddle"`
	Log      LogConfig    `toml:"log"`
}

type StoreConfig struct {
	Kind            string   `toml:"kind"`
	DataDir         string   `toml:"data_dir"`
	SQLitePath      string   `toml:"sqlite_path"`
	EdgeConfigURL   string   `toml:"edge_config_url"`
	EdgeConfigToken string   `toml:"edge_config_token"`
	IdleTimeout     Duration `toml:"idle_timeout"`
}

type RiddleConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Duration decodes TOML strings such as "10m".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		Addr:     ":3000",
		MaxItems: feed.DefaultMaxItems,
		Store: StoreConfig{
			Kind:        string(store.KindFile),
			DataDir:     "data",
			SQLitePath:  "rsstrigger.db",
			IdleTimeout: Duration{store.DefaultIdleTimeout},
		},
		Riddle: RiddleConfig{},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills secrets and the base URL from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("RIDDLE_API_KEY"); v != "" {
		c.Riddle.APIKey = v
	}
	if v := getenv("EDGE_CONFIG_TOKEN"); v != "" {
		c.Store.EdgeConfigToken = v
	}
	if v := getenv("EDGE_CONFIG_URL"); v != "" && c.Store.EdgeConfigURL == "" {
		c.Store.EdgeConfigURL = v
	}
	c.BaseURL = ResolveBaseURL(getenv, c.BaseURL)
}

// ResolveBaseURL prefers the platform-provided host, then an explicit
// override, then the local development default.
func ResolveBaseURL(getenv func(string) string, override string) string {
	if host := getenv("VERCEL_URL"); host != "" {
		return "https://" + strings.TrimPrefix(host, "https://")
	}
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	if v := getenv("PUBLIC_BASE_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return DefaultBaseURL
}

func (c Config) Validate() error {
	switch store.Kind(c.Store.Kind) {
	case store.KindMemory, store.KindFile, store.KindTemp, store.KindSQLite:
	case store.KindEdgeConfig:
		if c.Store.EdgeConfigURL == "" {
			return fmt.Errorf("store kind %q requires edge_config_url", c.Store.Kind)
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max_items must be positive, got %d", c.MaxItems)
	}
	return nil
}

func (c Config) StoreOptions() store.Options {
	return store.Options{
		Kind:            store.Kind(c.Store.Kind),
		DataDir:         c.Store.DataDir,
		SQLitePath:      c.Store.SQLitePath,
		EdgeConfigURL:   c.Store.EdgeConfigURL,
		EdgeConfigToken: c.Store.EdgeConfigToken,
		IdleTimeout:     c.Store.IdleTimeout.Duration,
	}
}
