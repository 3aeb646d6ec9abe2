package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		EnvUserAgent,
		"FXFORWARD_FORECAST_MODEL",
		"FXFORWARD_FORECAST_HORIZON",
		"FXFORWARD_SOURCE_DEFAULT",
		"FXFORWARD_LOGGING_LEVEL",
	} {
		t.Setenv(e, "")
		os.Unsetenv(e)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)
	// Run from an empty directory so ./config/config.yaml cannot be picked up.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Fetch.TimeoutSec != 10 {
		t.Errorf("Fetch.TimeoutSec: got %d, want 10", cfg.Fetch.TimeoutSec)
	}
	if cfg.Fetch.Timeout() != 10*time.Second {
		t.Errorf("Fetch.Timeout(): got %v", cfg.Fetch.Timeout())
	}
	if cfg.Fetch.UserAgent != "" {
		t.Errorf("Fetch.UserAgent: got %q, want empty", cfg.Fetch.UserAgent)
	}
	if cfg.Fetch.RatePerSec != 1 {
		t.Errorf("Fetch.RatePerSec: got %f, want 1", cfg.Fetch.RatePerSec)
	}
	if cfg.Source.Default != "fxempire" {
		t.Errorf("Source.Default: got %q, want %q", cfg.Source.Default, "fxempire")
	}
	if cfg.Source.TenorPolicy != "append" {
		t.Errorf("Source.TenorPolicy: got %q, want %q", cfg.Source.TenorPolicy, "append")
	}
	if cfg.Forecast.Model != "linear" {
		t.Errorf("Forecast.Model: got %q, want %q", cfg.Forecast.Model, "linear")
	}
	if cfg.Forecast.Horizon != 3 {
		t.Errorf("Forecast.Horizon: got %d, want 3", cfg.Forecast.Horizon)
	}
	if got := cfg.Forecast.Origin(); !got.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Forecast.Origin(): got %v", got)
	}
	if cfg.Pipeline.ConcurrentFetches != 3 {
		t.Errorf("Pipeline.ConcurrentFetches: got %d, want 3", cfg.Pipeline.ConcurrentFetches)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "*" {
		t.Errorf("API.CORSOrigins: got %v", cfg.API.CORSOrigins)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
fetch:
  timeout_sec: 5
  user_agent: "fxforward-test/1.0"
  rate_per_sec: 0
source:
  default: "Investing"
  tenor_policy: "reject"
forecast:
  model: "prophet"
  horizon: 6
  prophet_origin: "2020-06-01"
pipeline:
  concurrent_fetches: 2
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Fetch.TimeoutSec != 5 {
		t.Errorf("Fetch.TimeoutSec: got %d, want 5", cfg.Fetch.TimeoutSec)
	}
	if cfg.Fetch.UserAgent != "fxforward-test/1.0" {
		t.Errorf("Fetch.UserAgent: got %q", cfg.Fetch.UserAgent)
	}
	if cfg.Fetch.RatePerSec != 0 {
		t.Errorf("Fetch.RatePerSec: got %f, want 0", cfg.Fetch.RatePerSec)
	}
	if cfg.Source.Default != "investing" {
		t.Errorf("Source.Default: got %q, want %q", cfg.Source.Default, "investing")
	}
	if cfg.Source.TenorPolicy != "reject" {
		t.Errorf("Source.TenorPolicy: got %q", cfg.Source.TenorPolicy)
	}
	if cfg.Forecast.Model != "prophet" || cfg.Forecast.Horizon != 6 {
		t.Errorf("Forecast: got %+v", cfg.Forecast)
	}
	if got := cfg.Forecast.Origin(); !got.Equal(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Forecast.Origin(): got %v", got)
	}
	if cfg.Pipeline.ConcurrentFetches != 2 {
		t.Errorf("Pipeline.ConcurrentFetches: got %d", cfg.Pipeline.ConcurrentFetches)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
forecast:
  horizon: 24
  model: "lstm"
`)
	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"forecast.horizon", "max=12", "forecast.model"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

// ── Environment ──

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
forecast:
  horizon: 4
`)
	t.Setenv("FXFORWARD_FORECAST_HORIZON", "9")
	t.Setenv(EnvUserAgent, "env-agent")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Forecast.Horizon != 9 {
		t.Errorf("Forecast.Horizon: got %d, want 9", cfg.Forecast.Horizon)
	}
	if cfg.Fetch.UserAgent != "env-agent" {
		t.Errorf("Fetch.UserAgent: got %q, want env-agent", cfg.Fetch.UserAgent)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	clearEnv(t)
	cfg := &Config{Fetch: FetchConfig{UserAgent: "from-config"}}
	overrideFromEnv(cfg)
	if cfg.Fetch.UserAgent != "from-config" {
		t.Errorf("UserAgent should stay unchanged, got %q", cfg.Fetch.UserAgent)
	}
}

// ── Validate ──

func validConfig() *Config {
	return &Config{
		Fetch:    FetchConfig{TimeoutSec: 10, RatePerSec: 1},
		Source:   SourceConfig{Default: "fxempire", TenorPolicy: "append"},
		Forecast: ForecastConfig{Model: "linear", Horizon: 3, ProphetOrigin: "2000-01-01"},
		Pipeline: PipelineConfig{ConcurrentFetches: 3},
		API:      APIConfig{Host: "0.0.0.0", Port: 8080},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"horizon zero", func(c *Config) { c.Forecast.Horizon = 0 }, "forecast.horizon"},
		{"horizon 13", func(c *Config) { c.Forecast.Horizon = 13 }, "forecast.horizon"},
		{"horizon 12", func(c *Config) { c.Forecast.Horizon = 12 }, ""},
		{"model alias", func(c *Config) { c.Forecast.Model = "ets" }, ""},
		{"unknown model", func(c *Config) { c.Forecast.Model = "lstm" }, "forecast.model"},
		{"zero timeout", func(c *Config) { c.Fetch.TimeoutSec = 0 }, "fetch.timeout_sec"},
		{"negative rate", func(c *Config) { c.Fetch.RatePerSec = -1 }, "fetch.rate_per_sec"},
		{"bad policy", func(c *Config) { c.Source.TenorPolicy = "drop" }, "source.tenor_policy"},
		{"bad origin", func(c *Config) { c.Forecast.ProphetOrigin = "01/01/2000" }, "forecast.prophet_origin"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no concurrency", func(c *Config) { c.Pipeline.ConcurrentFetches = 0 }, "pipeline.concurrent_fetches"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() should fail on %s", tt.field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %q", err, tt.field)
			}
		})
	}
}

func TestOriginFallback(t *testing.T) {
	fc := ForecastConfig{ProphetOrigin: "garbage"}
	if got := fc.Origin(); !got.Equal(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Origin() fallback: got %v", got)
	}
}

// ── CheckHeaders ──

func TestCheckHeadersDefault(t *testing.T) {
	clearEnv(t)
	statuses := CheckHeaders(&Config{})
	if len(statuses) != 1 {
		t.Fatalf("expected 1 header, got %d", len(statuses))
	}
	s := statuses[0]
	if s.Name != "User-Agent" || s.Source != HeaderSourceDefault || s.Value != "Mozilla/5.0" {
		t.Errorf("default header: got %+v", s)
	}
}

func TestCheckHeadersFromConfig(t *testing.T) {
	clearEnv(t)
	s := CheckHeaders(&Config{Fetch: FetchConfig{UserAgent: "custom"}})[0]
	if s.Source != HeaderSourceConfig || s.Value != "custom" {
		t.Errorf("config header: got %+v", s)
	}
}

func TestCheckHeadersFromEnv(t *testing.T) {
	t.Setenv(EnvUserAgent, "env-agent")
	s := CheckHeaders(&Config{Fetch: FetchConfig{UserAgent: "env-agent"}})[0]
	if s.Source != HeaderSourceEnv {
		t.Errorf("env header: got source %q", s.Source)
	}
	if s.EnvVar != EnvUserAgent {
		t.Errorf("EnvVar: got %q", s.EnvVar)
	}
}
