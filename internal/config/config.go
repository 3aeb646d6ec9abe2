// Package config handles configuration loading for fxforward.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/seenimoa/fxforward/internal/forecast"
	"github.com/seenimoa/fxforward/internal/tenor"
)

// EnvPrefix prefixes every environment override, e.g. FXFORWARD_FORECAST_MODEL.
const EnvPrefix = "FXFORWARD"

// EnvUserAgent overrides the outbound User-Agent header.
const EnvUserAgent = EnvPrefix + "_FETCH_USER_AGENT"

// ProphetOriginLayout is the date format of forecast.prophet_origin.
const ProphetOriginLayout = "2006-01-02"

// Config represents the complete application configuration.
type Config struct {
	Fetch    FetchConfig    `mapstructure:"fetch"    yaml:"fetch"`
	Source   SourceConfig   `mapstructure:"source"   yaml:"source"`
	Forecast ForecastConfig `mapstructure:"forecast" yaml:"forecast"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// FetchConfig holds outbound HTTP settings.
type FetchConfig struct {
	TimeoutSec int     `mapstructure:"timeout_sec"  yaml:"timeout_sec"  validate:"gt=0"`
	UserAgent  string  `mapstructure:"user_agent"   yaml:"user_agent"` // empty means scrape.DefaultUserAgent
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec" validate:"gte=0"`
}

// Timeout returns the per-request timeout.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SourceConfig selects the scrape target and the unknown-tenor policy.
type SourceConfig struct {
	Default     string `mapstructure:"default"      yaml:"default"      validate:"required"`
	TenorPolicy string `mapstructure:"tenor_policy" yaml:"tenor_policy" validate:"tenorpolicy"` // "append" or "reject"
}

// ForecastConfig holds forecast engine defaults.
type ForecastConfig struct {
	Model         string `mapstructure:"model"          yaml:"model"          validate:"fxmodel"`
	Horizon       int    `mapstructure:"horizon"        yaml:"horizon"        validate:"min=1,max=12"`
	ProphetOrigin string `mapstructure:"prophet_origin" yaml:"prophet_origin" validate:"datetime=2006-01-02"`
}

// Origin parses ProphetOrigin, falling back to forecast.DefaultProphetOrigin.
func (c ForecastConfig) Origin() time.Time {
	t, err := time.Parse(ProphetOriginLayout, c.ProphetOrigin)
	if err != nil {
		return forecast.DefaultProphetOrigin
	}
	return t
}

// PipelineConfig holds pipeline concurrency settings.
type PipelineConfig struct {
	ConcurrentFetches int `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches" validate:"min=1,max=32"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.fxforward/config.yaml (home directory)
//  3. /etc/fxforward/config.yaml (system)
//
// Environment variables override config file values.
// Format: FXFORWARD_<SECTION>_<KEY>, e.g., FXFORWARD_FORECAST_HORIZON
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".fxforward"))
	v.AddConfigPath("/etc/fxforward")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	cfg.Source.Default = strings.ToLower(strings.TrimSpace(cfg.Source.Default))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Fetch defaults
	v.SetDefault("fetch.timeout_sec", 10)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.rate_per_sec", 1.0)

	// Source defaults
	v.SetDefault("source.default", "fxempire")
	v.SetDefault("source.tenor_policy", "append")

	// Forecast defaults
	v.SetDefault("forecast.model", "linear")
	v.SetDefault("forecast.horizon", 3)
	v.SetDefault("forecast.prophet_origin", "2000-01-01")

	// Pipeline defaults
	v.SetDefault("pipeline.concurrent_fetches", 3)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads header overrides from environment variables.
func overrideFromEnv(cfg *Config) {
	if ua := os.Getenv(EnvUserAgent); ua != "" {
		cfg.Fetch.UserAgent = ua
	}
}

// --- Validation ---

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("fxmodel", func(fl validator.FieldLevel) bool {
		_, err := forecast.ParseKind(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("tenorpolicy", func(fl validator.FieldLevel) bool {
		_, err := tenor.ParsePolicy(fl.Field().String())
		return err == nil
	})

	// Report config keys rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks value ranges and enumerations.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s=%v fails %s", key, fe.Value(), rule))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
