package config

import (
	"os"

	"github.com/seenimoa/fxforward/internal/scrape"
)

// HeaderSource represents where an outbound header value comes from.
type HeaderSource string

const (
	HeaderSourceEnv     HeaderSource = "env"
	HeaderSourceConfig  HeaderSource = "config"
	HeaderSourceDefault HeaderSource = "default"
)

// HeaderStatus describes one outbound request header.
type HeaderStatus struct {
	Name   string       `json:"name"`
	Source HeaderSource `json:"source"`
	Value  string       `json:"value"`
	EnvVar string       `json:"env_var"`
}

// CheckHeaders returns the effective outbound headers and their origin.
func CheckHeaders(cfg *Config) []HeaderStatus {
	return []HeaderStatus{
		checkHeader("User-Agent", cfg.Fetch.UserAgent, scrape.DefaultUserAgent, EnvUserAgent),
	}
}

// checkHeader resolves a header value and where it came from.
func checkHeader(name, value, fallback, envVar string) HeaderStatus {
	status := HeaderStatus{Name: name, EnvVar: envVar, Value: value}

	switch {
	case value == "":
		status.Source = HeaderSourceDefault
		status.Value = fallback
	case os.Getenv(envVar) != "":
		status.Source = HeaderSourceEnv
	default:
		status.Source = HeaderSourceConfig
	}
	return status
}
