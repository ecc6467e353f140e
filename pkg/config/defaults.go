package config

import (
	"strings"

	"github.com/marmos91/reportshare/internal/bytesize"
	"github.com/marmos91/reportshare/pkg/apiclient"
	"github.com/marmos91/reportshare/pkg/notify"
	"github.com/marmos91/reportshare/pkg/session"
)

// DefaultBaseURL is the backend of a local development setup.
const DefaultBaseURL = "http://localhost:3000/api"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applySessionDefaults(&cfg.Session)
	applyPushDefaults(&cfg.Push)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyServerDefaults(cfg *ServerConfig) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = apiclient.DefaultTimeout
	}
	if cfg.MaxResponseSize == 0 {
		cfg.MaxResponseSize = bytesize.ByteSize(apiclient.DefaultMaxResponseSize)
	}
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "file"
	}
	cfg.Backend = strings.ToLower(cfg.Backend)

	def := session.DefaultReadyPolicy()
	if cfg.Ready.Retries == 0 && cfg.Ready.Interval == 0 && cfg.Ready.Timeout == 0 {
		cfg.Ready = def
	}
}

// applyPushDefaults fills the push channel settings. Enabled cannot be told
// apart from an explicit false, so it is defaulted by GetDefaultConfig only.
func applyPushDefaults(cfg *PushConfig) {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.FeedSize == 0 {
		cfg.FeedSize = notify.DefaultFeedCapacity
	}

	def := notify.DefaultBackoff()
	if cfg.Backoff.Initial == 0 {
		cfg.Backoff.Initial = def.Initial
	}
	if cfg.Backoff.Max == 0 {
		cfg.Backoff.Max = def.Max
	}
	if cfg.Backoff.Multiplier == 0 {
		cfg.Backoff.Multiplier = def.Multiplier
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output.
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Push: PushConfig{
			Enabled: true,
			Backoff: notify.DefaultBackoff(),
		},
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}

// ReadyPolicy returns the token readiness policy.
func (c *Config) ReadyPolicy() session.ReadyPolicy {
	return c.Session.Ready
}
