package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.BaseURL != "http://localhost:3000/api" {
		t.Errorf("Expected default base URL, got %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 60*time.Second {
		t.Errorf("Expected default timeout 60s, got %v", cfg.Server.Timeout)
	}
}

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Session(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Session.Backend != "file" {
		t.Errorf("Expected default session backend 'file', got %q", cfg.Session.Backend)
	}
	if cfg.Session.Ready.Retries != 3 || cfg.Session.Ready.Interval != 500*time.Millisecond {
		t.Errorf("Expected 3 x 500ms readiness, got %+v", cfg.Session.Ready)
	}

	custom := &Config{Session: SessionConfig{Backend: "MEMORY"}}
	custom.Session.Ready.Timeout = time.Second
	ApplyDefaults(custom)
	if custom.Session.Backend != "memory" {
		t.Errorf("Expected backend normalized to 'memory', got %q", custom.Session.Backend)
	}
	if custom.Session.Ready.Timeout != time.Second || custom.Session.Ready.Retries != 0 {
		t.Errorf("Expected explicit readiness to be kept, got %+v", custom.Session.Ready)
	}
}

func TestApplyDefaults_Push(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Push.Path != "/ws" {
		t.Errorf("Expected default push path '/ws', got %q", cfg.Push.Path)
	}
	if cfg.Push.FeedSize != 200 {
		t.Errorf("Expected default feed size 200, got %d", cfg.Push.FeedSize)
	}
	if cfg.Push.Backoff.Initial != time.Second || cfg.Push.Backoff.Max != 30*time.Second {
		t.Errorf("Expected 1s..30s backoff, got %+v", cfg.Push.Backoff)
	}
	if cfg.Push.Backoff.Multiplier != 2 {
		t.Errorf("Expected multiplier 2, got %v", cfg.Push.Backoff.Multiplier)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled {
		t.Error("Expected telemetry disabled by default")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default endpoint 'localhost:4317', got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Endpoint != "http://localhost:4040" {
		t.Errorf("Expected default profiling endpoint, got %q", cfg.Telemetry.Profiling.Endpoint)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) != 6 {
		t.Errorf("Expected 6 default profile types, got %v", cfg.Telemetry.Profiling.ProfileTypes)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no port when metrics are disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{BaseURL: "https://reports.example.com/api", Timeout: 10 * time.Second},
		Logging: LoggingConfig{Level: "DEBUG", Format: "json", Output: "/tmp/rsctl.log"},
		Push:    PushConfig{Path: "/push", FeedSize: 10},
	}
	ApplyDefaults(cfg)

	if cfg.Server.BaseURL != "https://reports.example.com/api" {
		t.Errorf("Expected explicit base URL preserved, got %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 10*time.Second {
		t.Errorf("Expected explicit timeout preserved, got %v", cfg.Server.Timeout)
	}
	if cfg.Logging.Output != "/tmp/rsctl.log" {
		t.Errorf("Expected explicit output preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Push.Path != "/push" || cfg.Push.FeedSize != 10 {
		t.Errorf("Expected explicit push settings preserved, got %+v", cfg.Push)
	}
}
