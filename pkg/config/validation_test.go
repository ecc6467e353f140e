package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_BaseURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.BaseURL = "not a url"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid base URL")
	}
	if !strings.Contains(err.Error(), "Server.BaseURL") {
		t.Errorf("Expected error to name Server.BaseURL, got: %v", err)
	}
}

func TestValidate_Timeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Timeout = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative timeout")
	}
}

func TestValidate_BadgerNeedsPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Session.Backend = "badger"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for badger backend without path")
	}
	if !strings.Contains(err.Error(), "Session.BadgerPath") {
		t.Errorf("Expected error to name Session.BadgerPath, got: %v", err)
	}

	cfg.Session.BadgerPath = t.TempDir()
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected badger backend with path to pass, got: %v", err)
	}
}

func TestValidate_PushPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Push.Path = "ws"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for push path without leading slash")
	}
}

func TestValidate_BackoffMultiplier(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Push.Backoff.Multiplier = 0.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for multiplier below 1")
	}
}

func TestValidate_MetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation should NOT normalize - level should remain as-is
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}
	if doc["title"] != "rsctl Configuration" {
		t.Errorf("Unexpected schema title: %v", doc["title"])
	}

	props, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("Schema has no properties: %s", data)
	}
	for _, section := range []string{"server", "session", "push", "logging", "telemetry", "metrics"} {
		if _, ok := props[section]; !ok {
			t.Errorf("Schema missing section %q", section)
		}
	}
}
