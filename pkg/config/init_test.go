package config

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# rsctl configuration file",
		"server:",
		"session:",
		"push:",
		"logging:",
		"telemetry:",
		"metrics:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
	if cfg.Server.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL in generated file, got %q", cfg.Server.BaseURL)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_Force(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("garbage"), 0600); err != nil {
		t.Fatalf("Failed to overwrite config: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("InitConfig with force failed: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load regenerated config: %v", err)
	}
	if cfg.Push.Path != "/ws" {
		t.Errorf("Expected regenerated defaults, got push path %q", cfg.Push.Path)
	}
}

func TestInitConfigAt_CustomPath(t *testing.T) {
	path := t.TempDir() + "/custom/settings.yaml"

	got, err := InitConfigAt(path, false)
	if err != nil {
		t.Fatalf("InitConfigAt failed: %v", err)
	}
	if got != path {
		t.Errorf("Expected path %q, got %q", path, got)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Server.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL, got %q", cfg.Server.BaseURL)
	}
}
