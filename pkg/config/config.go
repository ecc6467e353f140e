package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/reportshare/internal/bytesize"
	"github.com/marmos91/reportshare/pkg/notify"
	"github.com/marmos91/reportshare/pkg/session"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// REPORTSHARE_LOGGING_LEVEL=DEBUG.
	EnvPrefix = "REPORTSHARE"

	// ConfigFileName is the settings file inside the config directory.
	ConfigFileName = "settings.yaml"

	configDirName = "rsctl"
)

// Config represents the rsctl configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (REPORTSHARE_*), including a .env file
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Server selects the backend. REST and push share its origin.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Session controls where the session token lives between runs.
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Push configures the notification channel.
	Push PushConfig `mapstructure:"push" yaml:"push"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig points at the backend.
type ServerConfig struct {
	// BaseURL is the REST root, e.g. "http://localhost:3000/api".
	// Also read from REPORTSHARE_BASE_URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	// Timeout bounds every API call.
	// Default: 60s
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0" yaml:"timeout"`

	// MaxResponseSize caps how much of a response body is read, e.g. "8Mi".
	// Default: 8MiB
	MaxResponseSize bytesize.ByteSize `mapstructure:"max_response_size" validate:"gt=0" yaml:"max_response_size"`
}

// SessionConfig selects the token backend.
type SessionConfig struct {
	// Backend is where the session is persisted.
	// Valid values: file (credentials.json), badger, memory
	// Default: file
	Backend string `mapstructure:"backend" validate:"required,oneof=file badger memory" yaml:"backend"`

	// BadgerPath is the database directory for the badger backend.
	BadgerPath string `mapstructure:"badger_path" validate:"required_if=Backend badger" yaml:"badger_path,omitempty"`

	// Ready bounds how long a privileged call waits for a token whose login
	// has completed but whose write has not landed.
	// Default: 3 retries x 500ms
	Ready session.ReadyPolicy `mapstructure:"ready" yaml:"ready"`
}

// PushConfig configures the notification bus.
type PushConfig struct {
	// Enabled starts the bus for long-running commands.
	// Default: true
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the websocket path on the backend origin.
	// Default: /ws
	Path string `mapstructure:"path" validate:"required,startswith=/" yaml:"path"`

	// FeedSize caps the in-memory notification history.
	// Default: 200
	FeedSize int `mapstructure:"feed_size" validate:"gte=0" yaml:"feed_size"`

	// Backoff shapes reconnect delays.
	Backoff notify.BackoffConfig `mapstructure:"backoff" yaml:"backoff"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling of long-running
// commands.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040" (standard Pyroscope port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// APIURL returns the REST root without a trailing slash.
func (c *Config) APIURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/")
}

// PushURL derives the websocket endpoint from the base URL: the scheme
// becomes ws or wss and the path is replaced by Push.Path.
func (c *Config) PushURL() (string, error) {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid base_url scheme %q", u.Scheme)
	}
	u.Path = c.Push.Path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (REPORTSHARE_*), .env included
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location. A missing file is not an
// error.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := registerDefaults(v); err != nil {
		return nil, err
	}
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// initHeader opens every generated settings file.
const initHeader = "# rsctl configuration file\n" +
	"# Every key can be overridden with REPORTSHARE_<SECTION>_<KEY>.\n\n"

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	return writeYAML(path, "", cfg)
}

// InitConfig writes a default settings file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	return InitConfigAt(GetDefaultConfigPath(), force)
}

// InitConfigAt is InitConfig for an explicit path.
func InitConfigAt(path string, force bool) (string, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}
	if err := writeYAML(path, initHeader, GetDefaultConfig()); err != nil {
		return "", err
	}
	return path, nil
}

// writeYAML marshals cfg behind header into path. The directory and file are
// private to the user since the file may name internal endpoints.
func writeYAML(path, header string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// loadDotEnv exports the variables of a .env file that are not already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// registerDefaults makes every key known to viper so that environment
// variables apply even when no config file exists.
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, val := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: REPORTSHARE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.base_url", EnvPrefix+"_SERVER_BASE_URL", EnvPrefix+"_BASE_URL")
	_ = v.BindEnv("session.badger_path")

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName(strings.TrimSuffix(ConfigFileName, filepath.Ext(ConfigFileName)))
	v.SetConfigType("yaml")
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks lets files and environment variables spell sizes and
// durations for humans ("8Mi", "30s") and lists as comma-separated strings.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		scalarHook(bytesize.Parse),
		scalarHook(time.ParseDuration),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// scalarHook decodes into T from a string via parse, or from a raw number.
// YAML hands numbers over as int or float64.
func scalarHook[T ~int64 | ~uint64](parse func(string) (T, error)) mapstructure.DecodeHookFunc {
	target := reflect.TypeOf(T(0))
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return parse(v)
		case int:
			return T(v), nil
		case int64:
			return T(v), nil
		case uint64:
			return T(v), nil
		case float64:
			return T(v), nil
		}
		return data, nil
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, configDirName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", configDirName)
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), ConfigFileName)
}
