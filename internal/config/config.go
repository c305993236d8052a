// Package config loads the service configuration: a YAML file, then
// environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/security"
)

// Config is the root configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP host
type ServerConfig struct {
	Port               string   `yaml:"port"`
	RequestTimeout     string   `yaml:"request_timeout"`
	ShutdownTimeout    string   `yaml:"shutdown_timeout"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	MaxBodyBytes       int64    `yaml:"max_body_bytes"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
	EnableHSTS         bool     `yaml:"enable_hsts"`
	CSPReportURI       string   `yaml:"csp_report_uri,omitempty"`
	EnableProfiling    bool     `yaml:"enable_profiling"`
	EnableCompression  bool     `yaml:"enable_compression"`
}

// ModelConfig locates the model and bounds its use
type ModelConfig struct {
	AssetDir               string `yaml:"asset_dir"`
	Manifest               string `yaml:"manifest"`
	RuntimeLibrary         string `yaml:"runtime_library,omitempty"`
	MaxConcurrentInference int64  `yaml:"max_concurrent_inference"`
	IntraOpThreads         int    `yaml:"intra_op_threads"`
}

// LoggingConfig selects the slog level and handler
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	sec := security.DefaultSecurityConfig()
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			RequestTimeout:     sec.RequestTimeout.String(),
			ShutdownTimeout:    "10s",
			RateLimitPerMinute: sec.MaxRequestsPerMin,
			MaxBodyBytes:       sec.MaxBodyBytes,
			AllowedOrigins:     sec.AllowedOrigins,
			TrustedProxies:     sec.TrustedProxies,
			EnableCompression:  true,
		},
		Model: ModelConfig{
			AssetDir:               "./assets",
			Manifest:               "heart",
			MaxConcurrentInference: 4,
			IntraOpThreads:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path, applies environment overrides and validates the result.
// A missing file yields the defaults; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, apperrors.NewConfigurationError("failed to read config "+path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, apperrors.NewConfigurationError("failed to parse config "+path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.RequestTimeout = getEnvOrDefault("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.Server.RateLimitPerMinute)
	c.Server.CSPReportURI = getEnvOrDefault("CSP_REPORT_URI", c.Server.CSPReportURI)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	if os.Getenv("ENABLE_HSTS") == "true" {
		c.Server.EnableHSTS = true
	}
	if os.Getenv("ENABLE_PROFILING") == "true" {
		c.Server.EnableProfiling = true
	}
	if os.Getenv("ENABLE_COMPRESSION") == "false" {
		c.Server.EnableCompression = false
	}

	c.Model.AssetDir = getEnvOrDefault("HEARTRISK_ASSET_DIR", c.Model.AssetDir)
	c.Model.Manifest = getEnvOrDefault("HEARTRISK_MANIFEST", c.Model.Manifest)
	c.Model.RuntimeLibrary = getEnvOrDefault("ONNXRUNTIME_LIB", c.Model.RuntimeLibrary)
	c.Model.MaxConcurrentInference = int64(getEnvInt("HEARTRISK_MAX_CONCURRENT_INFERENCE", int(c.Model.MaxConcurrentInference)))

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)
}

// Validate checks ranges and durations
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return apperrors.NewConfigurationError("server.port is required", nil)
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("server.port %q is not a valid port", c.Server.Port), err)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if c.Server.RateLimitPerMinute < 0 {
		return apperrors.NewConfigurationError("server.rate_limit_per_minute must not be negative", nil)
	}
	if c.Model.AssetDir == "" || c.Model.Manifest == "" {
		return apperrors.NewConfigurationError("model.asset_dir and model.manifest are required", nil)
	}
	if c.Model.MaxConcurrentInference < 1 {
		return apperrors.NewConfigurationError("model.max_concurrent_inference must be at least 1", nil)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("logging.format %q must be json or text", c.Logging.Format), nil)
	}
	return nil
}

// RequestTimeout parses server.request_timeout
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration("server.request_timeout", c.Server.RequestTimeout)
}

// ShutdownTimeout parses server.shutdown_timeout
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

// Security builds the middleware configuration. Call after Validate.
func (c *Config) Security() security.SecurityConfig {
	timeout, _ := c.RequestTimeout()
	return security.SecurityConfig{
		MaxBodyBytes:      c.Server.MaxBodyBytes,
		MaxRequestsPerMin: c.Server.RateLimitPerMinute,
		AllowedOrigins:    c.Server.AllowedOrigins,
		TrustedProxies:    c.Server.TrustedProxies,
		RequestTimeout:    timeout,
		EnableHSTS:        c.Server.EnableHSTS,
	}
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.NewConfigurationError(fmt.Sprintf("%s %q is not a duration", field, value), err)
	}
	if d < 0 {
		return 0, apperrors.NewConfigurationError(field+" must not be negative", nil)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
