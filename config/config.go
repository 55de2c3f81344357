package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	WebSocket WebSocketConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	App       AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	VisitorTTL        time.Duration
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool
}

// CORSConfig holds cross-origin configuration for browser front ends
type CORSConfig struct {
	AllowedOrigins []string
}

// WebSocketConfig holds live session configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PongWait        time.Duration
	MaxMessageBytes int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// MetricsConfig holds Prometheus exposure configuration
type MetricsConfig struct {
	Addr    string
	PushURL string
	JobName string
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// fileConfig mirrors the YAML schema of the optional config file.
type fileConfig struct {
	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	} `yaml:"server"`
	RateLimit struct {
		Enabled           *bool   `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		BurstSize         int     `yaml:"burst_size"`
		TrustProxyHeaders *bool   `yaml:"trust_proxy_headers"`
	} `yaml:"rate_limit"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	WebSocket struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"websocket"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Metrics struct {
		Addr    string `yaml:"addr"`
		PushURL string `yaml:"push_url"`
	} `yaml:"metrics"`
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
	} `yaml:"app"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			BurstSize:         20,
			CleanupInterval:   time.Minute,
			VisitorTTL:        3 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PongWait:        60 * time.Second,
			MaxMessageBytes: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			JobName: "roi_calculator",
		},
		App: AppConfig{
			Name:        "roi-calculator",
			Version:     "dev",
			Environment: "development",
		},
	}
}

// Load resolves configuration in priority order: defaults -> file -> env.
// path may be empty, in which case only defaults and the environment apply.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.Server.Addr, fc.Server.Addr)
	if err := setDuration(&c.Server.ReadTimeout, fc.Server.ReadTimeout); err != nil {
		return fmt.Errorf("server.read_timeout: %w", err)
	}
	if err := setDuration(&c.Server.WriteTimeout, fc.Server.WriteTimeout); err != nil {
		return fmt.Errorf("server.write_timeout: %w", err)
	}
	if err := setDuration(&c.Server.IdleTimeout, fc.Server.IdleTimeout); err != nil {
		return fmt.Errorf("server.idle_timeout: %w", err)
	}
	if err := setDuration(&c.Server.ShutdownTimeout, fc.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if fc.Server.MaxBodyBytes > 0 {
		c.Server.MaxBodyBytes = fc.Server.MaxBodyBytes
	}

	if fc.RateLimit.Enabled != nil {
		c.RateLimit.Enabled = *fc.RateLimit.Enabled
	}
	if fc.RateLimit.RequestsPerSecond > 0 {
		c.RateLimit.RequestsPerSecond = fc.RateLimit.RequestsPerSecond
	}
	if fc.RateLimit.BurstSize > 0 {
		c.RateLimit.BurstSize = fc.RateLimit.BurstSize
	}
	if fc.RateLimit.TrustProxyHeaders != nil {
		c.RateLimit.TrustProxyHeaders = *fc.RateLimit.TrustProxyHeaders
	}

	if len(fc.CORS.AllowedOrigins) > 0 {
		c.CORS.AllowedOrigins = fc.CORS.AllowedOrigins
	}
	if len(fc.WebSocket.AllowedOrigins) > 0 {
		c.WebSocket.AllowedOrigins = fc.WebSocket.AllowedOrigins
	}

	setString(&c.Logging.Level, fc.Logging.Level)
	setString(&c.Logging.Format, fc.Logging.Format)
	setString(&c.Metrics.Addr, fc.Metrics.Addr)
	setString(&c.Metrics.PushURL, fc.Metrics.PushURL)
	setString(&c.App.Name, fc.App.Name)
	setString(&c.App.Environment, fc.App.Environment)
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnvOrDefault("SERVER_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = getDurationOrDefault("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationOrDefault("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getDurationOrDefault("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.RateLimit.Enabled = getBoolOrDefault("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerSecond = getFloatOrDefault("RATE_LIMIT_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.BurstSize = getIntOrDefault("RATE_LIMIT_BURST", c.RateLimit.BurstSize)
	c.RateLimit.TrustProxyHeaders = getBoolOrDefault("RATE_LIMIT_TRUST_PROXY", c.RateLimit.TrustProxyHeaders)

	c.CORS.AllowedOrigins = getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.WebSocket.AllowedOrigins = getStringSliceOrDefault("WS_ALLOWED_ORIGINS", c.WebSocket.AllowedOrigins)
	c.WebSocket.PongWait = getDurationOrDefault("WS_PONG_WAIT", c.WebSocket.PongWait)

	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", c.Logging.Format)

	c.Metrics.Addr = getEnvOrDefault("METRICS_ADDR", c.Metrics.Addr)
	c.Metrics.PushURL = getEnvOrDefault("METRICS_PUSH_URL", c.Metrics.PushURL)

	c.App.Name = getEnvOrDefault("APP_NAME", c.App.Name)
	c.App.Version = getEnvOrDefault("APP_VERSION", c.App.Version)
	c.App.Environment = getEnvOrDefault("APP_ENV", c.App.Environment)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "SERVER_ADDR is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "server max body bytes must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize <= 0) {
		errs = append(errs, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.CleanupInterval <= 0 || c.RateLimit.VisitorTTL <= 0) {
		errs = append(errs, "rate limit cleanup interval and visitor TTL must be positive")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be json or text (got %q)", c.Logging.Format))
	}
	if c.IsProduction() && len(c.WebSocket.AllowedOrigins) == 0 {
		errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
