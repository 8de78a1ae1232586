// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Storage. An empty DatabaseURL selects in-memory stores (development only).
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// JWT Authentication
	JWTSecret         string `koanf:"jwt_secret"`
	JWTSecretPrevious string `koanf:"jwt_secret_previous"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	RateLimitPerMinute int      `koanf:"rate_limit_per_minute"`

	// TrustedProxies lists the IPs or CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means the peer address is used.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// HistoryWriteTimeout bounds one background history write.
	HistoryWriteTimeout time.Duration `koanf:"history_write_timeout"`

	// Tracing
	TracingEnabled   bool    `koanf:"tracing_enabled"`
	OTelExporter     string  `koanf:"otel_exporter"`
	OTelEndpoint     string  `koanf:"otel_endpoint"`
	OTelSamplingRate float64 `koanf:"otel_sampling_rate"`

	ProfilingEnabled bool `koanf:"profiling_enabled"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL    = errors.New("DATABASE_URL is required outside development")
	ErrMissingJWTSecret      = errors.New("JWT_SECRET is required")
	ErrWeakJWTSecret         = errors.New("JWT_SECRET must be at least 32 characters in production")
	ErrInvalidPort           = errors.New("PORT must be a valid integer between 1 and 65535")
	ErrInvalidRateLimit      = errors.New("RATE_LIMIT_PER_MINUTE must be a positive integer")
	ErrInvalidTrustedProxy   = errors.New("TRUSTED_PROXIES entries must be IP addresses or CIDR ranges")
	ErrInvalidWriteTimeout   = errors.New("HISTORY_WRITE_TIMEOUT must be a positive number of seconds")
	ErrInvalidSamplingRate   = errors.New("OTEL_SAMPLING_RATE must be between 0 and 1")
	ErrInvalidExporter       = errors.New("OTEL_EXPORTER must be otlp-http or otlp-grpc")
	ErrProfilingInProduction = errors.New("PROFILING_ENABLED cannot be set in production")
	errInvalidNumber         = errors.New("not a valid number")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultCORSOrigin          = "http://localhost:3000"
	DefaultRateLimitPerMinute  = 100
	DefaultHistoryWriteTimeout = 10 * time.Second
	DefaultOTelExporter        = "otlp-http"
	DefaultOTelSamplingRate    = 0.1
	minProductionSecretLength  = 32
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	port, err := getEnvIntOrDefaultMulti([]string{"COMPARE_PORT", "PORT"}, k.Int("port"), DefaultPort)
	collect(err)

	rateLimit, err := getEnvIntOrDefaultMulti([]string{"RATE_LIMIT_PER_MINUTE"}, k.Int("rate_limit_per_minute"), DefaultRateLimitPerMinute)
	collect(err)

	writeTimeoutSecs, err := getEnvFloatOrDefault("HISTORY_WRITE_TIMEOUT", k.Float64("history_write_timeout"), DefaultHistoryWriteTimeout.Seconds())
	collect(err)

	samplingRate := DefaultOTelSamplingRate
	if k.Exists("otel_sampling_rate") {
		samplingRate = k.Float64("otel_sampling_rate")
	}
	if val := os.Getenv("OTEL_SAMPLING_RATE"); val != "" {
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			collect(fmt.Errorf("OTEL_SAMPLING_RATE: %w", errInvalidNumber))
		} else {
			samplingRate = f
		}
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefaultMulti([]string{"COMPARE_ENV", "ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:           getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecretPrevious:   getEnvOrKoanf("JWT_SECRET_PREVIOUS", k, "jwt_secret_previous"),
		CORSAllowedOrigins:  getEnvListOrDefault("CORS_ALLOWED_ORIGINS", k.Strings("cors_allowed_origins"), []string{DefaultCORSOrigin}),
		RateLimitPerMinute:  rateLimit,
		TrustedProxies:      getEnvListOrDefault("TRUSTED_PROXIES", k.Strings("trusted_proxies"), nil),
		HistoryWriteTimeout: time.Duration(writeTimeoutSecs * float64(time.Second)),
		TracingEnabled:      getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		OTelExporter:        getEnvOrDefaultMulti([]string{"OTEL_EXPORTER"}, k.String("otel_exporter"), DefaultOTelExporter),
		OTelEndpoint:        getEnvOrKoanf("OTEL_ENDPOINT", k, "otel_endpoint"),
		OTelSamplingRate:    samplingRate,
		ProfilingEnabled:    getEnvBoolOrDefault("PROFILING_ENABLED", k, "profiling_enabled", false),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// UsesInMemoryStores reports whether no database is configured.
func (c *Config) UsesInMemoryStores() bool {
	return c.DatabaseURL == ""
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
// A zero from the YAML file falls back to the default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", key, errInvalidNumber)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, errInvalidNumber)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvBoolOrDefault reads a boolean flag. Unrecognized env values are ignored.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	switch strings.ToLower(os.Getenv(envKey)) {
	case "true", "1", "yes", "on":
		result = true
	case "false", "0", "no", "off":
		result = false
	}
	return result
}

// getEnvListOrDefault reads a comma separated env list, otherwise the koanf
// list, or default. Blank entries are dropped.
func getEnvListOrDefault(envKey string, koanfVal []string, defaultVal []string) []string {
	var raw []string
	switch {
	case os.Getenv(envKey) != "":
		raw = strings.Split(os.Getenv(envKey), ",")
	case len(koanfVal) > 0:
		raw = koanfVal
	default:
		return defaultVal
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.DatabaseURL == "" && c.IsProduction() {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	} else if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLength {
		errs = append(errs, ErrWeakJWTSecret)
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}
	for _, p := range c.TrustedProxies {
		if !validProxyEntry(p) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, p))
		}
	}
	if c.HistoryWriteTimeout <= 0 {
		errs = append(errs, ErrInvalidWriteTimeout)
	}
	if c.OTelSamplingRate < 0 || c.OTelSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}
	if c.OTelExporter != "otlp-http" && c.OTelExporter != "otlp-grpc" {
		errs = append(errs, ErrInvalidExporter)
	}
	if c.ProfilingEnabled && c.IsProduction() {
		errs = append(errs, ErrProfilingInProduction)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  strconv.Itoa(c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"jwt_secret_previous":   maskSecret(c.JWTSecretPrevious),
		"cors_allowed_origins":  strings.Join(c.CORSAllowedOrigins, ","),
		"rate_limit_per_minute": strconv.Itoa(c.RateLimitPerMinute),
		"trusted_proxies":       strings.Join(c.TrustedProxies, ","),
		"history_write_timeout": c.HistoryWriteTimeout.String(),
		"tracing_enabled":       strconv.FormatBool(c.TracingEnabled),
		"otel_exporter":         c.OTelExporter,
		"otel_endpoint":         c.OTelEndpoint,
		"otel_sampling_rate":    strconv.FormatFloat(c.OTelSamplingRate, 'f', -1, 64),
		"profiling_enabled":     strconv.FormatBool(c.ProfilingEnabled),
	}
}

func validProxyEntry(p string) bool {
	p = strings.TrimSpace(p)
	if _, err := netip.ParsePrefix(p); err == nil {
		return true
	}
	_, err := netip.ParseAddr(p)
	return err == nil
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL
// (postgres://, redis://, sqlite:// and so on).
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		// file: DSNs carry no credentials.
		if strings.HasPrefix(s, "file:") {
			return s
		}
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s
	}

	return s[:schemeEnd+3] + rest[:colonIndex] + ":****" + rest[atIndex:]
}
