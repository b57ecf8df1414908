// Package config loads the service configuration from defaults, YAML files
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development test staging production"`
	Server      Server      `yaml:"server"`
	Upstream    Upstream    `yaml:"upstream"`
	Logging     Logging     `yaml:"logging"`
	Tracing     Tracing     `yaml:"tracing"`
	CORS        CORS        `yaml:"cors"`

	// ConfigDir is the directory the YAML files were read from.
	ConfigDir string `yaml:"-"`
	// LoadedFrom lists the sources applied, lowest precedence first.
	LoadedFrom []string `yaml:"-"`
}

// Server holds HTTP server settings
type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	// RequestTimeout bounds API handlers; zero disables it.
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
}

// Upstream holds the posts API client settings
type Upstream struct {
	BaseURL              string        `yaml:"base_url" validate:"required,url"`
	Timeout              time.Duration `yaml:"timeout" validate:"gt=0"`
	EnableCircuitBreaker bool          `yaml:"enable_circuit_breaker"`
	Breaker              Breaker       `yaml:"breaker"`
}

// Breaker holds circuit breaker settings
type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"gt=0"`
	Interval         time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Logging holds logger settings
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Tracing holds tracing settings
type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" validate:"required"`
	// Endpoint is the OTLP gRPC collector; spans are not exported when empty.
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// CORS holds cross-origin settings
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

var validate = validator.New()

// Validate checks the configuration and reports every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or a plain number of milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
