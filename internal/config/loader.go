package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is used when CONFIG_DIR is not set.
const DefaultConfigDir = "config"

// Loader builds the configuration from, in increasing precedence: defaults,
// base.yaml, <environment>.yaml, then environment variables.
type Loader struct {
	basePath    string
	environment Environment
}

// NewLoader creates a loader reading YAML files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = DefaultConfigDir
	}
	if env == "" {
		env = Development
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
	}
}

// BasePath returns the directory the loader reads files from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// Load loads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := l.defaultConfig()
	cfg.LoadedFrom = []string{"defaults"}

	for _, name := range []string{"base", strings.ToLower(string(l.environment))} {
		path, err := l.loadFile(name, cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	applyEnvironment(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile overlays <name>.yaml or <name>.yml onto cfg and returns its path.
func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(l.basePath, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return path, nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", fs.ErrNotExist
}

// applyEnvironment overlays environment variables, the highest precedence source.
func applyEnvironment(cfg *Config) {
	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.Server.RequestTimeout)

	cfg.Upstream.BaseURL = getEnv("UPSTREAM_BASE_URL", cfg.Upstream.BaseURL)
	cfg.Upstream.Timeout = getEnvDuration("UPSTREAM_TIMEOUT", cfg.Upstream.Timeout)
	cfg.Upstream.EnableCircuitBreaker = getEnvBool("ENABLE_CIRCUIT_BREAKER", cfg.Upstream.EnableCircuitBreaker)

	cfg.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(getEnv("LOG_FORMAT", cfg.Logging.Format))

	cfg.Tracing.Enabled = getEnvBool("ENABLE_TRACING", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnv("OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.Insecure = getEnvBool("OTLP_INSECURE", cfg.Tracing.Insecure)
	cfg.Tracing.SampleRate = getEnvFloat("TRACE_SAMPLE_RATE", cfg.Tracing.SampleRate)
	cfg.Tracing.ServiceName = getEnv("SERVICE_NAME", cfg.Tracing.ServiceName)

	cfg.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)
}

// defaultConfig returns a configuration the service can run with unchanged.
func (l *Loader) defaultConfig() *Config {
	sampleRate := 1.0
	format := "console"
	if l.environment == Production || l.environment == Staging {
		format = "json"
	}
	if l.environment == Production {
		sampleRate = 0.1
	}

	return &Config{
		Environment: l.environment,
		ConfigDir:   l.basePath,
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Upstream: Upstream{
			BaseURL: "https://jsonplaceholder.typicode.com",
			Timeout: 10 * time.Second,
			Breaker: Breaker{
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Logging: Logging{
			Level:  "info",
			Format: format,
		},
		Tracing: Tracing{
			Enabled:     true,
			ServiceName: "audition-api",
			SampleRate:  sampleRate,
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
		},
	}
}

// LoadConfig loads the configuration for the environment named by ENVIRONMENT
// from the directory named by CONFIG_DIR.
func LoadConfig() (*Config, error) {
	env := Environment(strings.ToLower(getEnv("ENVIRONMENT", string(Development))))
	return NewLoader(getEnv("CONFIG_DIR", DefaultConfigDir), env).Load()
}
