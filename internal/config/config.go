// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects how the HTTP listener is configured.
type Backend string

const (
	// BackendThreaded is the production server: tuned timeouts and h2c alongside HTTP/1.1.
	BackendThreaded Backend = "threaded"
	// BackendReference is the simple server: HTTP/1.1 only, one request per connection, bounded connection count.
	BackendReference Backend = "reference"
)

// Defaults applied when the corresponding variable is unset or empty.
const (
	DefaultPort              = "8080"
	DefaultBackend           = BackendThreaded
	DefaultReferenceMaxConns = 16
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultLogLevel          = "info"
)

const (
	defaultEnvFile       = ".env"
	envFileVar           = "ENV_FILE"
	portVar              = "PORT"
	backendVar           = "GREETER_BACKEND"
	referenceMaxConnsVar = "GREETER_REFERENCE_MAX_CONNS"
	shutdownTimeoutVar   = "GREETER_SHUTDOWN_TIMEOUT"
	logLevelVar          = "LOG_LEVEL"
)

// ErrInvalidBackend is returned for backend names other than "threaded" and "reference".
var ErrInvalidBackend = errors.New("invalid backend")

// Config holds the static settings handed to the server at startup.
type Config struct {
	Port              string
	Backend           Backend
	ReferenceMaxConns int
	ShutdownTimeout   time.Duration
	LogLevel          string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Port:              DefaultPort,
		Backend:           DefaultBackend,
		ReferenceMaxConns: DefaultReferenceMaxConns,
		ShutdownTimeout:   DefaultShutdownTimeout,
		LogLevel:          DefaultLogLevel,
	}
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// ParseBackend maps a case-insensitive name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendThreaded, BackendReference:
		return b, nil
	default:
		return "", fmt.Errorf("%w %q: want %q or %q", ErrInvalidBackend, name, BackendThreaded, BackendReference)
	}
}

// Load reads the .env file named by ENV_FILE (default ".env") if it exists,
// then builds a Config from the environment. Variables already present in the
// environment win over the file.
func Load() (Config, error) {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", path, err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(portVar); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 65535 {
			return Config{}, fmt.Errorf("%s: invalid port %q", portVar, v)
		}
		cfg.Port = v
	}
	if v, ok := get(backendVar); ok {
		b, err := ParseBackend(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", backendVar, err)
		}
		cfg.Backend = b
	}
	if v, ok := get(referenceMaxConnsVar); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s: want a positive integer, got %q", referenceMaxConnsVar, v)
		}
		cfg.ReferenceMaxConns = n
	}
	if v, ok := get(shutdownTimeoutVar); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: want a positive duration, got %q", shutdownTimeoutVar, v)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := get(logLevelVar); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg, nil
}
