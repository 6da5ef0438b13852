package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(mapLookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Addr())
	}
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := FromLookup(mapLookup(map[string]string{
		"PORT":                        "3000",
		"GREETER_BACKEND":             " Reference ",
		"GREETER_REFERENCE_MAX_CONNS": "4",
		"GREETER_SHUTDOWN_TIMEOUT":    "2s",
		"LOG_LEVEL":                   "DEBUG",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Config{
		Port:              "3000",
		Backend:           BackendReference,
		ReferenceMaxConns: 4,
		ShutdownTimeout:   2 * time.Second,
		LogLevel:          "debug",
	}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestFromLookupEmptyValuesUseDefaults(t *testing.T) {
	cfg, err := FromLookup(mapLookup(map[string]string{"PORT": "", "GREETER_BACKEND": "  "}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort || cfg.Backend != DefaultBackend {
		t.Fatalf("expected defaults for empty values, got %+v", cfg)
	}
}

func TestFromLookupInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non numeric port", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"unknown backend", map[string]string{"GREETER_BACKEND": "puma"}},
		{"zero max conns", map[string]string{"GREETER_REFERENCE_MAX_CONNS": "0"}},
		{"bad max conns", map[string]string{"GREETER_REFERENCE_MAX_CONNS": "many"}},
		{"bad timeout", map[string]string{"GREETER_SHUTDOWN_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"GREETER_SHUTDOWN_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromLookup(mapLookup(tt.env)); err == nil {
				t.Fatalf("expected error for %v", tt.env)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in   string
		want Backend
	}{
		{"threaded", BackendThreaded},
		{"THREADED", BackendThreaded},
		{"reference", BackendReference},
		{" Reference", BackendReference},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseBackend(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseBackend("webrick"); !errors.Is(err, ErrInvalidBackend) {
		t.Fatalf("expected ErrInvalidBackend, got %v", err)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeter.env")
	if err := os.WriteFile(path, []byte("GREETER_BACKEND=reference\nPORT=9191\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("PORT", "9090")
	t.Setenv("GREETER_BACKEND", "")
	// godotenv only fills unset variables; clear GREETER_BACKEND so the file value applies.
	if err := os.Unsetenv("GREETER_BACKEND"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != BackendReference {
		t.Fatalf("expected backend from env file, got %q", cfg.Backend)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected process env to win over file, got %q", cfg.Port)
	}
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
}
