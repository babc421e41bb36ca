package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chrisuehlinger/evtarget/events"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Events.MaxAncestors != events.DefaultMaxAncestors {
		t.Errorf("Expected max ancestors %d, got %d", events.DefaultMaxAncestors, cfg.Events.MaxAncestors)
	}
	if cfg.Log.Level != "info" || cfg.Log.Development {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default should validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "evtarget.yaml", "events:\n  max_ancestors: 16\nlog:\n  level: debug\n  development: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Events.MaxAncestors != 16 {
		t.Errorf("Expected 16, got %d", cfg.Events.MaxAncestors)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
}

func TestLoadFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "", ""},
		{"partial", "log:\n  level: warn\n", ""},
		{"unknown field", "events:\n  depth: 3\n", "decode yaml"},
		{"zero ceiling", "events:\n  max_ancestors: 0\n", "max_ancestors"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromReader failed: %v", err)
			}
			if cfg == nil {
				t.Error("Expected a config")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvMaxAncestors, "8")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogDev, "true")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Events.MaxAncestors != 8 || cfg.Log.Level != "error" || !cfg.Log.Development {
		t.Errorf("Environment not applied: %+v", cfg)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv(EnvMaxAncestors, "many")
	if err := Default().ApplyEnv(); err == nil {
		t.Error("Expected error for non-numeric max ancestors")
	}

	t.Setenv(EnvMaxAncestors, "")
	t.Setenv(EnvLogDev, "sometimes")
	if err := Default().ApplyEnv(); err == nil {
		t.Error("Expected error for non-boolean dev flag")
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", EnvMaxAncestors+"=4\n")
	t.Setenv(EnvMaxAncestors, "")
	if err := os.Unsetenv(EnvMaxAncestors); err != nil {
		t.Fatalf("Unsetenv failed: %v", err)
	}

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Events.MaxAncestors != 4 {
		t.Errorf("Expected 4, got %d", cfg.Events.MaxAncestors)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Expected error for a missing env file")
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	logger, err := cfg.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Error("Expected debug enabled")
	}

	cfg.Log.Development = true
	cfg.Log.Level = "warn"
	logger, err = cfg.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Error("Expected info disabled at warn")
	}

	cfg.Log.Level = "nope"
	if _, err := cfg.NewLogger(); err == nil {
		t.Error("Expected error for a bad level")
	}
}
