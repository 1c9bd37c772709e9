package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Integration tests that exercise the full LoadFrom pipeline:
// defaults < YAML < environment variables.

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGORA_PORT", "7070")
	t.Setenv("AGORA_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadFrom_YAMLPartialOverride(t *testing.T) {
	// YAML sets only logging.level; everything else keeps defaults.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
logging:
  level: "error"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("got level %q, want error", cfg.Logging.Level)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port should be 8080, got %q", cfg.Server.Port)
	}
	if cfg.Deliberation.MaxSessions != 1000 {
		t.Errorf("default max_sessions should be 1000, got %d", cfg.Deliberation.MaxSessions)
	}
}

func TestLoadFrom_EnvInvalidValues(t *testing.T) {
	// Invalid env values are silently ignored; defaults survive.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGORA_MAX_SESSIONS", "notanumber")
	t.Setenv("AGORA_DEFAULT_TIMEOUT", "invalid-duration")
	t.Setenv("AGORA_DEFAULT_THRESHOLD", "abc")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Deliberation.MaxSessions != 1000 {
		t.Errorf("invalid int env should be ignored: got max_sessions %d, want 1000", cfg.Deliberation.MaxSessions)
	}
	if cfg.Deliberation.DefaultTimeout.String() != "5m0s" {
		t.Errorf("invalid duration env should be ignored: got %v, want 5m", cfg.Deliberation.DefaultTimeout)
	}
	if cfg.Deliberation.DefaultThreshold != 0.66 {
		t.Errorf("invalid float env should be ignored: got %v, want 0.66", cfg.Deliberation.DefaultThreshold)
	}
}

func TestLoadFrom_MissingYAMLFile(t *testing.T) {
	// Non-existent YAML => pure defaults, no error.
	cfg, err := LoadFrom("/nonexistent/path/to/config.yaml")
	if err != nil {
		t.Fatalf("missing YAML should not error, got %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte(`{{{invalid yaml`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
}

func TestLoadFrom_ValidationAfterOverride(t *testing.T) {
	// YAML sets port to empty string => validation error.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: ""
`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected validation error for empty port, got nil")
	}
}

func TestLoadFrom_DeliberationOverrides(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
deliberation:
  max_sessions: 50
  escalation_target: "governance-board"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	// Durations come through env; YAML durations are raw nanosecond ints.
	t.Setenv("AGORA_DEFAULT_TIMEOUT", "30s")
	t.Setenv("AGORA_CACHE_RESULT_TTL", "2h")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Deliberation.MaxSessions != 50 {
		t.Errorf("got max_sessions %d, want 50", cfg.Deliberation.MaxSessions)
	}
	if cfg.Deliberation.DefaultTimeout.String() != "30s" {
		t.Errorf("got default_timeout %v, want 30s", cfg.Deliberation.DefaultTimeout)
	}
	if cfg.Deliberation.EscalationTarget != "governance-board" {
		t.Errorf("got escalation_target %q, want governance-board", cfg.Deliberation.EscalationTarget)
	}
	if cfg.Cache.ResultTTL.String() != "2h0m0s" {
		t.Errorf("got result_ttl %v, want 2h", cfg.Cache.ResultTTL)
	}
	// Unchanged deliberation defaults
	if cfg.Deliberation.DefaultQuorum != 3 {
		t.Errorf("default quorum should be 3, got %d", cfg.Deliberation.DefaultQuorum)
	}
}
