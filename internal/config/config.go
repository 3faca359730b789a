// Package config loads hookgate configuration: defaults first, YAML file
// overlay second, environment overrides last. Missing file returns
// defaults; invalid YAML returns an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides. HOOK_OVERRIDE_CODE is read by the engine,
// not here; it is per-invocation input, not configuration.
const (
	EnvConfig     = "HOOKGATE_CONFIG"
	EnvSecretFile = "HOOKGATE_SECRET_FILE"
	EnvAuditLog   = "HOOKGATE_AUDIT_LOG"
)

// Config holds all configurable hookgate parameters.
type Config struct {
	SecretFile     string         `yaml:"secret_file"`
	AuditLog       string         `yaml:"audit_log"`
	InstallPaths   []string       `yaml:"install_paths"`
	ManagedPaths   []string       `yaml:"managed_paths"`
	RequireCompose bool           `yaml:"require_compose"`
	DisabledGuards []string       `yaml:"disabled_guards"`
	Priorities     map[string]int `yaml:"guard_priorities"`
}

// Dir returns the hookgate configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hookgate")
	}
	return filepath.Join(home, ".hookgate")
}

// DefaultPath returns the config file path, honoring HOOKGATE_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		SecretFile:   filepath.Join(dir, "override.secret"),
		AuditLog:     filepath.Join(dir, "audit.jsonl"),
		InstallPaths: []string{dir},
	}
}

// Load reads configuration from path (empty = DefaultPath). Defaults are
// the base; the file overwrites only specified fields; environment
// variables win over both.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := os.Getenv(EnvSecretFile); v != "" {
		cfg.SecretFile = v
	}
	if v := os.Getenv(EnvAuditLog); v != "" {
		cfg.AuditLog = v
	}

	cfg.SecretFile = expandHome(cfg.SecretFile)
	cfg.AuditLog = expandHome(cfg.AuditLog)
	for i, p := range cfg.InstallPaths {
		cfg.InstallPaths[i] = expandHome(p)
	}
	for i, p := range cfg.ManagedPaths {
		cfg.ManagedPaths[i] = expandHome(p)
	}

	// The hookgate directory is always protected, even when the file sets
	// install_paths explicitly (the generated template writes an empty list).
	dir := Dir()
	present := false
	for _, p := range cfg.InstallPaths {
		if p == dir {
			present = true
			break
		}
	}
	if !present {
		cfg.InstallPaths = append(cfg.InstallPaths, dir)
	}
	return cfg, nil
}

// expandHome resolves a leading ~ so paths work without assuming a
// specific home directory layout at evaluation time.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

// DefaultYAML returns a commented YAML string for `hookgate init`.
func DefaultYAML() string {
	return `# hookgate configuration
# Generated by: hookgate init

# Path to the override TOTP secret (owner-only file).
# Override with HOOKGATE_SECRET_FILE.
#secret_file: ~/.hookgate/override.secret

# Path to the append-only audit log.
# Override with HOOKGATE_AUDIT_LOG.
#audit_log: ~/.hookgate/audit.jsonl

# Paths whose modification is never overridable (installation, hook wiring).
# The hookgate config directory is always included.
install_paths: []

# Configuration trees that must be changed through the sanctioned installer.
# Direct edits block, but an authenticated override is accepted.
managed_paths: []
#  - ~/.claude

# Mandate docker compose over bare docker lifecycle commands.
require_compose: false

# Guard names to disable entirely.
disabled_guards: []

# Per-guard priority overrides (lower evaluates first).
guard_priorities: {}
`
}
