package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.SecretFile != def.SecretFile || cfg.AuditLog != def.AuditLog {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
audit_log: /var/log/hookgate/audit.jsonl
require_compose: true
disabled_guards: [unsafe-restart]
guard_priorities:
  history-rewrite: 3
`
	os.WriteFile(path, []byte(content), 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuditLog != "/var/log/hookgate/audit.jsonl" {
		t.Errorf("audit_log not overlaid: %q", cfg.AuditLog)
	}
	if !cfg.RequireCompose {
		t.Error("require_compose not overlaid")
	}
	if len(cfg.DisabledGuards) != 1 || cfg.DisabledGuards[0] != "unsafe-restart" {
		t.Errorf("disabled_guards wrong: %v", cfg.DisabledGuards)
	}
	if cfg.Priorities["history-rewrite"] != 3 {
		t.Errorf("guard_priorities wrong: %v", cfg.Priorities)
	}
	// Unspecified fields keep their defaults.
	if cfg.SecretFile != Default().SecretFile {
		t.Errorf("secret_file should stay default, got %q", cfg.SecretFile)
	}
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("audit_log: [unclosed"), 0o600)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("audit_log: /from/file.jsonl\n"), 0o600)

	t.Setenv(EnvAuditLog, "/from/env.jsonl")
	t.Setenv(EnvSecretFile, "/from/env.secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuditLog != "/from/env.jsonl" {
		t.Errorf("env should beat file: %q", cfg.AuditLog)
	}
	if cfg.SecretFile != "/from/env.secret" {
		t.Errorf("env should beat defaults: %q", cfg.SecretFile)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("managed_paths: ['~/.claude']\n"), 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	home, _ := os.UserHomeDir()
	if len(cfg.ManagedPaths) != 1 || cfg.ManagedPaths[0] != filepath.Join(home, ".claude") {
		t.Errorf("expected ~ expansion, got %v", cfg.ManagedPaths)
	}
}

func TestLoadGeneratedConfigKeepsInstallDirProtected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(DefaultYAML()), 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !containsPath(cfg.InstallPaths, Dir()) {
		t.Errorf("generated config must keep %s in install_paths, got %v", Dir(), cfg.InstallPaths)
	}
}

func TestLoadExplicitInstallPathsStillIncludeDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("install_paths: [/opt/hookgate]\n"), 0o600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !containsPath(cfg.InstallPaths, "/opt/hookgate") {
		t.Errorf("explicit install path dropped: %v", cfg.InstallPaths)
	}
	if !containsPath(cfg.InstallPaths, Dir()) {
		t.Errorf("hookgate directory must always be protected, got %v", cfg.InstallPaths)
	}
}

func containsPath(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestDefaultYAMLParses(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(DefaultYAML()), &cfg); err != nil {
		t.Fatalf("generated template does not parse: %v", err)
	}
	if !strings.Contains(DefaultYAML(), "require_compose") {
		t.Error("template should document require_compose")
	}
}
