package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/audit"
	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/secret"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "hookgate binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "hookgate binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Config directory and file.
	dir := config.Dir()
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		checks = append(checks, checkResult{
			label:  "config directory",
			ok:     true,
			detail: dir,
		})
	} else {
		checks = append(checks, checkResult{
			label:  "config directory",
			ok:     false,
			detail: "missing",
			fix:    "hookgate init",
		})
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		checks = append(checks, checkResult{
			label:  "config.yaml",
			ok:     false,
			detail: err.Error(),
		})
		cfg = config.Default()
	} else if _, statErr := os.Stat(config.DefaultPath()); statErr == nil {
		checks = append(checks, checkResult{
			label:  "config.yaml",
			ok:     true,
			detail: "parses",
		})
	} else {
		checks = append(checks, checkResult{
			label:  "config.yaml",
			ok:     true,
			detail: "missing, using defaults",
		})
	}

	// 3. Override secret: present with owner-only permissions.
	if _, err := secret.NewStore(cfg.SecretFile).Read(); err == nil {
		checks = append(checks, checkResult{
			label:  "override secret",
			ok:     true,
			detail: cfg.SecretFile,
		})
	} else {
		checks = append(checks, checkResult{
			label:  "override secret",
			ok:     false,
			detail: err.Error(),
			fix:    "hookgate secret init",
		})
	}

	// 4. Audit log: directory writable, chain intact if the log exists.
	if err := os.MkdirAll(filepath.Dir(cfg.AuditLog), 0o700); err != nil {
		checks = append(checks, checkResult{
			label:  "audit log",
			ok:     false,
			detail: fmt.Sprintf("directory not writable: %v", err),
		})
	} else if _, err := os.Stat(cfg.AuditLog); os.IsNotExist(err) {
		checks = append(checks, checkResult{
			label:  "audit log",
			ok:     true,
			detail: "not yet created (first decision will create it)",
		})
	} else {
		result := audit.Verify(cfg.AuditLog)
		if result.Valid {
			checks = append(checks, checkResult{
				label:  "audit log",
				ok:     true,
				detail: fmt.Sprintf("%d entries, chain intact", result.Lines),
			})
		} else {
			checks = append(checks, checkResult{
				label:  "audit log",
				ok:     false,
				detail: fmt.Sprintf("chain broken at line %d: %s", result.ErrorLine, result.Error),
			})
		}
	}

	// Print results.
	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}
