package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/audit"
	"github.com/hookgate/hookgate/internal/config"
)

var (
	tailLines     int
	tailGuard     string
	tailDecision  string
	queryGuard    string
	queryDecision string
	querySince    string
	queryLimit    int
	queryRebuild  bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditTailCmd.Flags().StringVar(&tailGuard, "guard", "", "Only entries for this guard")
	auditTailCmd.Flags().StringVar(&tailDecision, "decision", "", "Only entries with this decision (allow|block|allow_with_override)")
	auditQueryCmd.Flags().StringVar(&queryGuard, "guard", "", "Only entries for this guard")
	auditQueryCmd.Flags().StringVar(&queryDecision, "decision", "", "Only entries with this decision")
	auditQueryCmd.Flags().StringVar(&querySince, "since", "", "Only entries newer than this (e.g. 24h, 7d)")
	auditQueryCmd.Flags().IntVar(&queryLimit, "limit", 100, "Maximum entries to return (0 = unlimited)")
	auditQueryCmd.Flags().BoolVar(&queryRebuild, "rebuild", false, "Rebuild the SQLite index from the log before querying")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of the audit log",
	Long: "Walks the JSONL audit log and validates that every entry's prev_hash\n" +
		"matches the SHA-256 of the previous line. Exits 0 if valid, 1 if\n" +
		"tampered. Defaults to the configured audit log.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent audit log entries",
	Long:  "Reads the last N entries from the audit log and prints a timeline.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the SQLite audit index",
	Long: "Builds (or reuses) a SQLite index of the audit log and runs filtered\n" +
		"queries against it. Faster than scanning JSONL for large logs.",
	RunE: runAuditQuery,
}

// auditLogPath resolves the log path from args or config.
func auditLogPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.AuditLog, nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	result := audit.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path, err := auditLogPath(args)
	if err != nil {
		return err
	}

	result, err := audit.Read(path, audit.Filter{
		Guard:    tailGuard,
		Decision: tailDecision,
		Limit:    tailLines,
	})
	if err != nil {
		return err
	}

	fmt.Print(audit.FormatTimeline(result))
	return nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(filepath.Dir(cfg.AuditLog), "audit.db")

	if queryRebuild {
		n, err := audit.BuildIndex(cfg.AuditLog, dbPath)
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
		fmt.Fprintf(os.Stderr, "indexed %d entries\n", n)
	} else if _, err := os.Stat(dbPath); err != nil {
		n, err := audit.BuildIndex(cfg.AuditLog, dbPath)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		fmt.Fprintf(os.Stderr, "indexed %d entries\n", n)
	}

	filter := audit.Filter{
		Guard:    queryGuard,
		Decision: queryDecision,
		Limit:    queryLimit,
	}
	if querySince != "" {
		since, err := audit.Since(querySince)
		if err != nil {
			return err
		}
		filter.Since = since
	}

	entries, err := audit.QueryIndex(dbPath, filter)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
