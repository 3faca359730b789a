package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/audit"
	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/engine"
	"github.com/hookgate/hookgate/internal/guard"
	"github.com/hookgate/hookgate/internal/invocation"
	"github.com/hookgate/hookgate/internal/override"
	"github.com/hookgate/hookgate/internal/secret"
)

func init() {
	rootCmd.AddCommand(hookCmd)
}

var hookCmd = &cobra.Command{
	Use:   "hook [tool-name [command [file-path]]]",
	Short: "Evaluate one tool invocation (hook entrypoint)",
	Long: "Reads a tool-call payload from stdin as JSON, falling back to\n" +
		"HOOKGATE_TOOL_NAME/HOOKGATE_COMMAND/HOOKGATE_FILE_PATH and then to\n" +
		"positional arguments. Evaluates the guard registry and exits:\n\n" +
		"  0  allowed (including authenticated override)\n" +
		"  2  blocked\n" +
		"  1  internal error (unparsable payload, broken config)\n\n" +
		"Wire this as the pre-tool-use hook of your coding assistant.",
	Args: cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runHook(args))
	},
}

// runHook returns the process exit code rather than an error so the
// allow/block/internal-error distinction survives to the caller.
func runHook(args []string) int {
	inv, err := invocation.Extract(os.Stdin, os.Getenv, args, invocation.IsInteractive())
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookgate: %v\n", err)
		return engine.ExitInternalError
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookgate: %v\n", err)
		return engine.ExitInternalError
	}

	registry, err := guard.DefaultRegistry(guard.RuleOptions{
		InstallPaths:   cfg.InstallPaths,
		AuditLogPath:   cfg.AuditLog,
		SecretPath:     cfg.SecretFile,
		ManagedPaths:   cfg.ManagedPaths,
		RequireCompose: cfg.RequireCompose,
		Disabled:       cfg.DisabledGuards,
		Priorities:     cfg.Priorities,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookgate: %v\n", err)
		return engine.ExitInternalError
	}

	log, err := audit.Open(cfg.AuditLog)
	if err != nil {
		// An unwritable audit log must not flip a decision; the warning is
		// the only trace.
		fmt.Fprintf(os.Stderr, "hookgate: warning: audit log unavailable: %v\n", err)
		log = nil
	} else {
		defer log.Close()
	}

	eng := &engine.Engine{
		Registry:     registry,
		Auth:         override.NewAuthorizer(secret.NewStore(cfg.SecretFile)),
		Log:          log,
		Out:          os.Stdout,
		Err:          os.Stderr,
		OverrideCode: os.Getenv(engine.EnvOverrideCode),
	}

	return eng.Evaluate(inv).ExitCode
}
