package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/guard"
	"github.com/hookgate/hookgate/internal/invocation"
)

var (
	checkTool    string
	checkCommand string
	checkFile    string
	checkFormat  string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkTool, "tool", "Bash", "Tool name to evaluate as")
	checkCmd.Flags().StringVar(&checkCommand, "command", "", "Shell command to evaluate")
	checkCmd.Flags().StringVar(&checkFile, "file-path", "", "Target file path to evaluate")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check [-- command...]",
	Short: "Dry-run a tool invocation against the guard registry",
	Long: "Evaluates a hypothetical invocation without prompting, without\n" +
		"override validation, and without writing the audit log.\n" +
		"Exit code 0 if it would be allowed, 2 if blocked.\n\n" +
		"The command can be given as a flag or positionally:\n" +
		"  hookgate check --command 'git commit --no-verify'\n" +
		"  hookgate check -- git commit --no-verify",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkCommand == "" && len(args) > 0 {
		checkCommand = strings.Join(args, " ")
	}
	if checkCommand == "" && checkFile == "" {
		return fmt.Errorf("nothing to evaluate: provide --command, --file-path, or a positional command")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
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
		return err
	}

	inv := &invocation.Invocation{
		ID:       "check-dry-run",
		ToolName: checkTool,
		Command:  checkCommand,
		FilePath: checkFile,
		Source:   invocation.SourceArguments,
	}

	ev := registry.Evaluate(inv)

	if checkFormat == "json" {
		out, err := renderCheckJSON(ev)
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else {
		fmt.Print(renderCheckText(ev))
	}

	if ev.Blocked != nil {
		os.Exit(2)
	}
	return nil
}

func renderCheckText(ev guard.Evaluation) string {
	var b strings.Builder
	for _, note := range ev.Advisories {
		fmt.Fprintf(&b, "advisory (%s): %s\n", note.Name, note.Message)
	}
	if ev.Blocked == nil {
		b.WriteString("ALLOW\n")
		return b.String()
	}
	fmt.Fprintf(&b, "BLOCK by %s\n%s\n", ev.Blocked.Name, ev.Message)
	if ev.Blocked.Bypassable {
		b.WriteString("Bypassable with an authenticated override.\n")
	} else {
		b.WriteString("Not bypassable.\n")
	}
	return b.String()
}

func renderCheckJSON(ev guard.Evaluation) (string, error) {
	out := map[string]any{"decision": "allow"}
	if ev.Blocked != nil {
		out["decision"] = "block"
		out["guard"] = ev.Blocked.Name
		out["bypassable"] = ev.Blocked.Bypassable
		out["reason"] = ev.Message
	}
	var advisories []string
	for _, note := range ev.Advisories {
		advisories = append(advisories, note.Message)
	}
	if len(advisories) > 0 {
		out["advisories"] = advisories
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal check result: %w", err)
	}
	return string(data), nil
}
