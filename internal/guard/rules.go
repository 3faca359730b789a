package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hookgate/hookgate/internal/invocation"
)

// RuleOptions parameterizes the built-in guard library.
type RuleOptions struct {
	// InstallPaths are paths whose modification is never overridable:
	// the hookgate binary, its hook scripts, its config directory.
	InstallPaths []string
	// AuditLogPath and SecretPath get the same non-bypassable protection.
	AuditLogPath string
	SecretPath   string
	// ManagedPaths are configuration trees that must be changed through
	// the sanctioned installer; direct edits block but can be overridden.
	ManagedPaths []string
	// RequireCompose mandates docker compose over bare docker lifecycle
	// commands.
	RequireCompose bool
	// Disabled lists guard names to leave out of the registry.
	Disabled []string
	// Priorities overrides the built-in priority per guard name.
	Priorities map[string]int
}

// DefaultRegistry builds the standard guard registry. Registration order is
// part of the contract: equal-priority guards evaluate in the order listed
// here.
func DefaultRegistry(opts RuleOptions) (*Registry, error) {
	guards := []Guard{
		unparsableCommandGuard(),
		installTamperGuard(opts),
		auditTamperGuard(opts),
		managedConfigGuard(opts),
		verifyBypassGuard(),
		hookSkipEnvGuard(),
		historyRewriteGuard(),
		unsafeRestartGuard(),
		composeBypassGuard(opts),
		forceWithLeaseAdvisory(),
		recursiveDeleteAdvisory(),
		discardChangesAdvisory(),
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[name] = true
	}

	reg := NewRegistry()
	for _, g := range guards {
		if disabled[g.Name] {
			continue
		}
		if p, ok := opts.Priorities[g.Name]; ok {
			g.Priority = p
		}
		if err := reg.Register(g); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// commandsOf tokenizes the invocation's command. ok=false means the command
// is non-empty but unparsable; blocking guards treat that as triggered.
func commandsOf(inv *invocation.Invocation) (cmds []simpleCommand, ok bool) {
	if inv.Command == "" {
		return nil, true
	}
	cmds, err := parseCommands(inv.Command)
	if err != nil {
		return nil, false
	}
	return cmds, true
}

// mutatingCommand reports whether a simple command modifies files:
// rm, mv, cp, chmod, chown, tee, truncate, sed -i.
func mutatingCommand(sc simpleCommand) bool {
	if len(sc.Words) == 0 {
		return false
	}
	switch base(sc.Words[0]) {
	case "rm", "mv", "cp", "chmod", "chown", "tee", "truncate", "ln", "install":
		return true
	case "sed":
		return hasFlag(sc.Words, "-i") || anyPrefix(sc.Words, "-i")
	}
	return false
}

func anyPrefix(words []string, prefix string) bool {
	for _, w := range words[1:] {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

// pathUnder reports whether path sits at or below root after cleaning and
// ~ expansion.
func pathUnder(path, root string) bool {
	if path == "" || root == "" {
		return false
	}
	path = filepath.Clean(expandHome(path))
	root = filepath.Clean(expandHome(root))
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return p
}

// touchesPath reports whether the invocation edits the given path directly
// (file_path) or via a mutating shell command naming it. Inert when no roots
// are configured.
func touchesPath(inv *invocation.Invocation, roots ...string) bool {
	var active []string
	for _, root := range roots {
		if root != "" {
			active = append(active, root)
		}
	}
	if len(active) == 0 {
		return false
	}
	roots = active
	for _, root := range roots {
		if pathUnder(inv.FilePath, root) {
			return true
		}
	}
	cmds, ok := commandsOf(inv)
	if !ok {
		return true // unparsable command, fail closed
	}
	for _, sc := range cmds {
		if !mutatingCommand(sc) {
			continue
		}
		for _, w := range sc.Words[1:] {
			for _, root := range roots {
				if root != "" && pathUnder(w, root) {
					return true
				}
			}
		}
	}
	return false
}

// unparsableCommandGuard blocks commands the tokenizer cannot parse. Other
// guards also fail closed on parse errors, but this one runs first so the
// explanation names the real problem instead of a coincidental rule.
func unparsableCommandGuard() Guard {
	return Guard{
		Name:       "unparsable-command",
		Priority:   0,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			_, ok := commandsOf(inv)
			return !ok
		},
		Explain: func(inv *invocation.Invocation) string {
			return "The command could not be parsed as shell syntax, so it cannot be checked\n" +
				"against policy. Fix the quoting or escaping and try again."
		},
	}
}

func installTamperGuard(opts RuleOptions) Guard {
	return Guard{
		Name:       "install-tamper",
		Priority:   1,
		Class:      Blocking,
		Bypassable: false,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			return touchesPath(inv, opts.InstallPaths...)
		},
		Explain: func(inv *invocation.Invocation) string {
			return "Direct modification of the hookgate installation is not permitted.\n" +
				"This protection cannot be overridden. Use the sanctioned installer to change hook wiring."
		},
	}
}

func auditTamperGuard(opts RuleOptions) Guard {
	return Guard{
		Name:       "audit-tamper",
		Priority:   2,
		Class:      Blocking,
		Bypassable: false,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			return touchesPath(inv, opts.AuditLogPath, opts.SecretPath)
		},
		Explain: func(inv *invocation.Invocation) string {
			return "The audit log and override secret are append-only/operator-managed.\n" +
				"This protection cannot be overridden."
		},
	}
}

func managedConfigGuard(opts RuleOptions) Guard {
	return Guard{
		Name:       "managed-config-edit",
		Priority:   5,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			return touchesPath(inv, opts.ManagedPaths...)
		},
		Explain: func(inv *invocation.Invocation) string {
			target := inv.FilePath
			if target == "" {
				target = "a managed configuration path"
			}
			return fmt.Sprintf("%s is managed configuration; edit it through the installer, not directly.", target)
		},
	}
}

func verifyBypassGuard() Guard {
	return Guard{
		Name:       "verify-bypass",
		Priority:   10,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return true
			}
			for _, sc := range cmds {
				if len(sc.Words) == 0 || base(sc.Words[0]) != "git" {
					continue
				}
				// -c core.hooksPath=... disables hooks regardless of subcommand
				for _, w := range sc.Words[1:] {
					if strings.HasPrefix(strings.ToLower(w), "core.hookspath=") {
						return true
					}
				}
				switch subcommand(sc.Words) {
				case "commit":
					// -n is --no-verify for commit (but --dry-run for push)
					if hasFlag(sc.Words, "--no-verify", "-n") {
						return true
					}
				case "push", "merge":
					if hasFlag(sc.Words, "--no-verify") {
						return true
					}
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "git --no-verify skips the project's hooks. Run the command without --no-verify\n" +
				"and fix whatever the hooks report instead of bypassing them."
		},
	}
}

func hookSkipEnvGuard() Guard {
	skipVars := map[string]string{
		"HUSKY":                      "0",
		"PRE_COMMIT_ALLOW_NO_CONFIG": "1",
		"LEFTHOOK":                   "0",
	}
	return Guard{
		Name:       "hook-skip-env",
		Priority:   11,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return true
			}
			for _, sc := range cmds {
				for name, val := range sc.Assigns {
					if want, known := skipVars[name]; known && val == want {
						return true
					}
					if name == "SKIP" && val != "" {
						return true
					}
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "Environment variables like HUSKY=0 and SKIP=... disable commit hooks.\n" +
				"Run the command without the hook-skipping variable."
		},
	}
}

func historyRewriteGuard() Guard {
	return Guard{
		Name:       "history-rewrite",
		Priority:   12,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return true
			}
			for _, sc := range cmds {
				if len(sc.Words) == 0 || base(sc.Words[0]) != "git" {
					continue
				}
				switch subcommand(sc.Words) {
				case "push":
					if hasFlag(sc.Words, "--force", "-f") {
						return true
					}
				case "reset":
					if hasFlag(sc.Words, "--hard") {
						return true
					}
				case "filter-branch":
					return true
				case "rebase":
					// Rebasing a published branch rewrites shared history.
					for _, w := range sc.Words[1:] {
						if w == "main" || w == "master" || strings.HasPrefix(w, "origin/") {
							return true
						}
					}
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "This command rewrites published history destructively.\n" +
				"Prefer git revert, or git push --force-with-lease after coordinating."
		},
	}
}

func unsafeRestartGuard() Guard {
	return Guard{
		Name:       "unsafe-restart",
		Priority:   20,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return true
			}
			for _, sc := range cmds {
				if len(sc.Words) == 0 || base(sc.Words[0]) != "docker" {
					continue
				}
				sub := subcommand(sc.Words)
				if sub == "restart" {
					return true
				}
				if sub == "compose" && nextSubcommand(sc.Words, "compose") == "restart" {
					return true
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "restart reuses the old image, so code changes are silently dropped.\n" +
				"Use `docker compose up -d --build <service>` to rebuild and restart."
		},
	}
}

func composeBypassGuard(opts RuleOptions) Guard {
	lifecycle := map[string]bool{
		"run": true, "start": true, "stop": true, "rm": true, "create": true, "kill": true,
	}
	return Guard{
		Name:       "compose-bypass",
		Priority:   21,
		Class:      Blocking,
		Bypassable: true,
		Default:    PolicyBlock,
		Trigger: func(inv *invocation.Invocation) bool {
			if !opts.RequireCompose {
				return false
			}
			cmds, ok := commandsOf(inv)
			if !ok {
				return true
			}
			for _, sc := range cmds {
				if len(sc.Words) == 0 || base(sc.Words[0]) != "docker" {
					continue
				}
				if lifecycle[subcommand(sc.Words)] {
					return true
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "This project mandates docker compose for container lifecycle.\n" +
				"Use the compose equivalent (`docker compose up/down/run`) instead of bare docker."
		},
	}
}

// nextSubcommand returns the first non-flag word after the given subcommand.
func nextSubcommand(words []string, after string) string {
	seen := false
	for _, w := range words[1:] {
		if strings.HasPrefix(w, "-") {
			continue
		}
		if seen {
			return strings.ToLower(w)
		}
		if strings.EqualFold(w, after) {
			seen = true
		}
	}
	return ""
}

func forceWithLeaseAdvisory() Guard {
	return Guard{
		Name:       "force-with-lease-reminder",
		Priority:   90,
		Class:      Advisory,
		Bypassable: true,
		Default:    PolicyAllow,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return false
			}
			for _, sc := range cmds {
				if len(sc.Words) > 0 && base(sc.Words[0]) == "git" &&
					subcommand(sc.Words) == "push" && hasFlag(sc.Words, "--force-with-lease") {
					return true
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "Reminder: --force-with-lease still rewrites the remote branch; make sure collaborators know."
		},
	}
}

func recursiveDeleteAdvisory() Guard {
	return Guard{
		Name:       "recursive-delete-reminder",
		Priority:   91,
		Class:      Advisory,
		Bypassable: true,
		Default:    PolicyAllow,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return false
			}
			for _, sc := range cmds {
				if len(sc.Words) > 0 && base(sc.Words[0]) == "rm" &&
					hasFlag(sc.Words, "-r", "-rf", "-fr", "-R", "--recursive") {
					return true
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "Reminder: recursive delete; double-check the target path before relying on it."
		},
	}
}

func discardChangesAdvisory() Guard {
	return Guard{
		Name:       "discard-changes-reminder",
		Priority:   92,
		Class:      Advisory,
		Bypassable: true,
		Default:    PolicyAllow,
		Trigger: func(inv *invocation.Invocation) bool {
			cmds, ok := commandsOf(inv)
			if !ok {
				return false
			}
			for _, sc := range cmds {
				if len(sc.Words) == 0 || base(sc.Words[0]) != "git" {
					continue
				}
				switch subcommand(sc.Words) {
				case "checkout":
					if hasFlag(sc.Words, "--") || hasFlag(sc.Words, ".") {
						return true
					}
				case "restore":
					return true
				}
			}
			return false
		},
		Explain: func(inv *invocation.Invocation) string {
			return "Reminder: this discards uncommitted changes; they are not recoverable."
		},
	}
}
