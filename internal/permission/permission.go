// Package permission maps execution context to a prompt-or-default action.
// Pure functions only; all I/O (prompting, reading answers) happens in the
// engine so this stays trivially testable without a terminal.
package permission

import "github.com/hookgate/hookgate/internal/guard"

// Mode is what the engine should do about a triggered guard.
type Mode string

const (
	// Prompt asks the human and maps their answer to Allow/Block.
	Prompt Mode = "prompt"
	// Allow lets the invocation proceed (with a logged warning).
	Allow Mode = "allow"
	// Block stops the invocation.
	Block Mode = "block"
)

// Resolve decides between prompting and applying the guard's default.
// Interactive sessions always prompt; non-interactive sessions get the
// guard's declared default, which is Block for every genuinely dangerous
// guard (safety-first) and Allow only for advisory defaults.
func Resolve(interactive bool, def guard.Policy) Mode {
	if interactive {
		return Prompt
	}
	if def == guard.PolicyAllow {
		return Allow
	}
	return Block
}
