// Package engine orchestrates one invocation through extraction, guard
// evaluation, permission resolution, optional override authorization, and
// auditing. Every path terminates in exactly one Decision; failures inside
// guards or override validation resolve to BLOCK, failures in auditing are
// reported but never change the Decision.
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hookgate/hookgate/internal/audit"
	"github.com/hookgate/hookgate/internal/guard"
	"github.com/hookgate/hookgate/internal/invocation"
	"github.com/hookgate/hookgate/internal/override"
	"github.com/hookgate/hookgate/internal/permission"
)

// EnvOverrideCode carries the TOTP code on the non-interactive path.
const EnvOverrideCode = "HOOK_OVERRIDE_CODE"

// Decision is the terminal outcome for one invocation.
type Decision string

const (
	Allow             Decision = "allow"
	Block             Decision = "block"
	AllowWithOverride Decision = "allow_with_override"
)

// State names the evaluation phases, recorded in order for each run.
type State string

const (
	StateReceived           State = "received"
	StateParsed             State = "parsed"
	StateEvaluating         State = "evaluating"
	StateBlocked            State = "blocked"
	StateAllowed            State = "allowed"
	StateOverrideRequested  State = "override_requested"
	StateValidatingOverride State = "validating_override"
	StateAllowedOverride    State = "allowed_with_override"
	StateAudited            State = "audited"
	StateTerminal           State = "terminal"
)

// Exit codes: 0 allow (including override), 2 block, 1 internal error.
// Callers must not treat 1 and 2 interchangeably.
const (
	ExitAllow         = 0
	ExitInternalError = 1
	ExitBlock         = 2
)

// Result is one terminal Decision plus everything the audit trail needs.
type Result struct {
	Decision          Decision
	ExitCode          int
	Guard             string
	Message           string
	Advisories        []guard.AdvisoryNote
	HumanApproved     bool
	OverrideAttempted bool
	OverrideOK        bool
	States            []State
}

// Engine evaluates invocations. All I/O is injectable; the zero reader
// falls back to /dev/tty for interactive prompts since stdin holds the
// payload.
type Engine struct {
	Registry *guard.Registry
	Auth     *override.Authorizer
	Log      *audit.Log // nil disables auditing (dry-run)
	PromptIn io.Reader
	Out      io.Writer
	Err      io.Writer

	// OverrideCode is the submitted one-time code, normally from
	// HOOK_OVERRIDE_CODE. Empty means no override attempt.
	OverrideCode string
}

// Evaluate runs the state machine for one parsed Invocation.
func (e *Engine) Evaluate(inv *invocation.Invocation) Result {
	res := Result{States: []State{StateReceived, StateParsed, StateEvaluating}}

	ev := e.Registry.Evaluate(inv)
	res.Advisories = ev.Advisories
	for _, note := range ev.Advisories {
		fmt.Fprintf(e.stderr(), "hookgate: %s\n", note.Message)
	}

	if ev.Blocked == nil {
		res.Decision = Allow
		res.States = append(res.States, StateAllowed)
		e.finish(inv, &res)
		return res
	}

	res.Guard = ev.Blocked.Name
	res.Message = ev.Message

	switch permission.Resolve(inv.Interactive, ev.Blocked.Default) {
	case permission.Allow:
		// Advisory default in non-interactive mode: proceed, but the
		// triggered guard is still on the record.
		fmt.Fprintf(e.stderr(), "hookgate: warning: %s\n", ev.Message)
		res.Decision = Allow
		res.States = append(res.States, StateAllowed)

	case permission.Prompt:
		if e.promptYes(ev.Blocked, ev.Message) {
			res.Decision = Allow
			res.HumanApproved = true
			res.States = append(res.States, StateAllowed)
			fmt.Fprintf(e.stderr(), "hookgate: proceeding on human approval (guard %s)\n", ev.Blocked.Name)
		} else {
			res.Decision = Block
			res.States = append(res.States, StateBlocked)
			e.printBlock(ev.Blocked, ev.Message)
		}

	default: // permission.Block
		res.States = append(res.States, StateBlocked)
		if e.OverrideCode == "" {
			res.Decision = Block
			e.printBlock(ev.Blocked, ev.Message)
			break
		}

		res.OverrideAttempted = true
		res.States = append(res.States, StateOverrideRequested, StateValidatingOverride)
		err := e.Auth.Authorize(e.OverrideCode, *ev.Blocked)
		switch {
		case err == nil:
			res.Decision = AllowWithOverride
			res.OverrideOK = true
			res.States = append(res.States, StateAllowedOverride)
			fmt.Fprintf(e.stderr(), "hookgate: override accepted for guard %s\n", ev.Blocked.Name)
		case errors.Is(err, override.ErrNonBypassable):
			res.Decision = Block
			res.Message = fmt.Sprintf("%s\nThis guard is not bypassable; the override was rejected.", ev.Message)
			e.printBlock(ev.Blocked, res.Message)
		default:
			res.Decision = Block
			res.Message = fmt.Sprintf("%s\nOverride denied: the supplied code was not accepted.", ev.Message)
			e.printBlock(ev.Blocked, res.Message)
		}
	}

	e.finish(inv, &res)
	return res
}

// finish audits the result and assigns the exit code. Audit failures are
// reported to stderr but never alter the Decision.
func (e *Engine) finish(inv *invocation.Invocation, res *Result) {
	if e.Log != nil {
		entry := audit.Entry{
			Timestamp:         time.Now().UTC().Format(audit.TimestampFormat),
			InvocationID:      inv.ID,
			Source:            string(inv.Source),
			Tool:              inv.ToolName,
			Command:           inv.Command,
			FilePath:          inv.FilePath,
			Guard:             res.Guard,
			Decision:          string(res.Decision),
			Reason:            res.Message,
			OverrideAttempted: res.OverrideAttempted,
			OverrideOK:        res.OverrideOK,
			HumanApproved:     res.HumanApproved,
		}
		if err := e.Log.Record(entry); err != nil {
			fmt.Fprintf(e.stderr(), "hookgate: warning: audit write failed: %v\n", err)
		}
	}
	res.States = append(res.States, StateAudited, StateTerminal)

	switch res.Decision {
	case Block:
		res.ExitCode = ExitBlock
	default:
		res.ExitCode = ExitAllow
	}

	if e.Out != nil {
		fmt.Fprintf(e.Out, "hookgate: %s\n", res.Decision)
	}
}

// promptYes asks the human whether to proceed. EOF, read errors, and
// anything but yes map to no; an aborted prompt must block, never allow.
func (e *Engine) promptYes(g *guard.Guard, message string) bool {
	fmt.Fprintf(e.stderr(), "hookgate: guard %s triggered:\n%s\n", g.Name, message)
	fmt.Fprintf(e.stderr(), "Proceed anyway? [y/N] ")

	in := e.PromptIn
	if in == nil {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return false
		}
		defer tty.Close()
		in = tty
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// printBlock writes the explanation and, for bypassable guards, the exact
// override invocation syntax.
func (e *Engine) printBlock(g *guard.Guard, message string) {
	fmt.Fprintf(e.stderr(), "hookgate: BLOCKED by guard %s\n%s\n", g.Name, message)
	if g.Bypassable {
		fmt.Fprintf(e.stderr(), "To override with operator approval, re-run with %s=<6-digit code>\n", EnvOverrideCode)
	}
}

func (e *Engine) stderr() io.Writer {
	if e.Err != nil {
		return e.Err
	}
	return os.Stderr
}
