// Package invocation normalizes a raw tool-call payload into an immutable
// Invocation record. Extraction tries sources in a fixed priority order:
// JSON on stdin, then environment variables, then positional arguments.
// Sources are never merged; the winning source is recorded for audit.
package invocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// ErrMalformedInput is returned when no extraction path yields a usable
// payload. Callers map this to exit code 1, never to a policy decision.
var ErrMalformedInput = errors.New("invocation: no parsable payload on any extraction path")

// Source identifies which extraction path produced the Invocation.
type Source string

const (
	SourceStdinJSON   Source = "stdin-json"
	SourceEnvironment Source = "environment"
	SourceArguments   Source = "arguments"
)

// Environment variable names for the fallback extraction path.
const (
	EnvToolName = "HOOKGATE_TOOL_NAME"
	EnvCommand  = "HOOKGATE_COMMAND"
	EnvFilePath = "HOOKGATE_FILE_PATH"
)

// Invocation is one normalized tool call under evaluation.
// Immutable once constructed; guards read it, nothing writes it.
type Invocation struct {
	ID          string
	ToolName    string
	Command     string
	FilePath    string
	Raw         map[string]any
	Source      Source
	Interactive bool
}

// payload is the primary stdin JSON shape:
// {"tool_name": "Bash", "tool_input": {"command": "...", "file_path": "..."}}
type payload struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

// Extract builds an Invocation from stdin, falling back to environment
// variables and then positional arguments. When stdin JSON parses it is
// authoritative and fallbacks are not consulted.
func Extract(stdin io.Reader, env func(string) string, args []string, interactive bool) (*Invocation, error) {
	inv := &Invocation{
		ID:          "inv-" + uuid.NewString(),
		Interactive: interactive,
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("invocation: read stdin: %w", err)
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		var p payload
		if jsonErr := json.Unmarshal(data, &p); jsonErr == nil && p.ToolName != "" {
			inv.Source = SourceStdinJSON
			inv.ToolName = p.ToolName
			inv.Raw = p.ToolInput
			inv.Command = stringField(p.ToolInput, "command")
			inv.FilePath = stringField(p.ToolInput, "file_path")
			return inv, nil
		}
		// Malformed or incomplete JSON: fall through to the secondary
		// sources. The fallback usage is visible in inv.Source.
	}

	if env != nil {
		if tool := env(EnvToolName); tool != "" {
			inv.Source = SourceEnvironment
			inv.ToolName = tool
			inv.Command = env(EnvCommand)
			inv.FilePath = env(EnvFilePath)
			return inv, nil
		}
	}

	if len(args) > 0 && args[0] != "" {
		inv.Source = SourceArguments
		inv.ToolName = args[0]
		if len(args) > 1 {
			inv.Command = args[1]
		}
		if len(args) > 2 {
			inv.FilePath = args[2]
		}
		return inv, nil
	}

	return nil, ErrMalformedInput
}

// IsInteractive reports whether stdin, stdout, and stderr are all attached
// to a terminal. Probed once per process; each process is short-lived.
func IsInteractive() bool {
	for _, f := range []*os.File{os.Stdin, os.Stdout, os.Stderr} {
		fd := f.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false
		}
	}
	return true
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
