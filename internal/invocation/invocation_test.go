package invocation

import (
	"errors"
	"strings"
	"testing"
)

func noEnv(string) string { return "" }

func TestExtractStdinJSON(t *testing.T) {
	stdin := strings.NewReader(`{"tool_name":"Bash","tool_input":{"command":"git status"}}`)

	inv, err := Extract(stdin, noEnv, nil, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.Source != SourceStdinJSON {
		t.Errorf("expected stdin-json source, got %q", inv.Source)
	}
	if inv.ToolName != "Bash" || inv.Command != "git status" {
		t.Errorf("wrong fields: %+v", inv)
	}
	if !strings.HasPrefix(inv.ID, "inv-") {
		t.Errorf("expected inv- prefixed id, got %q", inv.ID)
	}
}

func TestExtractFilePathTool(t *testing.T) {
	stdin := strings.NewReader(`{"tool_name":"Edit","tool_input":{"file_path":"/etc/app.conf"}}`)

	inv, err := Extract(stdin, noEnv, nil, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.FilePath != "/etc/app.conf" || inv.Command != "" {
		t.Errorf("wrong fields: %+v", inv)
	}
}

func TestExtractPreservesRawInput(t *testing.T) {
	stdin := strings.NewReader(`{"tool_name":"Bash","tool_input":{"command":"ls","timeout":5}}`)

	inv, err := Extract(stdin, noEnv, nil, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, ok := inv.Raw["timeout"]; !ok {
		t.Error("extra tool_input fields should survive in Raw")
	}
}

func TestExtractFallsBackToEnvironment(t *testing.T) {
	env := func(key string) string {
		switch key {
		case EnvToolName:
			return "Bash"
		case EnvCommand:
			return "make test"
		}
		return ""
	}

	inv, err := Extract(strings.NewReader(""), env, nil, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.Source != SourceEnvironment {
		t.Errorf("expected environment source, got %q", inv.Source)
	}
	if inv.Command != "make test" {
		t.Errorf("wrong command: %q", inv.Command)
	}
}

func TestExtractMalformedJSONFallsThrough(t *testing.T) {
	env := func(key string) string {
		if key == EnvToolName {
			return "Bash"
		}
		return ""
	}

	inv, err := Extract(strings.NewReader(`{"tool_name": `), env, nil, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.Source != SourceEnvironment {
		t.Errorf("malformed stdin should fall through to env, got %q", inv.Source)
	}
}

func TestExtractFallsBackToArguments(t *testing.T) {
	inv, err := Extract(strings.NewReader(""), noEnv, []string{"Bash", "rm -rf /tmp/x", ""}, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.Source != SourceArguments {
		t.Errorf("expected arguments source, got %q", inv.Source)
	}
	if inv.ToolName != "Bash" || inv.Command != "rm -rf /tmp/x" {
		t.Errorf("wrong fields: %+v", inv)
	}
}

func TestExtractStdinWinsOverFallbacks(t *testing.T) {
	env := func(key string) string {
		if key == EnvToolName {
			return "FromEnv"
		}
		return ""
	}
	stdin := strings.NewReader(`{"tool_name":"FromStdin","tool_input":{}}`)

	inv, err := Extract(stdin, env, []string{"FromArgs"}, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.ToolName != "FromStdin" {
		t.Errorf("stdin should win, got %q", inv.ToolName)
	}
}

func TestExtractNothingUsable(t *testing.T) {
	_, err := Extract(strings.NewReader(""), noEnv, nil, false)
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}

	_, err = Extract(strings.NewReader("not json at all"), noEnv, nil, false)
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("garbage with no fallbacks: expected ErrMalformedInput, got %v", err)
	}
}
