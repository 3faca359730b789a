package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hookgate/hookgate/internal/guard"
	"github.com/hookgate/hookgate/internal/invocation"
)

func evaluateForTest(t *testing.T, command string) guard.Evaluation {
	t.Helper()
	registry, err := guard.DefaultRegistry(guard.RuleOptions{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry.Evaluate(&invocation.Invocation{
		ToolName: "Bash",
		Command:  command,
		Source:   invocation.SourceArguments,
	})
}

func TestRenderCheckTextAdvisories(t *testing.T) {
	ev := evaluateForTest(t, "rm -rf build/")
	if ev.Blocked != nil {
		t.Fatalf("expected allow, blocked by %q", ev.Blocked.Name)
	}

	out := renderCheckText(ev)
	if !strings.Contains(out, "advisory (recursive-delete-reminder):") {
		t.Errorf("expected advisory line naming the guard, got:\n%s", out)
	}
	if !strings.Contains(out, "ALLOW") {
		t.Errorf("expected ALLOW verdict, got:\n%s", out)
	}
}

func TestRenderCheckTextBlock(t *testing.T) {
	ev := evaluateForTest(t, "git commit --no-verify -m x")
	out := renderCheckText(ev)

	if !strings.Contains(out, "BLOCK by verify-bypass") {
		t.Errorf("expected block header, got:\n%s", out)
	}
	if !strings.Contains(out, "Bypassable with an authenticated override.") {
		t.Errorf("expected bypassable note, got:\n%s", out)
	}
}

func TestRenderCheckJSONBlock(t *testing.T) {
	ev := evaluateForTest(t, "git push --force origin main")
	out, err := renderCheckJSON(ev)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var parsed struct {
		Decision   string `json:"decision"`
		Guard      string `json:"guard"`
		Bypassable bool   `json:"bypassable"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("JSON output not valid: %v", err)
	}
	if parsed.Decision != "block" {
		t.Errorf("expected decision block, got %q", parsed.Decision)
	}
	if parsed.Guard != "history-rewrite" {
		t.Errorf("expected history-rewrite guard, got %q", parsed.Guard)
	}
	if !parsed.Bypassable {
		t.Error("history-rewrite should be bypassable")
	}
}

func TestRunCheckAdvisoryOutput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	checkTool = "Bash"
	checkCommand = "rm -rf build/"
	checkFile = ""
	checkFormat = "text"

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	runErr := runCheck(nil, nil)

	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)

	if runErr != nil {
		t.Fatalf("runCheck: %v", runErr)
	}
	if !strings.Contains(string(out), "advisory (recursive-delete-reminder):") {
		t.Errorf("expected advisory in output, got:\n%s", out)
	}
	if !strings.Contains(string(out), "ALLOW") {
		t.Errorf("expected ALLOW in output, got:\n%s", out)
	}
}
