package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hookgate/hookgate/internal/invocation"
)

// CheckInput defines parameters for the hookgate_check tool.
type CheckInput struct {
	ToolName string `json:"tool_name" jsonschema:"tool being invoked (Bash/Edit/Write/...)"`
	Command  string `json:"command,omitempty" jsonschema:"shell command, for command tools"`
	FilePath string `json:"file_path,omitempty" jsonschema:"target path, for file tools"`
}

// CheckOutput contains the dry-run decision.
type CheckOutput struct {
	Decision   string   `json:"decision"`
	Guard      string   `json:"guard,omitempty"`
	Bypassable bool     `json:"bypassable,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Advisories []string `json:"advisories,omitempty"`
}

// StatusInput is empty; the status tool takes no parameters.
type StatusInput struct{}

// StatusOutput lists the active guards and paths.
type StatusOutput struct {
	Guards     []GuardInfo `json:"guards"`
	AuditLog   string      `json:"audit_log"`
	SecretFile string      `json:"secret_file"`
}

// GuardInfo describes one registered guard.
type GuardInfo struct {
	Name       string `json:"name"`
	Priority   int    `json:"priority"`
	Class      string `json:"class"`
	Bypassable bool   `json:"bypassable"`
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	reg, _ := s.snapshot()

	inv := &invocation.Invocation{
		ID:       "mcp-dry-run",
		ToolName: input.ToolName,
		Command:  input.Command,
		FilePath: input.FilePath,
		Source:   invocation.SourceArguments,
	}

	ev := reg.Evaluate(inv)

	out := CheckOutput{Decision: "allow"}
	for _, note := range ev.Advisories {
		out.Advisories = append(out.Advisories, note.Message)
	}
	if ev.Blocked != nil {
		out.Decision = "block"
		out.Guard = ev.Blocked.Name
		out.Bypassable = ev.Blocked.Bypassable
		out.Reason = ev.Message
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	reg, cfg := s.snapshot()

	out := StatusOutput{
		AuditLog:   cfg.AuditLog,
		SecretFile: cfg.SecretFile,
	}
	for _, g := range reg.Guards() {
		out.Guards = append(out.Guards, GuardInfo{
			Name:       g.Name,
			Priority:   g.Priority,
			Class:      string(g.Class),
			Bypassable: g.Bypassable,
		})
	}
	return nil, out, nil
}
