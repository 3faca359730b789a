// Package mcp exposes guard evaluation over the Model Context Protocol so
// agents can dry-run tool calls before issuing them. The server never
// executes anything; it answers what the hook would decide.
package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/guard"
)

// Config holds MCP server configuration.
type Config struct {
	ConfigPath string
}

// Server wraps the MCP SDK server around a guard registry. The registry is
// swapped atomically on config hot-reload.
type Server struct {
	mcpServer *mcpsdk.Server
	cfgPath   string
	mu        sync.RWMutex
	registry  *guard.Registry
	cfg       *config.Config
}

// New creates an MCP server with a registry built from configuration.
func New(cfg Config) (*Server, error) {
	s := &Server{cfgPath: cfg.ConfigPath}
	if err := s.Reload(); err != nil {
		return nil, err
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "hookgate",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Reload rebuilds the registry from the config file. Used at startup and by
// the file watcher.
func (s *Server) Reload() error {
	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		return fmt.Errorf("mcp: load config: %w", err)
	}
	reg, err := guard.DefaultRegistry(guard.RuleOptions{
		InstallPaths:   cfg.InstallPaths,
		AuditLogPath:   cfg.AuditLog,
		SecretPath:     cfg.SecretFile,
		ManagedPaths:   cfg.ManagedPaths,
		RequireCompose: cfg.RequireCompose,
		Disabled:       cfg.DisabledGuards,
		Priorities:     cfg.Priorities,
	})
	if err != nil {
		return fmt.Errorf("mcp: build registry: %w", err)
	}

	s.mu.Lock()
	s.registry = reg
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *Server) snapshot() (*guard.Registry, *config.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry, s.cfg
}

// registerTools adds the hookgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_check",
		Description: "Check whether a tool invocation would be allowed by hookgate policy without executing it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_status",
		Description: "List the registered guards and the active configuration paths.",
	}, s.handleStatus)
}
