package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/config"
	hookmcp "github.com/hookgate/hookgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs hookgate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes hookgate_check (dry-run a tool call) and hookgate_status\n" +
		"(list registered guards). The config file is hot-reloaded on change.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := hookmcp.New(hookmcp.Config{ConfigPath: configPath})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath()
	}
	reloader, err := hookmcp.NewReloader(srv, watchPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: config hot-reload disabled: %v\n", err)
	} else {
		go reloader.Run(ctx)
	}

	fmt.Fprintln(os.Stderr, "hookgate MCP server running on stdio")
	return srv.Run(ctx)
}
