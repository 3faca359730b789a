package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/integrity"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hookgate",
	Short: "Guard evaluation for AI coding assistant tool calls",
	Long: "Intercepts tool invocations before execution, evaluates them against\n" +
		"an ordered guard registry, and allows, blocks, or blocks-with-override.\n" +
		"Every decision lands in a hash-chained audit log.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := integrity.Verify(); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(78) // EX_CONFIG
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.hookgate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
