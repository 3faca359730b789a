package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/secret"
)

var (
	initForce      bool
	initWithSecret bool
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().BoolVar(&initWithSecret, "with-secret", false, "Also generate the override secret")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the hookgate configuration directory",
	Long: `Creates ~/.hookgate with a commented config.yaml.

With --with-secret also provisions the override TOTP secret, equivalent
to running 'hookgate secret init' afterwards.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var created []string

	cfgPath := filepath.Join(dir, "config.yaml")
	if wrote, err := writeIfMissing(cfgPath, config.DefaultYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, cfgPath)
	}

	if initWithSecret {
		store := secret.NewStore(config.Default().SecretFile)
		value, err := store.Init()
		switch err {
		case nil:
			created = append(created, store.Path())
			fmt.Println("Override secret provisioned. Enroll it:")
			fmt.Printf("  %s\n", provisioningURI(value))
			fmt.Println()
		case secret.ErrExists:
			fmt.Println("Override secret already exists, keeping it.")
			fmt.Println()
		default:
			return err
		}
	}

	fmt.Println("hookgate init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite the config).")
		fmt.Println()
	}

	fmt.Println("Verify:")
	fmt.Println("  hookgate doctor")
	fmt.Println()
	fmt.Println("Dry-run a command:")
	fmt.Println("  hookgate check --command 'git commit --no-verify'")

	return nil
}

// writeIfMissing writes content to path unless it exists and --force is off.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
