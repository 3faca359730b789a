package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/override"
	"github.com/hookgate/hookgate/internal/secret"
)

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretInitCmd)
	secretCmd.AddCommand(secretRotateCmd)
	secretCmd.AddCommand(secretURICmd)
	secretCmd.AddCommand(secretCodeCmd)
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the override TOTP secret",
	Long: "The secret lives in a single owner-only file and is shared with the\n" +
		"operator's authenticator app. Codes derived from it authorize\n" +
		"overrides of bypassable blocks.",
}

var secretInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the override secret",
	Long:  "Generates a fresh secret and writes it with owner-only permissions.\nRefuses to overwrite an existing secret; use rotate for that.",
	RunE:  runSecretInit,
}

var secretRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace the override secret",
	Long:  "Atomically replaces the secret. Old codes stop working immediately\nand no backup copy of the old secret is kept.",
	RunE:  runSecretRotate,
}

var secretURICmd = &cobra.Command{
	Use:   "uri",
	Short: "Print the otpauth:// provisioning URI",
	Long:  "Prints the otpauth URI for enrolling the secret in an authenticator\napp. Treat the output as the secret itself.",
	RunE:  runSecretURI,
}

var secretCodeCmd = &cobra.Command{
	Use:   "code",
	Short: "Print the current override code",
	Long:  "Prints the 6-digit code for the current 30-second step. Operator\nconvenience when no authenticator app is enrolled.",
	RunE:  runSecretCode,
}

func secretStore() (*secret.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return secret.NewStore(cfg.SecretFile), nil
}

func runSecretInit(cmd *cobra.Command, args []string) error {
	store, err := secretStore()
	if err != nil {
		return err
	}

	value, err := store.Init()
	if errors.Is(err, secret.ErrExists) {
		return fmt.Errorf("secret already exists at %s (use 'hookgate secret rotate' to replace it)", store.Path())
	}
	if err != nil {
		return err
	}

	fmt.Printf("Secret written to %s\n", store.Path())
	fmt.Println()
	fmt.Println("Enroll it in an authenticator app:")
	fmt.Printf("  %s\n", provisioningURI(value))
	fmt.Println()
	fmt.Println("Or fetch codes on demand with: hookgate secret code")
	return nil
}

func runSecretRotate(cmd *cobra.Command, args []string) error {
	store, err := secretStore()
	if err != nil {
		return err
	}

	value, err := store.Rotate()
	if errors.Is(err, secret.ErrNotFound) {
		return fmt.Errorf("no secret to rotate (run 'hookgate secret init' first)")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Secret rotated at %s\n", store.Path())
	fmt.Println("Previously issued codes are now invalid. Re-enroll:")
	fmt.Printf("  %s\n", provisioningURI(value))
	return nil
}

func runSecretURI(cmd *cobra.Command, args []string) error {
	store, err := secretStore()
	if err != nil {
		return err
	}

	value, err := store.Read()
	if err != nil {
		return err
	}

	fmt.Println(provisioningURI(value))
	return nil
}

func runSecretCode(cmd *cobra.Command, args []string) error {
	store, err := secretStore()
	if err != nil {
		return err
	}

	code, err := override.NewAuthorizer(store).CurrentCode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot derive code: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(code)
	return nil
}

// provisioningURI formats the standard otpauth URI for the stored secret.
func provisioningURI(secretValue string) string {
	q := url.Values{}
	q.Set("secret", secretValue)
	q.Set("issuer", "hookgate")
	q.Set("period", fmt.Sprintf("%d", override.Period))
	q.Set("digits", "6")
	q.Set("algorithm", "SHA1")
	return "otpauth://totp/hookgate:operator?" + q.Encode()
}
