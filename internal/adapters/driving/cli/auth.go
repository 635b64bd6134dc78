package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage workspace credentials",
	Long: `Store and verify the API credentials of the ELT workspace.

The API key and secret are sent as HTTP Basic auth on every request. The
account ID pins the credentials to one workspace.

Examples:
  # Store credentials, prompting for the secret
  tributary auth set --account-id acc_123 --api-key key_abc

  # Check the stored credentials against the API
  tributary auth check`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store workspace credentials",
	Long: `Store the account ID, API key and API secret in the config file.

The secret is prompted for without echo when --api-secret is not given.`,
	RunE: runAuthSet,
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials against the API",
	RunE:  runAuthCheck,
}

var (
	authAccountID string
	authAPIKey    string
	authAPISecret string
	authBaseURL   string
)

func init() {
	authSetCmd.Flags().StringVar(&authAccountID, "account-id", "", "workspace account ID")
	authSetCmd.Flags().StringVar(&authAPIKey, "api-key", "", "API key")
	authSetCmd.Flags().StringVar(&authAPISecret, "api-secret", "", "API secret (prompted when omitted)")
	authSetCmd.Flags().StringVar(&authBaseURL, "base-url", "", "API base URL (default "+domain.DefaultBaseURL+")")
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authCheckCmd)
	rootCmd.AddCommand(authCmd)
}

// promptSecret reads a secret from the terminal. Tests replace it.
var promptSecret = func(cmd *cobra.Command, label string) string {
	cmd.Printf("%s: ", label)
	secret := readPassword()
	cmd.Println()
	return secret
}

func runAuthSet(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	secret := authAPISecret
	if secret == "" {
		secret = promptSecret(cmd, "API secret")
	}

	creds := domain.WorkspaceCredentials{
		AccountID: strings.TrimSpace(authAccountID),
		APIKey:    strings.TrimSpace(authAPIKey),
		APISecret: strings.TrimSpace(secret),
	}
	if err := settingsService.SetCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	if cmd.Flags().Changed("base-url") {
		if err := settingsService.SetBaseURL(authBaseURL); err != nil {
			return fmt.Errorf("failed to save base URL: %w", err)
		}
	}

	cmd.Printf("Credentials saved for account %s (key %s).\n", creds.AccountID, creds.MaskedKey())
	cmd.Println("Run 'tributary auth check' to verify them.")
	return nil
}

func runAuthCheck(cmd *cobra.Command, _ []string) error {
	if workspaceService == nil {
		return errors.New("workspace not configured: run 'tributary auth set' first")
	}

	account, err := workspaceService.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	name := account.AccountName
	if name == "" {
		name = "unnamed"
	}
	cmd.Printf("Authenticated against account %s (%s).\n", account.AccountID, name)
	return nil
}
