package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show application settings",
	Long: `Show the effective settings: workspace identity, sync tuning, client
limits and scheduled tasks.

Values come from the config file, with environment variables taking
precedence for workspace identity.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Show default settings",
	RunE:  runSettingsDefaults,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsDefaultsCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()
	printSettings(cmd, settings)

	if err := settings.Workspace.Credentials.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'tributary auth set' to configure the workspace.")
	}
	return nil
}

func runSettingsDefaults(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	defaults := settingsService.GetDefaults()

	cmd.Println("Default Settings")
	cmd.Println("================")
	cmd.Println()
	printSettings(cmd, &defaults)
	return nil
}

func printSettings(cmd *cobra.Command, settings *domain.AppSettings) {
	creds := settings.Workspace.Credentials

	cmd.Println("[Workspace]")
	cmd.Printf("  Account ID: %s\n", valueOrUnset(creds.AccountID))
	if creds.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(creds.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	if creds.APISecret != "" {
		cmd.Printf("  API Secret: ****\n")
	} else {
		cmd.Printf("  API Secret: (not set)\n")
	}
	cmd.Printf("  Base URL: %s\n", settings.Workspace.BaseURL)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Poll interval: %s\n", settings.Sync.PollInterval)
	cmd.Printf("  Timeout: %s\n", settings.Sync.Timeout)
	cmd.Printf("  Parallelism: %d\n", settings.Sync.Parallelism)
	cmd.Println()

	cmd.Println("[Client]")
	cmd.Printf("  Max retries: %d\n", settings.Client.MaxRetries)
	cmd.Printf("  Requests per second: %g\n", settings.Client.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Scheduler]")
	if !settings.Scheduler.Enabled {
		cmd.Printf("  Enabled: no\n")
		cmd.Println()
		return
	}
	cmd.Printf("  Enabled: yes\n")
	ids := make([]string, 0, len(settings.Scheduler.TaskConfigs))
	for id := range settings.Scheduler.TaskConfigs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cmd.Printf("  %s: %s\n", id, describeTask(settings.Scheduler.TaskConfigs[id]))
	}
	cmd.Println()
}

func describeTask(cfg domain.TaskConfig) string {
	switch {
	case !cfg.Enabled:
		return "disabled"
	case cfg.Cron != "":
		return "cron " + cfg.Cron
	default:
		return "every " + cfg.Interval.String()
	}
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
