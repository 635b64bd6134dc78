// Package cli provides the tributary command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
	"github.com/custodia-labs/tributary/internal/logger"
)

var version = "dev"

// Services bundles the driving ports used by the commands. Remote
// services are nil when no workspace credentials are configured.
type Services struct {
	Settings        driving.SettingsService
	Workspace       driving.WorkspaceService
	Catalog         driving.CatalogService
	Specs           driving.AssetSpecService
	Sync            driving.SyncExecutor
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig

	// Close releases resources such as the run history database.
	Close func() error
}

// BootstrapFunc builds services from the config directory.
type BootstrapFunc func(configDir string) (*Services, error)

var (
	settingsService  driving.SettingsService
	workspaceService driving.WorkspaceService
	catalogService   driving.CatalogService
	specService      driving.AssetSpecService
	syncExecutor     driving.SyncExecutor
	scheduler        driving.Scheduler
	schedulerConfig  domain.SchedulerConfig
	closeServices    func() error

	bootstrap    BootstrapFunc
	bootstrapped bool
)

var (
	verbose   bool
	configDir string
)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "tributary",
	Short: "Sync ELT connectors and describe their tables as assets",
	Long: `tributary mirrors the connectors of an ELT workspace, describes every
destination table as an asset for an orchestration graph, and runs
connector syncs to completion.

Credentials are read from the config file or from the TRIBUTARY_ACCOUNT_ID,
TRIBUTARY_API_KEY and TRIBUTARY_API_SECRET environment variables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.tributary)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices injects services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	settingsService = s.Settings
	workspaceService = s.Workspace
	catalogService = s.Catalog
	specService = s.Specs
	syncExecutor = s.Sync
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
	closeServices = s.Close
	bootstrapped = true
}

// SetBootstrap registers the function that builds services once flags are
// parsed.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipBootstrap] == "true" || bootstrap == nil || bootstrapped {
		return nil
	}

	s, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(s)
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("Closing services: %v", err)
			}
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
