// Package main is the entry point for the tributary CLI binary.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/tributary/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tributary/internal/adapters/driven/storage/instrumented"
	"github.com/custodia-labs/tributary/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tributary/internal/adapters/driving/cli"
	"github.com/custodia-labs/tributary/internal/connectors/fivetran"
	"github.com/custodia-labs/tributary/internal/core/services"
	"github.com/custodia-labs/tributary/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	os.Exit(cli.Execute())
}

// bootstrap wires the driven adapters into the core services. Only the
// settings service is available until credentials are configured.
func bootstrap(configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	s := &cli.Services{
		Settings:        settingsService,
		SchedulerConfig: settings.Scheduler,
	}

	if err := settings.Workspace.Credentials.Validate(); err != nil {
		logger.Debug("Remote services disabled: %v", err)
		return s, nil
	}

	client, err := fivetran.NewClient(fivetran.ConfigFromSettings(*settings))
	if err != nil {
		return nil, fmt.Errorf("creating workspace client: %w", err)
	}
	elt := fivetran.NewService(client)

	store, err := sqlite.NewStore(filepath.Join(configDir, "data"))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	runs := instrumented.NewSyncRunStore(store.SyncRunStore(), prometheus.DefaultRegisterer)

	catalog := services.NewCatalogLoader(elt)
	executor := services.NewSyncExecutor(elt, runs, settings.Sync)

	s.Workspace = services.NewWorkspaceService(elt, client.AccountID())
	s.Catalog = catalog
	s.Specs = services.NewAssetSpecTranslator(catalog)
	s.Sync = executor
	s.Scheduler = services.NewScheduler(settings.Scheduler, store.SchedulerStore(), catalog, executor)
	s.Close = func() error {
		return errors.Join(store.Close(), client.Close())
	}

	logger.Debug("Run history at %s", store.Path())
	return s, nil
}
