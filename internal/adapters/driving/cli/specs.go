package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/tributary/internal/adapters/driven/overrides"
	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

var (
	specsOverrides string
	specsFormat    string
	specsConnector string
	specsWatch     bool
)

var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "Print asset specs for every destination table",
	Long: `Translates the connector catalog into asset specs, one per enabled
destination table, and prints them as YAML or JSON.

An overrides file adds metadata and upstream dependencies to matching
tables without changing asset keys. With --watch the specs are printed
again whenever the overrides file changes.`,
	Args: cobra.NoArgs,
	RunE: runSpecs,
}

func init() {
	specsCmd.Flags().StringVarP(&specsOverrides, "overrides", "o", "", "YAML overrides file")
	specsCmd.Flags().StringVarP(&specsFormat, "format", "f", "yaml", "output format (yaml, json)")
	specsCmd.Flags().StringVarP(&specsConnector, "connector", "c", "", "only print specs of this connector")
	specsCmd.Flags().BoolVarP(&specsWatch, "watch", "w", false, "reprint when the overrides file changes")
	rootCmd.AddCommand(specsCmd)
}

func runSpecs(cmd *cobra.Command, _ []string) error {
	if specService == nil {
		return errors.New("asset spec service not configured")
	}
	if specsFormat != "yaml" && specsFormat != "json" {
		return fmt.Errorf("unsupported format %q: use 'yaml' or 'json'", specsFormat)
	}
	if specsWatch && specsOverrides == "" {
		return errors.New("--watch requires --overrides")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if specsOverrides == "" {
		return printSpecs(ctx, cmd.OutOrStdout(), nil)
	}

	watcher, err := overrides.NewWatcher(specsOverrides)
	if err != nil {
		return fmt.Errorf("failed to load overrides: %w", err)
	}
	defer watcher.Close()

	if err := printSpecs(ctx, cmd.OutOrStdout(), watcher); err != nil {
		return err
	}
	if !specsWatch {
		return nil
	}

	updates, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch overrides: %w", err)
	}
	for range updates {
		if specsFormat == "yaml" {
			fmt.Fprintln(cmd.OutOrStdout(), "---")
		}
		if err := printSpecs(ctx, cmd.OutOrStdout(), watcher); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
	}
	return nil
}

func printSpecs(ctx context.Context, w io.Writer, ov driving.AssetSpecOverrides) error {
	specs, err := specService.Specs(ctx, ov)
	if err != nil {
		return fmt.Errorf("failed to build asset specs: %w", err)
	}

	if specsConnector != "" {
		filtered := make([]domain.AssetSpec, 0, len(specs))
		for i := range specs {
			if specs[i].ConnectorID == specsConnector {
				filtered = append(filtered, specs[i])
			}
		}
		specs = filtered
	}

	if specsFormat == "json" {
		data, err := json.MarshalIndent(specs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal specs: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(specs); err != nil {
		return fmt.Errorf("failed to marshal specs: %w", err)
	}
	return enc.Close()
}
