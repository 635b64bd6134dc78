package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive sync dashboard",
	Long: `Launch the terminal dashboard for tributary.

The dashboard lists the workspace connectors and shows the live state of
every sync started from it.

Controls:
  ↑/k, ↓/j - Navigate connectors
  s/Enter  - Sync selected connector
  a        - Sync all active connectors
  r        - Reload the catalog
  ?        - Toggle help
  q        - Quit (cancels running syncs)`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if catalogService == nil || syncExecutor == nil {
		return errors.New("workspace not configured: run 'tributary auth set' first")
	}

	app, err := tui.NewApp(&tui.Ports{
		Catalog: catalogService,
		Sync:    syncExecutor,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
