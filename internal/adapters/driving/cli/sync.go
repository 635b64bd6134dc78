package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

var (
	syncAll          bool
	syncTimeout      time.Duration
	syncPollInterval time.Duration
	syncQuiet        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [connector-id...]",
	Short: "Sync connectors and wait for them to finish",
	Long: `Triggers a sync of each connector and polls until the remote service
reports success or failure, or the timeout is reached.

Distinct connectors sync concurrently. Interrupting the command cancels the
remote syncs on a best-effort basis. The command fails if any run did not
succeed.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every active connector")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 0, "give up polling after this long (default from settings)")
	syncCmd.Flags().DurationVar(&syncPollInterval, "poll-interval", 0, "delay between status requests (default from settings)")
	syncCmd.Flags().BoolVarP(&syncQuiet, "quiet", "q", false, "only print the summary")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncExecutor == nil {
		return errors.New("sync service not configured")
	}
	if syncAll == (len(args) > 0) {
		return errors.New("specify connector IDs or --all")
	}
	if syncTimeout < 0 || syncPollInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	ids := args
	if syncAll {
		var err error
		ids, err = activeConnectorIDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			cmd.Println("No active connectors to sync.")
			return nil
		}
	}

	opts := driving.SyncOptions{
		Timeout:      syncTimeout,
		PollInterval: syncPollInterval,
	}
	if !syncQuiet {
		// Observers fire from one goroutine per connector
		var mu sync.Mutex
		opts.Observer = func(run domain.SyncRun) {
			mu.Lock()
			defer mu.Unlock()
			cmd.Printf("%s: %s\n", run.ConnectorID, run.State)
		}
	}

	cmd.Printf("Synchronising %d connector(s)...\n", len(ids))
	runs, err := syncExecutor.RunMany(ctx, ids, opts)

	cmd.Println()
	failed := printRunSummary(cmd, runs)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sync(s) did not succeed", failed, len(runs))
	}
	return nil
}

func activeConnectorIDs(ctx context.Context) ([]string, error) {
	if catalogService == nil {
		return nil, errors.New("catalog service not configured")
	}
	connectors, err := catalogService.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	ids := make([]string, 0, len(connectors))
	for i := range connectors {
		if !connectors[i].IsPaused() {
			ids = append(ids, connectors[i].ID)
		}
	}
	return ids, nil
}

// printRunSummary prints one line per run and returns how many did not
// succeed. Nil runs are connectors that never started.
func printRunSummary(cmd *cobra.Command, runs []*domain.SyncRun) int {
	failed := 0
	for _, run := range runs {
		if run == nil {
			failed++
			continue
		}
		line := fmt.Sprintf("%-24s %-10s %s", run.ConnectorID, run.State, run.Duration().Round(time.Second))
		if run.RowsSynced != nil {
			line += fmt.Sprintf(" (%d rows)", *run.RowsSynced)
		}
		if run.Error != "" {
			line += ": " + run.Error
		}
		cmd.Println(line)
		if run.State != domain.SyncSucceeded {
			failed++
		}
	}
	return failed
}
