package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [connector-id]",
	Short: "List recorded sync runs",
	Long: `Lists sync runs recorded in the local history, most recent first.
Without a connector ID, runs of every connector are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRunsList,
}

var runsStatusCmd = &cobra.Command{
	Use:   "status [connector-id]",
	Short: "Show the running or most recent sync of a connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsStatus,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "output as JSON")
	runsCmd.AddCommand(runsStatusCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	if syncExecutor == nil {
		return errors.New("sync service not configured")
	}

	connectorID := ""
	if len(args) > 0 {
		connectorID = args[0]
	}

	runs, err := syncExecutor.History(cmd.Context(), connectorID, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		return printJSON(cmd, runs)
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i := range runs {
		r := &runs[i]
		rows[i] = []string{
			r.ID, r.ConnectorID, r.State.String(),
			formatTime(r.StartedAt), r.Duration().Round(time.Second).String(),
			strconv.Itoa(r.Polls), r.Error,
		}
	}
	cmd.Println(renderTable([]string{"RUN", "CONNECTOR", "STATE", "STARTED", "DURATION", "POLLS", "ERROR"}, rows))
	return nil
}

func runRunsStatus(cmd *cobra.Command, args []string) error {
	if syncExecutor == nil {
		return errors.New("sync service not configured")
	}

	status, err := syncExecutor.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if status.Run == nil {
		cmd.Printf("Connector %s has no recorded runs.\n", status.ConnectorID)
		return nil
	}

	run := status.Run
	label := "Last run"
	if status.Running {
		label = "Running"
	}
	cmd.Printf("%s: %s\n", label, run.ID)
	cmd.Printf("  Connector: %s\n", run.ConnectorID)
	cmd.Printf("  State: %s\n", run.State)
	cmd.Printf("  Started: %s\n", formatTime(run.StartedAt))
	if !run.EndedAt.IsZero() {
		cmd.Printf("  Ended: %s\n", formatTime(run.EndedAt))
	}
	cmd.Printf("  Polls: %d\n", run.Polls)
	if run.RowsSynced != nil {
		cmd.Printf("  Rows synced: %d\n", *run.RowsSynced)
	}
	if run.Error != "" {
		cmd.Printf("  Error: %s\n", run.Error)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
