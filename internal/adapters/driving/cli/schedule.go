package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/logger"
)

var scheduleMetricsAddr string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled catalog refreshes and connector syncs",
	Long: `Runs the background scheduler in the foreground until interrupted.

Task intervals and cron expressions are read from the [scheduler] section
of the config file. Use --metrics-addr to expose Prometheus metrics for
finished sync runs.`,
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the scheduler",
	Args:  cobra.NoArgs,
	RunE:  runScheduleRun,
}

func init() {
	scheduleRunCmd.Flags().StringVar(&scheduleMetricsAddr, "metrics-addr", "", "serve /metrics on this address, e.g. :9090")
	scheduleCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleRun(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}
	if !schedulerConfig.Enabled {
		return errors.New("scheduler is disabled in settings")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scheduleMetricsAddr != "" {
		srv := &http.Server{
			Addr:              scheduleMetricsAddr,
			Handler:           metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		cmd.Printf("Metrics available at http://localhost%s/metrics\n", scheduleMetricsAddr)
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	if err := scheduler.Stop(); err != nil {
		logger.Warn("Scheduler stop: %v", err)
	}
	cmd.Println("Scheduler stopped.")
	return nil
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
