// Package monitor implements the monitor command.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/config"
	"github.com/leefowlercu/dron/internal/metrics"
	"github.com/leefowlercu/dron/internal/monitor"
	"github.com/leefowlercu/dron/internal/servicemanager"
	"github.com/leefowlercu/dron/internal/tui/dashboard"
	"github.com/leefowlercu/dron/internal/version"
)

var (
	monitorOnce     bool
	monitorRate     bool
	monitorCommand  bool
	monitorInterval float64
	monitorListen   string
	monitorHeadless bool
)

// MonitorCmd shows the status of managed jobs.
var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor jobs managed by dron",
	Long: "Monitor jobs managed by dron.\n\n" +
		"Shows one row per job with its last result, time until the next run, schedule and " +
		"optionally its command and success rate. Running jobs are listed first, then failing " +
		"ones. The view refreshes every -n seconds; a refresh only starts after the previous " +
		"one finished.\n\n" +
		"With --listen the same data is served as Prometheus metrics on /metrics and as JSON " +
		"on /entries. Add --headless to serve without the interactive view.",
	Example: `  # Interactive view
  dron monitor

  # Print once, e.g. for grep
  dron monitor --once --command

  # Export metrics only
  dron monitor --listen 127.0.0.1:9640 --headless`,
	Args:    cobra.NoArgs,
	PreRunE: validateMonitor,
	RunE:    runMonitor,
}

func init() {
	MonitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "Print the table once and exit")
	MonitorCmd.Flags().BoolVar(&monitorRate, "rate", false, "Show success rate (reads the journal, slow)")
	MonitorCmd.Flags().BoolVar(&monitorCommand, "command", false, "Show each job's command")
	MonitorCmd.Flags().Float64VarP(&monitorInterval, "interval", "n", -1, "Refresh every n seconds (default from config)")
	MonitorCmd.Flags().StringVar(&monitorListen, "listen", "", "Serve /metrics and /entries on this address")
	MonitorCmd.Flags().BoolVar(&monitorHeadless, "headless", false, "Only serve --listen, no interactive view")
}

func validateMonitor(cmd *cobra.Command, args []string) error {
	if monitorHeadless && monitorListen == "" && config.GetString("monitor.listen") == "" {
		return fmt.Errorf("--headless requires --listen")
	}
	if monitorOnce && monitorHeadless {
		return fmt.Errorf("--once and --headless are mutually exclusive")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := cmdutil.Logger().With("component", "monitor")

	cfg, err := config.Get()
	if err != nil {
		return err
	}

	backend, err := cmdutil.NewBackend(logger)
	if err != nil {
		return err
	}

	params := monitor.Params{WithSuccessRate: monitorRate, WithCommand: monitorCommand}
	aggregator := monitor.NewAggregator(backend, monitor.WithAggregatorLogger(logger))

	if monitorOnce {
		return printOnce(cmd, backend, aggregator, params, logger)
	}

	listen := monitorListen
	if listen == "" {
		listen = cfg.Monitor.Listen
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if listen != "" {
		stop := serveMetrics(ctx, listen, backend, aggregator, params, cfg, logger)
		defer stop()
	}

	if monitorHeadless {
		fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on http://%s/metrics\n", listen)
		<-ctx.Done()
		return nil
	}

	interval := cfg.Monitor.RefreshInterval
	if cmd.Flags().Changed("interval") {
		interval = monitorInterval
	}
	if interval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}

	poller := monitor.NewPoller(
		func(ctx context.Context) ([]monitor.Entry, error) {
			return aggregator.Snapshot(ctx, params)
		},
		time.Duration(interval*float64(time.Second)),
		monitor.WithMinSpacing(time.Duration(cfg.Monitor.MinIntervalMs)*time.Millisecond),
	)

	// log lines would tear the full-screen view
	if m := cmdutil.LogManager(); m != nil {
		m.Quiet()
	}

	return dashboard.Run(poller.Start(ctx), monitorCommand)
}

func printOnce(cmd *cobra.Command, backend servicemanager.Backend, aggregator *monitor.Aggregator, params monitor.Params, logger *slog.Logger) error {
	ctx := cmd.Context()

	records, err := backend.QueryState(ctx, false)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Warn("no managed units")
	}

	entries, err := aggregator.GetEntries(ctx, records, params)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), dashboard.RenderTable(entries, monitorCommand))
	return nil
}

// serveMetrics starts the exporter and returns a func that stops it.
func serveMetrics(ctx context.Context, addr string, backend servicemanager.Backend, aggregator *monitor.Aggregator, params monitor.Params, cfg *config.Config, logger *slog.Logger) func() {
	provider := metrics.NewJobsProvider(backend, aggregator, params)

	collector := metrics.NewCollector(time.Duration(cfg.Monitor.MetricsInterval) * time.Second)
	collector.Register("jobs", provider)
	collector.Start(ctx, version.Get().Version, string(backend.Platform()))

	server := metrics.NewServer(addr, provider)
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		collector.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to stop metrics server", "error", err)
		}
	}
}
