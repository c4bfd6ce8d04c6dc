package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"jobwatch/internal/config"
	"jobwatch/internal/monitor"
	"jobwatch/internal/scheduler"
	"jobwatch/lib/osutil"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	once       bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "jobwatch watches a job postings README and sends a notification when its postings change.",
	Args:  cobra.NoArgs,
	// errors are logged by run, guidance goes to stdout
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "config.json5", "Path to the config file (json or json5).")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single check and exit.")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and HTTP dumps.")
}

func main() {
	ctx, stop := osutil.SignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	initSlog(verbose)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to start monitor", "err", err)
		printGuidance(cmd.OutOrStdout(), configPath, err)
		return err
	}

	tel, err := initTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to setup telemetry", "err", err)
		return err
	}
	defer func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	env, closeEnv, err := newEnv(ctx, cfg, verbose)
	if err != nil {
		slog.Error("failed to start monitor", "err", err)
		printGuidance(cmd.OutOrStdout(), configPath, err)
		return err
	}
	defer closeEnv()

	m := monitor.New(env)

	if once {
		report, err := m.Check(ctx)
		printReport(cmd.OutOrStdout(), report, err)
		return err
	}

	schedule := scheduler.Every(cfg.CheckInterval())
	if cfg.Schedule != "" {
		schedule, err = scheduler.ParseSchedule(cfg.Schedule)
		if err != nil {
			return err
		}
	}

	loop := scheduler.NewLoop(scheduler.Options{
		Cycle: func(ctx context.Context) error {
			_, err := m.Check(ctx)
			return err
		},
		Schedule:  schedule,
		Backoff:   cfg.ErrorBackoff(),
		Clock:     env.Clock,
		Telemetry: env.Telemetry,
	})
	slog.Info("monitoring started", "section", m.Section(), "mode", cfg.Mode())
	err = loop.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("interrupted, shutting down")
	return nil
}

func printGuidance(out io.Writer, path string, err error) {
	fmt.Fprintln(out)
	if errors.Is(err, config.ErrConfigMissing) {
		fmt.Fprintln(out, "To get started:")
		fmt.Fprintf(out, "1. Fill in %s with your notification settings\n", path)
		fmt.Fprintln(out, "2. Run jobwatch again")
		return
	}
	if errors.Is(err, config.ErrConfigInvalid) {
		fmt.Fprintf(out, "Fix the following in %s and run jobwatch again:\n", path)
		fmt.Fprintf(out, "  %s\n", err.Error())
		return
	}
	fmt.Fprintf(out, "jobwatch could not start: %s\n", err.Error())
}

func printReport(out io.Writer, report monitor.Report, err error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.AppendRows([]table.Row{
		{"Cycle", report.CycleID},
		{"Outcome", report.Outcome.String()},
		{"Observed", report.Observed},
		{"Notified", report.Notified},
		{"Channels", fmt.Sprintf("%d ok, %d failed", report.Channels, report.Failed)},
		{"Fingerprint", report.Fingerprint},
	})
	if err != nil {
		t.AppendRow(table.Row{"Error", err.Error()})
	}
	t.Render()
}
