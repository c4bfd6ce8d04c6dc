package main

import (
	"context"
	"jobwatch/internal/components/chrono"
	"jobwatch/internal/components/telemetry"
	"jobwatch/internal/config"
	"jobwatch/internal/fetch"
	"jobwatch/internal/monitor"
	"jobwatch/internal/notify"
	"jobwatch/internal/state"
	"jobwatch/lib/restyutil"
	"log/slog"
	"os"
	"path/filepath"
)

// newEnv builds the collaborators of the monitor from the config. The returned
// function releases the state store.
func newEnv(ctx context.Context, cfg config.Config, verbose bool) (monitor.Env, func(), error) {
	tel := telemetry.NewScopedAPI("jobwatch", telemetry.SlogAPI{})

	var output restyutil.InstrumentOutput
	if verbose {
		dir := filepath.Join(os.TempDir(), "jobwatch", "http")
		fsOutput, err := restyutil.NewFilesystemOutput(dir)
		if err != nil {
			slog.Warn("http dumps disabled", "dir", dir, "err", err)
		} else {
			slog.Debug("writing http dumps", "dir", dir)
			output = fsOutput
		}
	}

	store, err := state.Open(ctx, cfg.StateFile)
	if err != nil {
		return monitor.Env{}, func() {}, err
	}
	closeStore := func() {
		err := store.Close()
		if err != nil {
			slog.Warn("failed to close state store", "err", err)
		}
	}

	prior, err := store.Load(ctx)
	if err != nil {
		closeStore()
		return monitor.Env{}, func() {}, err
	}
	if prior.HasBaseline() {
		slog.Info("loaded previous state", "last_check", prior.LastCheck)
	} else {
		slog.Info("no previous state found, starting fresh", "state", cfg.StateFile)
	}

	httpOpts := notify.HTTPOptions{Timeout: cfg.FetchTimeout(), Output: output}
	dispatcher := notify.NewDispatcher(tel, cfg.Channels(httpOpts)...)
	if len(dispatcher.Channels()) == 0 {
		tel.ReportWarning("notify.channels", "no notification channel is enabled, changes will only be logged")
	} else {
		slog.Info("notification channels", "enabled", dispatcher.Channels())
	}

	env := monitor.Env{
		Fetcher: fetch.NewClient(fetch.Options{
			URL:       cfg.Source.Url,
			Timeout:   cfg.FetchTimeout(),
			UserAgent: cfg.Source.UserAgent,
			Output:    output,
		}),
		Store:      store,
		Dispatcher: dispatcher,
		Clock:      chrono.NewStandardImpl(nil),
		Telemetry:  tel,
		Heading:    cfg.Source.SectionHeading,
		Mode:       cfg.Mode(),
	}
	return env, closeStore, nil
}
