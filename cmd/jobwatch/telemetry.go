package main

import (
	"context"
	"jobwatch/lib/telemetry"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(logger)
}

func initTelemetry(ctx context.Context, cfg telemetry.Config) (telemetry.Telemetry, error) {
	t, err := telemetry.Setup(ctx, "jobwatch", cfg)
	if err != nil {
		return telemetry.Telemetry{}, err
	}
	if t.MeterProvider != nil {
		telemetry.InstrumentPerfStats(ctx, time.Minute)
	}
	return t, nil
}
