// Package scheduler repeats a cycle on a schedule until its context is cancelled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"jobwatch/internal/components/chrono"
	"jobwatch/internal/components/telemetry"
	"log/slog"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/robfig/cron/v3"
)

const DefaultBackoff = 5 * time.Minute

// Cycle is one unit of work. An error implementing `Recoverable() bool` that
// returns true is considered handled: the loop just waits for the next scheduled
// run. Any other error delays the next run by the back-off instead.
type Cycle func(ctx context.Context) error

// Every runs a cycle interval after the previous one finished.
func Every(interval time.Duration) cron.Schedule {
	return cron.Every(interval)
}

// ParseSchedule parses a standard 5 field cron expression (descriptors like
// "@hourly" are accepted too).
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return schedule, nil
}

type Options struct {
	Cycle    Cycle
	Schedule cron.Schedule
	// Backoff is the wait after an unrecoverable error or a panic, DefaultBackoff when zero.
	Backoff   time.Duration
	Clock     chrono.API
	Telemetry telemetry.API
}

// Loop is a single-threaded control loop: a cycle always runs to completion
// before the next one is scheduled.
type Loop struct {
	cycle    Cycle
	schedule cron.Schedule
	backoff  time.Duration
	clock    chrono.API
	tel      telemetry.API
}

func NewLoop(opts Options) Loop {
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Schedule == nil {
		opts.Schedule = Every(time.Hour)
	}
	return Loop{
		cycle:    opts.Cycle,
		schedule: opts.Schedule,
		backoff:  opts.Backoff,
		clock:    opts.Clock,
		tel:      telemetry.NewScopedAPI("scheduler", opts.Telemetry),
	}
}

// Run blocks until ctx is cancelled and returns nil then. Cancellation is only
// observed between cycles: the running cycle gets a context that is never
// cancelled and is allowed to finish.
func (l Loop) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "starting job monitor")
	for {
		err := l.RunOnce(context.WithoutCancel(ctx))
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "monitor stopped")
			return nil
		}

		wait := l.delay(err)
		slog.InfoContext(ctx, "sleeping until next check", "wait", wait.String(), "at", l.clock.Now().Add(wait))

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "monitor stopped")
			return nil
		case <-l.clock.After(wait):
		}
	}
}

// RunOnce runs a single cycle, turning a panic into an error.
func (l Loop) RunOnce(ctx context.Context) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		panicErr := goerrors.Wrap(r, 2)
		l.tel.ReportBroken("cycle", fmt.Errorf("panic: %w", panicErr), string(panicErr.Stack()))
		err = &PanicError{Value: r, Stack: panicErr.Stack()}
	}()
	return l.cycle(ctx)
}

// delay is how long to wait after a cycle that returned err.
func (l Loop) delay(err error) time.Duration {
	if err != nil && !Recoverable(err) {
		l.tel.ReportWarning("loop.backoff", err, l.backoff.String())
		return l.backoff
	}

	now := l.clock.Now()
	next := l.schedule.Next(now)
	if next.IsZero() || next.Before(now) {
		// a cron expression that never fires again
		return l.backoff
	}
	return next.Sub(now)
}

// Recoverable reports whether err (or an error it wraps) declares itself recoverable.
func Recoverable(err error) bool {
	var classified interface{ Recoverable() bool }
	return errors.As(err, &classified) && classified.Recoverable()
}

// PanicError is returned by RunOnce when the cycle panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("cycle panicked: %v", e.Value)
}
