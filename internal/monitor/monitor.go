// Package monitor runs one check of the watched README: fetch, extract, compare
// with the persisted state, notify and persist.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"jobwatch/internal/components/chrono"
	"jobwatch/internal/components/telemetry"
	"jobwatch/internal/delta"
	"jobwatch/internal/notify"
	"jobwatch/internal/postings"
	"jobwatch/internal/state"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("jobwatch/internal/monitor")
var meter = otel.Meter("jobwatch/internal/monitor")

var checkCounter, _ = meter.Int64Counter(
	"monitor.checks",
	metric.WithDescription("completed checks by outcome"),
)
var observedGauge, _ = meter.Int64Gauge(
	"monitor.records_observed",
	metric.WithDescription("postings extracted by the last check"),
)

// Fetcher returns the current README text.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Dispatcher delivers a batch and returns how many channels succeeded.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch notify.Batch) int
	Channels() []string
}

// Env holds every collaborator of a check. It is built once at startup.
type Env struct {
	Fetcher    Fetcher
	Store      state.Store
	Dispatcher Dispatcher
	Clock      chrono.API
	Telemetry  telemetry.API

	// Heading of the README section to watch, postings.DefaultHeading when empty.
	Heading string
	Mode    delta.Mode
}

// Report summarizes one check.
type Report struct {
	// CycleID correlates the log lines of a check.
	CycleID  string
	Outcome  delta.Outcome
	Observed int
	// Notified is the number of postings handed to the dispatcher.
	Notified int
	// Channels is the number of channels that delivered the batch, Failed the
	// number that did not.
	Channels    int
	Failed      int
	Fingerprint string
}

type Monitor struct {
	env Env
	tel telemetry.API
}

func New(env Env) Monitor {
	if env.Heading == "" {
		env.Heading = postings.DefaultHeading
	}
	if env.Mode == "" {
		env.Mode = delta.ModeAll
	}
	return Monitor{
		env: env,
		tel: telemetry.NewScopedAPI("monitor", env.Telemetry),
	}
}

// Section is the watched heading without its markdown marks.
func (m Monitor) Section() string {
	return strings.TrimSpace(strings.TrimLeft(m.env.Heading, "#"))
}

// Check runs one cycle. Errors are *Error values; the persisted state is only
// written once extraction produced at least one record.
func (m Monitor) Check(ctx context.Context) (Report, error) {
	report := Report{CycleID: uuid.NewString()}

	ctx, span := tracer.Start(ctx, "Check")
	defer span.End()
	span.SetAttributes(attribute.String("cycle_id", report.CycleID))

	log := slog.Default().With("cycle_id", report.CycleID)
	log.InfoContext(ctx, "checking for job updates")

	report, err := m.check(ctx, log, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		if KindOf(err).Recoverable() {
			m.tel.ReportWarning("check", err)
		} else {
			m.tel.ReportBroken("check", err)
		}
		return report, err
	}

	span.SetAttributes(
		attribute.String("outcome", report.Outcome.String()),
		attribute.Int("observed", report.Observed),
		attribute.Int("notified", report.Notified),
	)
	checkCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", report.Outcome.String())))
	observedGauge.Record(ctx, int64(report.Observed))
	m.tel.ReportCount("observed", int64(report.Observed))
	return report, nil
}

func (m Monitor) check(ctx context.Context, log *slog.Logger, report Report) (Report, error) {
	body, err := m.env.Fetcher.Fetch(ctx)
	if err != nil {
		return report, newError(KindFetchFailure, "fetch readme", err)
	}

	records, err := postings.Extract(body, m.env.Heading)
	if errors.Is(err, postings.ErrSectionNotFound) {
		return report, newError(KindSectionNotFound, fmt.Sprintf("find section %q", m.env.Heading), err)
	}
	if err != nil {
		return report, newError(KindUnclassified, "extract postings", err)
	}
	report.Observed = len(records)

	if len(records) == 0 {
		report.Outcome = delta.Empty
		return report, newError(KindEmptyExtraction, fmt.Sprintf("no postings found in %q", m.Section()), nil)
	}

	prior, err := m.env.Store.Load(ctx)
	if err != nil {
		return report, newError(KindUnclassified, "load state", err)
	}

	now := m.env.Clock.Now()
	decision := delta.Detect(prior, records, m.env.Mode, now)
	report.Outcome = decision.Outcome
	report.Fingerprint = decision.Fingerprint

	switch decision.Outcome {
	case delta.Baseline:
		log.InfoContext(ctx, "baseline established", "observed", len(records))
	case delta.Unchanged:
		log.InfoContext(ctx, "no new postings", "observed", len(records))
	case delta.Changed:
		log.InfoContext(ctx, "changes detected", "observed", len(records), "notifying", len(decision.Notify))
		report = m.notify(ctx, log, report, decision.Notify, now)
	}

	if decision.Persist {
		err = m.env.Store.Save(ctx, decision.Next)
		if err != nil {
			return report, newError(KindUnclassified, "save state", err)
		}
	}
	return report, nil
}

func (m Monitor) notify(ctx context.Context, log *slog.Logger, report Report, records []postings.Record, now time.Time) Report {
	report.Notified = len(records)
	if len(records) == 0 {
		return report
	}

	channels := len(m.env.Dispatcher.Channels())
	report.Channels = m.env.Dispatcher.Dispatch(ctx, notify.Batch{
		Records: records,
		Count:   len(records),
		Section: m.Section(),
		Time:    now,
	})
	report.Failed = channels - report.Channels

	if report.Failed > 0 {
		m.tel.ReportWarning("check.notify", newError(
			KindNotificationFailure,
			fmt.Sprintf("%d of %d channels failed", report.Failed, channels),
			nil,
		))
	}
	log.InfoContext(ctx, "notifications sent", "postings", len(records), "channels", report.Channels, "failed", report.Failed)
	return report
}
