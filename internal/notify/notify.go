// Package notify delivers batches of postings to notification channels.
package notify

import (
	"context"
	"fmt"
	"jobwatch/internal/components/telemetry"
	"jobwatch/internal/postings"
	"jobwatch/lib/restyutil"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("jobwatch/internal/notify")
var meter = otel.Meter("jobwatch/internal/notify")

var deliveries, _ = meter.Int64Counter(
	"notify.deliveries",
	metric.WithDescription("notification attempts per channel and result"),
)

// Batch is what a channel is asked to deliver.
type Batch struct {
	Records []postings.Record
	// Count is the number of postings the batch announces, normally len(Records).
	Count int
	// Section is the human readable name of the watched README section.
	Section string
	Time    time.Time
}

func (b Batch) title() string {
	noun := "postings"
	if b.Count == 1 {
		noun = "posting"
	}
	if b.Section == "" {
		return fmt.Sprintf("%d new job %s", b.Count, noun)
	}
	return fmt.Sprintf("%d new job %s in %s", b.Count, noun, b.Section)
}

// Channel is one delivery target.
//
// note: fault injection point
type Channel interface {
	Name() string
	Send(ctx context.Context, batch Batch) error
}

// SendError is reported when a channel fails to deliver a batch.
type SendError struct {
	Channel string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s notification: %s", e.Channel, e.Err.Error())
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Dispatcher sends a batch to every channel it holds. Channels are independent: a
// failing one is reported and the rest are still attempted.
type Dispatcher struct {
	channels []Channel
	tel      telemetry.API
}

func NewDispatcher(tel telemetry.API, channels ...Channel) Dispatcher {
	return Dispatcher{
		channels: channels,
		tel:      telemetry.NewScopedAPI("notify", tel),
	}
}

// Channels returns the names of the configured channels in dispatch order.
func (d Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, c := range d.channels {
		names[i] = c.Name()
	}
	return names
}

// Dispatch returns the number of channels that delivered the batch. An empty batch
// is not sent anywhere.
func (d Dispatcher) Dispatch(ctx context.Context, batch Batch) int {
	if len(batch.Records) == 0 {
		return 0
	}
	if batch.Count == 0 {
		batch.Count = len(batch.Records)
	}

	ctx, span := tracer.Start(ctx, "Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("records", len(batch.Records)),
		attribute.Int("channels", len(d.channels)),
	)

	sent := 0
	for _, channel := range d.channels {
		err := d.send(ctx, channel, batch)
		if err != nil {
			d.tel.ReportBroken(channel.Name()+".send", err)
			span.RecordError(err)
			deliveries.Add(ctx, 1, metric.WithAttributes(
				attribute.String("channel", channel.Name()),
				attribute.Bool("ok", false),
			))
			continue
		}
		d.tel.ReportDebug("notification sent", channel.Name(), len(batch.Records))
		deliveries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("channel", channel.Name()),
			attribute.Bool("ok", true),
		))
		sent++
	}

	if sent < len(d.channels) {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d channels failed", len(d.channels)-sent, len(d.channels)))
	}
	return sent
}

func (d Dispatcher) send(ctx context.Context, channel Channel, batch Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &SendError{Channel: channel.Name(), Err: err}
		}
	}()
	return channel.Send(ctx, batch)
}

// HTTPOptions configures the resty client shared by webhook style channels.
type HTTPOptions struct {
	Timeout time.Duration
	Output  restyutil.InstrumentOutput
}

func newRestyClient(opts HTTPOptions, instrument ...restyutil.Option) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetTimeout(opts.Timeout)
	restyutil.InstrumentClient(client, tracer, opts.Output, instrument...)
	return client
}

// checkResponse turns a non-2xx response into an error carrying a prefix of the body.
func checkResponse(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	body := strings.TrimSpace(res.String())
	if body == "" {
		return fmt.Errorf("unexpected status %s", res.Status())
	}
	return fmt.Errorf("unexpected status %s: %s", res.Status(), truncate(body, 200))
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
