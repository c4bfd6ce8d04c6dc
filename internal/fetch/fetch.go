// Package fetch downloads the watched README.
package fetch

import (
	"context"
	"fmt"
	"jobwatch/lib/restyutil"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("jobwatch/internal/fetch")

const (
	DefaultURL       = "https://raw.githubusercontent.com/SimplifyJobs/New-Grad-Positions/refs/heads/dev/README.md"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "jobwatch/1.0 (+https://github.com/SimplifyJobs/New-Grad-Positions)"
)

type Options struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	// Output receives request dumps while debug logging is on, it can be nil.
	Output restyutil.InstrumentOutput
}

// Client fetches one document per call.
type Client struct {
	url    string
	client *resty.Client
}

func NewClient(opts Options) Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", opts.UserAgent)
	restyutil.InstrumentClient(client, tracer, opts.Output)

	return Client{url: opts.URL, client: client}
}

func (c Client) URL() string {
	return c.url
}

// Fetch returns the body of a GET on the configured url. Transport errors, timeouts
// and non-2xx statuses are errors.
func (c Client) Fetch(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", c.url))

	res, err := c.client.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("get %s: %w", c.url, err)
	}
	if !res.IsSuccess() {
		err = fmt.Errorf("get %s: unexpected status %s", c.url, res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	body := res.String()
	span.SetAttributes(attribute.Int("bytes", len(body)))
	return body, nil
}
