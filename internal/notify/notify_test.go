package notify

import (
	"context"
	"errors"
	"fmt"
	"jobwatch/internal/components/telemetry"
	"jobwatch/internal/postings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testRecords = []postings.Record{
	{Company: "Acme", Role: "Engineer", Location: "Remote", Age: "0d", Link: "https://acme.example/apply"},
	{Company: "Beta & Co", Role: "Scientist", Location: "NYC", Age: "3d"},
}

func testBatch(records []postings.Record) Batch {
	return Batch{
		Records: records,
		Count:   len(records),
		Section: "Data Science, AI & Machine Learning New Grad Roles",
		Time:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fakeChannel struct {
	name    string
	err     error
	panics  bool
	batches []Batch
}

func (c *fakeChannel) Name() string {
	return c.name
}

func (c *fakeChannel) Send(ctx context.Context, batch Batch) error {
	if c.panics {
		panic("boom")
	}
	c.batches = append(c.batches, batch)
	return c.err
}

func TestDispatchIsolatesFailures(t *testing.T) {
	recorder := &telemetry.Recorder{}
	first := &fakeChannel{name: "first", err: errors.New("smtp down")}
	second := &fakeChannel{name: "second", panics: true}
	third := &fakeChannel{name: "third"}

	dispatcher := NewDispatcher(recorder, first, second, third)
	require.Equal(t, []string{"first", "second", "third"}, dispatcher.Channels())

	sent := dispatcher.Dispatch(context.Background(), testBatch(testRecords))
	require.Equal(t, 1, sent)

	require.Len(t, first.batches, 1)
	require.Len(t, third.batches, 1)
	require.Equal(t, testRecords, third.batches[0].Records)

	broken := recorder.Reports(telemetry.KindBroken)
	require.Len(t, broken, 2)
	require.Equal(t, "notify: first.send", broken[0].ID)
	require.Equal(t, "notify: second.send", broken[1].ID)

	var sendErr *SendError
	require.ErrorAs(t, broken[0].Params[0].(error), &sendErr)
	require.Equal(t, "first", sendErr.Channel)
	require.EqualError(t, sendErr.Err, "smtp down")
}

func TestDispatchEmptyBatch(t *testing.T) {
	channel := &fakeChannel{name: "only"}
	dispatcher := NewDispatcher(&telemetry.Recorder{}, channel)

	require.Equal(t, 0, dispatcher.Dispatch(context.Background(), testBatch(nil)))
	require.Empty(t, channel.batches)
}

func TestDispatchFillsCount(t *testing.T) {
	channel := &fakeChannel{name: "only"}
	dispatcher := NewDispatcher(&telemetry.Recorder{}, channel)

	require.Equal(t, 1, dispatcher.Dispatch(context.Background(), Batch{Records: testRecords}))
	require.Equal(t, 2, channel.batches[0].Count)
}

func TestBatchTitle(t *testing.T) {
	require.Equal(t, "1 new job posting", Batch{Count: 1}.title())
	require.Equal(t, "2 new job postings in Data", Batch{Count: 2, Section: "Data"}.title())
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "ab…", truncate("abcd", 3))
	require.Equal(t, "🤖…", truncate("🤖🤖🤖", 2))
}

func manyRecords(n int) []postings.Record {
	out := make([]postings.Record, n)
	for i := range out {
		out[i] = postings.Record{
			Company:  fmt.Sprintf("Company %d", i),
			Role:     "Engineer",
			Location: "Remote",
			Age:      "1d",
			Link:     fmt.Sprintf("https://example.com/%d", i),
		}
	}
	return out
}
