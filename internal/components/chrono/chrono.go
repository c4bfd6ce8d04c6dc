package chrono

import (
	"sync"
	"time"
)

// API is the interface that anything depending on the system clock should use.
//
// note: fault injection point
type API interface {
	Now() time.Time
	// After behaves like time.After.
	After(d time.Duration) <-chan time.Time
}

// StandardImpl is the implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl returns a clock reporting times in location, time.Local when nil.
func NewStandardImpl(location *time.Location) StandardImpl {
	if location == nil {
		location = time.Local
	}
	return StandardImpl{location: location}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (StandardImpl) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Fake is a clock that only moves when waited on: every call to After advances it
// by the requested duration and fires right away. It records the durations so tests
// can assert on how long something would have slept.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	if d > 0 {
		f.now = f.now.Add(d)
	}
	f.waits = append(f.waits, d)

	fired := make(chan time.Time, 1)
	fired <- f.now
	return fired
}

// Waits returns every duration passed to After so far.
func (f *Fake) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}
