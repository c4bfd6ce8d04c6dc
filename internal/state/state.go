// Package state persists what the previous check observed.
package state

import (
	"context"
	"strings"
	"time"
)

// State is the persisted result of the last check that extracted at least one record.
type State struct {
	// Fingerprint is empty when no baseline was established yet.
	Fingerprint string    `json:"last_fingerprint"`
	LastCheck   time.Time `json:"last_check"`
	// Identities is only kept when notifying about new postings, nil otherwise.
	Identities []string `json:"known_identities,omitempty"`
}

func (s State) HasBaseline() bool {
	return s.Fingerprint != ""
}

// Store loads and saves State.
//
// note: fault injection point
type Store interface {
	// Load returns the zero State when nothing was saved yet.
	Load(ctx context.Context) (State, error)
	// Save overwrites the stored state in full.
	Save(ctx context.Context, state State) error
	Close() error
}

const (
	sqlitePrefix = "sqlite:"
	libsqlPrefix = "libsql://"
	redisPrefix  = "redis://"
	redissPrefix = "rediss://"
)

// Open picks a Store implementation from the form of location:
//
//   - "sqlite:<path>" a local sqlite database
//   - "libsql://..." a remote libsql database (an authToken query parameter is passed through)
//   - "redis://..." or "rediss://..." a redis server
//   - anything else is a path to a JSON file
func Open(ctx context.Context, location string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch {
	case strings.HasPrefix(location, sqlitePrefix):
		store, err = OpenSQLite(ctx, strings.TrimPrefix(location, sqlitePrefix))
	case strings.HasPrefix(location, libsqlPrefix):
		store, err = OpenLibSQL(ctx, location)
	case strings.HasPrefix(location, redisPrefix), strings.HasPrefix(location, redissPrefix):
		store, err = OpenRedis(ctx, location, DefaultRedisKey)
	default:
		store = NewFileStore(location)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
