package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const schema = `
create table if not exists watch_state (
	id integer primary key check (id = 1),
	fingerprint text not null,
	last_check text not null,
	known_identities text not null default ''
);`

const (
	selectState = `select fingerprint, last_check, known_identities from watch_state where id = 1`
	upsertState = `insert into watch_state (id, fingerprint, last_check, known_identities) values (1, ?, ?, ?)
on conflict (id) do update set
	fingerprint = excluded.fingerprint,
	last_check = excluded.last_check,
	known_identities = excluded.known_identities`
)

// SQLStore keeps the state as a single row of a sqlite (or libsql) table.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating it if needed) a sqlite database at path. ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string) (SQLStore, error) {
	if path == "" {
		return SQLStore{}, fmt.Errorf("a sqlite path was not specified")
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return SQLStore{}, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return SQLStore{}, wrapOpenDB(err)
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return SQLStore{}, wrapOpenDB(err)
	}

	return NewSQLStore(ctx, db)
}

// OpenLibSQL connects to a libsql server, url is passed to the driver as-is.
func OpenLibSQL(ctx context.Context, url string) (SQLStore, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return SQLStore{}, wrapOpenDB(err)
	}
	return NewSQLStore(ctx, db)
}

// NewSQLStore creates the state table on db if it does not exist. The store owns db.
func NewSQLStore(ctx context.Context, db *sql.DB) (SQLStore, error) {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		db.Close()
		return SQLStore{}, fmt.Errorf("create state table: %w", err)
	}
	return SQLStore{db: db}, nil
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open state db: %w", err)
}

func (s SQLStore) Load(ctx context.Context) (State, error) {
	var (
		fingerprint string
		lastCheck   string
		identities  string
	)
	err := s.db.QueryRowContext(ctx, selectState).Scan(&fingerprint, &lastCheck, &identities)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("query state: %w", err)
	}

	out := State{Fingerprint: fingerprint}
	if lastCheck != "" {
		out.LastCheck, err = time.Parse(time.RFC3339Nano, lastCheck)
		if err != nil {
			return State{}, fmt.Errorf("parse last check: %w", err)
		}
	}
	if identities != "" {
		err = json.Unmarshal([]byte(identities), &out.Identities)
		if err != nil {
			return State{}, fmt.Errorf("decode known identities: %w", err)
		}
	}
	return out, nil
}

func (s SQLStore) Save(ctx context.Context, state State) error {
	identities := ""
	if state.Identities != nil {
		serialized, err := json.Marshal(state.Identities)
		if err != nil {
			return err
		}
		identities = string(serialized)
	}

	_, err := s.db.ExecContext(
		ctx,
		upsertState,
		state.Fingerprint,
		state.LastCheck.Format(time.RFC3339Nano),
		identities,
	)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s SQLStore) Close() error {
	return s.db.Close()
}
