package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the state in a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) FileStore {
	return FileStore{path: path}
}

func (s FileStore) Path() string {
	return s.path
}

// fileState is what Load accepts. Older versions of the file carry last_jobs_hash,
// a digest of whole postings that no fingerprint can ever equal, and a last_check
// without a zone.
type fileState struct {
	Fingerprint string   `json:"last_fingerprint"`
	LastCheck   string   `json:"last_check"`
	Identities  []string `json:"known_identities,omitempty"`
	LegacyHash  string   `json:"last_jobs_hash,omitempty"`
}

var checkTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseCheckTime returns the zero time for values it does not understand, the
// check time is informational.
func parseCheckTime(value string) time.Time {
	for _, layout := range checkTimeLayouts {
		parsed, err := time.ParseInLocation(layout, value, time.Local)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func (s FileStore) Load(ctx context.Context) (State, error) {
	buff, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	var decoded fileState
	err = json.Unmarshal(buff, &decoded)
	if err != nil {
		return State{}, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	if decoded.Fingerprint == "" && decoded.LegacyHash != "" {
		slog.Info(
			"state file predates fingerprints, a new baseline will be established",
			"path", s.path,
		)
	}
	return State{
		Fingerprint: decoded.Fingerprint,
		LastCheck:   parseCheckTime(decoded.LastCheck),
		Identities:  decoded.Identities,
	}, nil
}

// Save writes to a temporary file next to the target and renames it over the
// target, a crash mid-write leaves the previous state intact.
func (s FileStore) Save(ctx context.Context, state State) error {
	serialized, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(serialized)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return fmt.Errorf("sync state file: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close state file: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (FileStore) Close() error {
	return nil
}
