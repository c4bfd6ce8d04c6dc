package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testStoreContract runs the behavior every Store implementation shares.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.False(t, loaded.HasBaseline())
	require.Equal(t, State{}, loaded)

	first := State{
		Fingerprint: "f1",
		LastCheck:   time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, first))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.True(t, loaded.HasBaseline())
	require.Equal(t, first.Fingerprint, loaded.Fingerprint)
	require.True(t, first.LastCheck.Equal(loaded.LastCheck))
	require.Nil(t, loaded.Identities)

	second := State{
		Fingerprint: "f2",
		LastCheck:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Identities:  []string{"a", "b"},
	}
	require.NoError(t, store.Save(ctx, second))
	// saving the same value twice is harmless
	require.NoError(t, store.Save(ctx, second))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "f2", loaded.Fingerprint)
	require.True(t, second.LastCheck.Equal(loaded.LastCheck))
	require.Equal(t, []string{"a", "b"}, loaded.Identities)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_state.json")
	testStoreContract(t, NewFileStore(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_state.json")
	store := NewFileStore(path)

	err := store.Save(context.Background(), State{
		Fingerprint: "abc",
		LastCheck:   time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	buff, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"last_fingerprint": "abc", "last_check": "2026-03-01T08:30:00Z"}`, string(buff))
}

func TestFileStoreLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_state.json")
	legacy := `{"last_jobs_hash": "9b1f0c3d2e4a5b6c7d8e9f0a1b2c3d4e", "last_check": "2025-01-02T03:04:05.123456"}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	loaded, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	require.False(t, loaded.HasBaseline(), "a legacy digest is not comparable with fingerprints")
	require.True(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.Local).Equal(loaded.LastCheck))
}

func TestFileStoreCheckTime(t *testing.T) {
	testCases := []struct {
		in       string
		expected time.Time
	}{
		{in: "2026-03-01T08:30:00Z", expected: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{in: "2026-03-01T08:30:00.5+02:00", expected: time.Date(2026, 3, 1, 6, 30, 0, 500000000, time.UTC)},
		{in: "2025-01-02T03:04:05", expected: time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)},
		{in: "yesterday", expected: time.Time{}},
		{in: "", expected: time.Time{}},
	}

	for _, test := range testCases {
		path := filepath.Join(t.TempDir(), "last_state.json")
		contents := fmt.Sprintf(`{"last_fingerprint": "f1", "last_check": %q}`, test.in)
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

		loaded, err := NewFileStore(path).Load(context.Background())
		require.NoError(t, err, "input: %q", test.in)
		require.Equal(t, "f1", loaded.Fingerprint)
		require.True(t, test.expected.Equal(loaded.LastCheck), "input: %q, got %v", test.in, loaded.LastCheck)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "jobwatch.db")
	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testStoreContract(t, store)

	// a second handle on the same file sees the saved row
	reopened, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()
	loaded, err := reopened.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "f2", loaded.Fingerprint)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(ctx, filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	require.IsType(t, FileStore{}, store)
	require.NoError(t, store.Close())

	store, err = Open(ctx, "sqlite:"+filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	require.IsType(t, SQLStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, "sqlite:")
	require.Error(t, err)

	_, err = Open(ctx, "redis://%zz")
	require.Error(t, err)
}
