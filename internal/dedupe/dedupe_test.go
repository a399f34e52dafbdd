package dedupe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobscout/telegram-job-crawler/internal/store"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func TestLoadUnionsSnapshotAndLedger(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "joined.json")
	require.NoError(t, os.WriteFile(path, []byte(`["snap_a", "both"]`), 0o644))

	ledger := store.NewMemory(fixedClock{now: time.Now()})
	require.NoError(t, ledger.RecordJoin(ctx, "ledger_b", "+1", time.Now()))
	require.NoError(t, ledger.RecordJoin(ctx, "both", "+1", time.Now()))

	s, err := Load(ctx, path, ledger, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"both", "ledger_b", "snap_a"}, s.IDs())
	assert.True(t, s.Contains("snap_a"))
	assert.True(t, s.Contains("ledger_b"))
	assert.False(t, s.Contains("never_seen"))
}

func TestLoadMissingSnapshotUsesLedgerOnly(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewMemory(fixedClock{now: time.Now()})
	require.NoError(t, ledger.RecordJoin(ctx, "only_ledger", "+1", time.Now()))

	s, err := Load(ctx, filepath.Join(t.TempDir(), "joined.json"), ledger, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"only_ledger"}, s.IDs())
}

func TestLoadMalformedSnapshotDegrades(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "joined.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	ledger := store.NewMemory(fixedClock{now: time.Now()})
	require.NoError(t, ledger.RecordJoin(ctx, "survivor", "+1", time.Now()))

	s, err := Load(ctx, path, ledger, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"survivor"}, s.IDs())
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "joined.json")
	ledger := store.NewMemory(fixedClock{now: time.Now()})

	s, err := Load(ctx, path, ledger, zap.NewNop())
	require.NoError(t, err)
	s.Add("one")
	s.Add("two")
	require.NoError(t, s.Persist())

	reloaded, err := Load(ctx, path, ledger, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, reloaded.IDs())
	assert.Equal(t, 2, reloaded.Len())

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
