package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumeka/bili2tg/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	ledgerPath := filepath.Join(t.TempDir(), "ledger.toml")
	config := viper.New()
	config.Set("ledger.path", ledgerPath)

	store, err := NewStore(config)
	require.NoError(t, err)

	return store, ledgerPath
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, ledgerPath := newTestStore(t)
	ctx := context.Background()

	first := domain.LedgerEntry{
		ItemID:      "BV1a",
		Title:       "first",
		FirstSource: domain.SourceUpvote,
		FirstSeenAt: time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC),
		Notified:    true,
	}
	second := domain.LedgerEntry{
		ItemID:      "BV2b",
		Title:       "second",
		FirstSource: domain.SourceView,
		FirstSeenAt: time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.Upsert(ctx, first))
	require.NoError(t, store.UpsertMany(ctx, []domain.LedgerEntry{second}))

	entries, err := store.FindByIDs(ctx, []domain.ItemID{"BV1a", "BV2b", "BV-missing"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.LedgerEntry{first, second}, entries)

	// A fresh store over the same path sees the persisted state.
	config := viper.New()
	config.Set("ledger.path", ledgerPath)
	reopened, err := NewStore(config)
	require.NoError(t, err)

	entries, err = reopened.FindByIDs(ctx, []domain.ItemID{"BV1a"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first, entries[0])
}

func TestUpsertReplacesExistingEntry(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	entry := domain.LedgerEntry{
		ItemID:      "BV1a",
		Title:       "before",
		FirstSource: domain.SourceView,
		FirstSeenAt: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Upsert(ctx, entry))

	entry.Title = "after"
	entry.Notified = true
	require.NoError(t, store.Upsert(ctx, entry))

	entries, err := store.FindByIDs(ctx, []domain.ItemID{"BV1a"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].Title)
	assert.True(t, entries[0].Notified)
}

func TestFindByIDsOnMissingFileReturnsNothing(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	entries, err := store.FindByIDs(context.Background(), []domain.ItemID{"BV1a"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteKeepsRestrictiveFileMode(t *testing.T) {
	t.Parallel()

	store, ledgerPath := newTestStore(t)
	require.NoError(t, store.Upsert(context.Background(), domain.LedgerEntry{ItemID: "BV1a"}))

	info, err := os.Stat(ledgerPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestUnsupportedSchemaVersionFails(t *testing.T) {
	t.Parallel()

	ledgerPath := filepath.Join(t.TempDir(), "ledger.toml")
	require.NoError(t, os.WriteFile(ledgerPath, []byte("version = 99\n"), 0o600))

	config := viper.New()
	config.Set("ledger.path", ledgerPath)
	store, err := NewStore(config)
	require.NoError(t, err)

	_, err = store.FindByIDs(context.Background(), []domain.ItemID{"BV1a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ledger schema version")
}

func TestStatsCountsNotifiedEntries(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertMany(ctx, []domain.LedgerEntry{
		{ItemID: "BV1a", Title: "a", FirstSource: domain.SourceUpvote, Notified: true},
		{ItemID: "BV2b", Title: "b", FirstSource: domain.SourceView},
		{ItemID: "BV3c", Title: "c", FirstSource: domain.SourceUpvote, Notified: true},
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Tracked)
	assert.Equal(t, 2, stats.Notified)
}
