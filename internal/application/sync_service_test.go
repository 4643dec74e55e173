package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumeka/bili2tg/internal/adapters/ledger/memory"
	"github.com/yumeka/bili2tg/internal/domain"
)

type syncFixture struct {
	gateway *fakeGateway
	ledger  *countingLedger
	sink    *fakeSink
	clock   *fakeClock
	service *SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	gateway := &fakeGateway{
		whoFn: func(context.Context) (int64, error) { return 4242, nil },
	}
	ledger := &countingLedger{LedgerStore: memory.NewStore()}
	sink := &fakeSink{}
	clock := &fakeClock{now: time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)}

	session := NewSessionService(gateway, &fakeCredStore{credential: "SESSDATA=stored; "}, clock, nil)
	service := NewSyncService(session, gateway, ledger, sink, clock, nil)

	return &syncFixture{gateway: gateway, ledger: ledger, sink: sink, clock: clock, service: service}
}

func upvote(id domain.ItemID, title string, at time.Time) domain.ActivityRecord {
	return domain.ActivityRecord{ItemID: id, Title: title, Source: domain.SourceUpvote, ObservedAt: at}
}

func view(id domain.ItemID, title string, at time.Time) domain.ActivityRecord {
	return domain.ActivityRecord{ItemID: id, Title: title, Source: domain.SourceView, ObservedAt: at}
}

func (f *syncFixture) entry(t *testing.T, id domain.ItemID) domain.LedgerEntry {
	t.Helper()

	entries, err := f.ledger.FindByIDs(context.Background(), []domain.ItemID{id})
	require.NoError(t, err)
	require.Len(t, entries, 1, "expected a ledger entry for %s", id)
	return entries[0]
}

func TestNewUpvoteTriggersExactlyOneSend(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	at := f.clock.Now()
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{upvote("BV2b", "X", at)}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	calls := f.sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "X", calls[0].title)
	assert.Equal(t, "https://www.bilibili.com/video/BV2b/", calls[0].url)

	entry := f.entry(t, "BV2b")
	assert.True(t, entry.Notified)
	assert.Equal(t, domain.SourceUpvote, entry.FirstSource)
}

func TestNotifiedItemsAreNeverResent(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	require.NoError(t, f.ledger.Upsert(context.Background(), domain.LedgerEntry{
		ItemID: "BV1a", Title: "old", FirstSource: domain.SourceView, Notified: true,
	}))
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{upvote("BV1a", "old", f.clock.Now())}, nil
	}

	// Several cycles observing the same already-notified item send nothing.
	for range 3 {
		require.NoError(t, f.service.RunCycle(context.Background()))
	}
	assert.Empty(t, f.sink.Calls())
}

func TestViewOnlyItemsAreRecordedButNotSent(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	at := f.clock.Now()
	f.gateway.viewsFn = func(context.Context) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{view("BV3c", "Y", at)}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	assert.Empty(t, f.sink.Calls())
	entry := f.entry(t, "BV3c")
	assert.False(t, entry.Notified)
	assert.Equal(t, domain.SourceView, entry.FirstSource)
	assert.Equal(t, at, entry.FirstSeenAt)
}

func TestViewRefreshLeavesExistingEntryUntouched(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	firstSeen := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.ledger.Upsert(context.Background(), domain.LedgerEntry{
		ItemID: "BV3c", Title: "Y", FirstSource: domain.SourceView, FirstSeenAt: firstSeen,
	}))
	f.gateway.viewsFn = func(context.Context) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{view("BV3c", "Y", f.clock.Now())}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	entry := f.entry(t, "BV3c")
	assert.Equal(t, firstSeen, entry.FirstSeenAt)
	assert.False(t, entry.Notified)
}

func TestLedgerLookupIsBatchedOnce(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	at := f.clock.Now()
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{upvote("BV1a", "a", at), upvote("BV2b", "b", at)}, nil
	}
	f.gateway.viewsFn = func(context.Context) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{view("BV2b", "b", at), view("BV3c", "c", at)}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	lookups := f.ledger.Lookups()
	require.Len(t, lookups, 1)
	assert.ElementsMatch(t, []domain.ItemID{"BV1a", "BV2b", "BV3c"}, lookups[0])
}

func TestSendsAreSpacedOneSecondApart(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	at := f.clock.Now()
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{
			upvote("BV1a", "a", at), upvote("BV2b", "b", at), upvote("BV3c", "c", at),
		}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	require.Len(t, f.sink.Calls(), 3)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, f.clock.Sleeps())
}

func TestSendFailureAbortsRemainingSends(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.sink.failAt = 2
	at := f.clock.Now()
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{
			upvote("BV1a", "a", at), upvote("BV2b", "b", at), upvote("BV3c", "c", at),
		}, nil
	}

	err := f.service.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BV2b")

	// The first item was sent and durably recorded; the third was never
	// attempted and stays due for the next cycle.
	require.Len(t, f.sink.Calls(), 2)
	assert.True(t, f.entry(t, "BV1a").Notified)
	entries, lookupErr := f.ledger.FindByIDs(context.Background(), []domain.ItemID{"BV3c"})
	require.NoError(t, lookupErr)
	assert.Empty(t, entries)
}

func TestUpvotedItemAlsoInViewStreamIsSentOnce(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	at := f.clock.Now()
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{upvote("BV1a", "a", at)}, nil
	}
	f.gateway.viewsFn = func(context.Context) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{view("BV1a", "a", at)}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	require.Len(t, f.sink.Calls(), 1)
	entry := f.entry(t, "BV1a")
	assert.True(t, entry.Notified)
	assert.Equal(t, domain.SourceUpvote, entry.FirstSource)
}

func TestUnsupportedIdentifierDegradesOnlyThatRecord(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	at := f.clock.Now()
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{upvote("av170001", "legacy", at), upvote("BV1a", "a", at)}, nil
	}

	require.NoError(t, f.service.RunCycle(context.Background()))

	calls := f.sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "a", calls[0].title)
}

func TestCycleAbortsWhenAFetchFails(t *testing.T) {
	t.Parallel()

	f := newSyncFixture(t)
	f.gateway.upvotesFn = func(context.Context, int64) ([]domain.ActivityRecord, error) {
		return nil, errors.New("boom")
	}
	f.gateway.viewsFn = func(context.Context) ([]domain.ActivityRecord, error) {
		return []domain.ActivityRecord{view("BV3c", "c", f.clock.Now())}, nil
	}

	err := f.service.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upvote stream")

	// No sends and no ledger writes happen on an aborted cycle.
	assert.Empty(t, f.sink.Calls())
	entries, lookupErr := f.ledger.FindByIDs(context.Background(), []domain.ItemID{"BV3c"})
	require.NoError(t, lookupErr)
	assert.Empty(t, entries)
}
