package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yumeka/bili2tg/internal/domain"
	"github.com/yumeka/bili2tg/internal/ports"
)

// fakeGateway implements ports.AuthGateway and ports.ActivityFeed with
// per-test function hooks.
type fakeGateway struct {
	mu        sync.Mutex
	committed []string

	issueFn   func(ctx context.Context) (domain.QRChallenge, error)
	pollFn    func(ctx context.Context, pollKey string) (domain.QRPollResult, error)
	whoFn     func(ctx context.Context) (int64, error)
	upvotesFn func(ctx context.Context, accountID int64) ([]domain.ActivityRecord, error)
	viewsFn   func(ctx context.Context) ([]domain.ActivityRecord, error)
}

var (
	_ ports.AuthGateway  = (*fakeGateway)(nil)
	_ ports.ActivityFeed = (*fakeGateway)(nil)
)

func (g *fakeGateway) IssueQRChallenge(ctx context.Context) (domain.QRChallenge, error) {
	if g.issueFn == nil {
		return domain.QRChallenge{}, errors.New("unexpected IssueQRChallenge call")
	}
	return g.issueFn(ctx)
}

func (g *fakeGateway) PollQRChallenge(ctx context.Context, pollKey string) (domain.QRPollResult, error) {
	if g.pollFn == nil {
		return domain.QRPollResult{}, errors.New("unexpected PollQRChallenge call")
	}
	return g.pollFn(ctx, pollKey)
}

func (g *fakeGateway) CommitCredential(credential string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.committed = append(g.committed, credential)
}

func (g *fakeGateway) Committed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.committed...)
}

func (g *fakeGateway) WhoAmI(ctx context.Context) (int64, error) {
	if g.whoFn == nil {
		return 0, errors.New("unexpected WhoAmI call")
	}
	return g.whoFn(ctx)
}

func (g *fakeGateway) RecentUpvotes(ctx context.Context, accountID int64) ([]domain.ActivityRecord, error) {
	if g.upvotesFn == nil {
		return nil, nil
	}
	return g.upvotesFn(ctx, accountID)
}

func (g *fakeGateway) RecentViews(ctx context.Context) ([]domain.ActivityRecord, error) {
	if g.viewsFn == nil {
		return nil, nil
	}
	return g.viewsFn(ctx)
}

type fakeCredStore struct {
	mu         sync.Mutex
	credential string
	saved      []string
	loadErr    error
	saveErr    error
}

var _ ports.CredentialStore = (*fakeCredStore)(nil)

func (s *fakeCredStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", s.loadErr
	}
	if s.credential == "" {
		return "", domain.ErrNoCredential
	}
	return s.credential, nil
}

func (s *fakeCredStore) Save(_ context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.credential = credential
	s.saved = append(s.saved, credential)
	return nil
}

func (s *fakeCredStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	return nil
}

// fakeClock advances instantly and records every requested wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

var _ ports.Clock = (*fakeClock)(nil)

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type sinkCall struct {
	title      string
	url        string
	observedAt time.Time
}

type fakeSink struct {
	mu     sync.Mutex
	calls  []sinkCall
	failAt int // 1-based call index that fails; 0 means never
}

var _ ports.NotificationSink = (*fakeSink)(nil)

func (s *fakeSink) Send(_ context.Context, title, url string, observedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{title: title, url: url, observedAt: observedAt})
	if s.failAt != 0 && len(s.calls) == s.failAt {
		return errors.New("sink unavailable")
	}
	return nil
}

func (s *fakeSink) Calls() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

// countingLedger wraps a LedgerStore and records every batched lookup.
type countingLedger struct {
	ports.LedgerStore

	mu      sync.Mutex
	lookups [][]domain.ItemID
}

func (l *countingLedger) FindByIDs(ctx context.Context, ids []domain.ItemID) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	l.lookups = append(l.lookups, append([]domain.ItemID(nil), ids...))
	l.mu.Unlock()
	return l.LedgerStore.FindByIDs(ctx, ids)
}

func (l *countingLedger) Lookups() [][]domain.ItemID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]domain.ItemID(nil), l.lookups...)
}
