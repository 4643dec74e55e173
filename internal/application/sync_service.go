package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yumeka/bili2tg/internal/domain"
	"github.com/yumeka/bili2tg/internal/ports"
)

const sendSpacing = time.Second

// SyncService reconciles one cycle's upvote and view observations against
// the ledger and drives the notification sink with at-most-once guarantees.
type SyncService struct {
	session *SessionService
	feed    ports.ActivityFeed
	ledger  ports.LedgerStore
	sink    ports.NotificationSink
	clock   ports.Clock
	logger  *zap.Logger
}

func NewSyncService(session *SessionService, feed ports.ActivityFeed, ledger ports.LedgerStore, sink ports.NotificationSink, clock ports.Clock, logger *zap.Logger) *SyncService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SyncService{
		session: session,
		feed:    feed,
		ledger:  ledger,
		sink:    sink,
		clock:   clock,
		logger:  logger,
	}
}

type fetchResult struct {
	records []domain.ActivityRecord
	err     error
}

// RunCycle executes one synchronization cycle. The cycle aborts with no
// sends and no ledger writes when session acquisition or either fetch
// fails; such cycles are safe to retry on the next trigger.
func (s *SyncService) RunCycle(ctx context.Context) error {
	accountID, err := s.session.EnsureSession(ctx)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}

	upvoteCh := make(chan fetchResult, 1)
	viewCh := make(chan fetchResult, 1)
	go func() {
		records, err := s.feed.RecentUpvotes(ctx, accountID)
		upvoteCh <- fetchResult{records: records, err: err}
	}()
	go func() {
		records, err := s.feed.RecentViews(ctx)
		viewCh <- fetchResult{records: records, err: err}
	}()
	upvotes, views := <-upvoteCh, <-viewCh

	if upvotes.err != nil {
		return fmt.Errorf("fetch upvote stream: %w", upvotes.err)
	}
	if views.err != nil {
		return fmt.Errorf("fetch view stream: %w", views.err)
	}

	ids := distinctIDs(upvotes.records, views.records)
	if len(ids) == 0 {
		return nil
	}

	// One batched lookup for every id seen this cycle.
	existing, err := s.ledger.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("ledger lookup: %w", err)
	}
	known := make(map[domain.ItemID]domain.LedgerEntry, len(existing))
	for _, entry := range existing {
		known[entry.ItemID] = entry
	}

	if err := s.notifyDueUpvotes(ctx, upvotes.records, known); err != nil {
		return err
	}

	return s.recordViewOnly(ctx, views.records, known)
}

// notifyDueUpvotes sends, in upvote-stream order, every upvoted item the
// ledger has not yet marked notified. Sends are sequential and spaced one
// second apart; a failed send aborts the rest of the cycle. Each ledger
// upsert follows its send immediately, so a crash between the two can
// duplicate at most that one item on the next cycle.
func (s *SyncService) notifyDueUpvotes(ctx context.Context, records []domain.ActivityRecord, known map[domain.ItemID]domain.LedgerEntry) error {
	sent := 0
	for _, record := range records {
		entry, exists := known[record.ItemID]
		if exists && entry.Notified {
			continue
		}

		url, err := domain.WatchURL(record.ItemID)
		if err != nil {
			s.logger.Warn("skipping record with unsupported identifier",
				zap.String("item_id", string(record.ItemID)), zap.Error(err))
			continue
		}

		if sent > 0 {
			if err := s.clock.Sleep(ctx, sendSpacing); err != nil {
				return err
			}
		}

		if err := s.sink.Send(ctx, record.Title, url, record.ObservedAt); err != nil {
			return fmt.Errorf("send notification for %s: %w", record.ItemID, err)
		}

		next := domain.LedgerEntry{
			ItemID:      record.ItemID,
			Title:       record.Title,
			FirstSource: record.Source,
			FirstSeenAt: record.ObservedAt,
			Notified:    true,
		}
		if exists {
			next.FirstSource = entry.FirstSource
			next.FirstSeenAt = entry.FirstSeenAt
		}
		if err := s.ledger.Upsert(ctx, next); err != nil {
			return fmt.Errorf("record notification for %s: %w", record.ItemID, err)
		}

		known[record.ItemID] = next
		sent++
		s.logger.Info("notified",
			zap.String("item_id", string(record.ItemID)), zap.String("title", record.Title))
	}

	return nil
}

// recordViewOnly establishes FirstSeenAt for view-stream items the ledger
// has never seen. They are recorded with Notified false and never sent on
// their own; an upvote in a later cycle promotes them.
func (s *SyncService) recordViewOnly(ctx context.Context, records []domain.ActivityRecord, known map[domain.ItemID]domain.LedgerEntry) error {
	var fresh []domain.LedgerEntry
	staged := make(map[domain.ItemID]struct{})
	for _, record := range records {
		if _, ok := known[record.ItemID]; ok {
			continue
		}
		if _, ok := staged[record.ItemID]; ok {
			continue
		}
		staged[record.ItemID] = struct{}{}
		fresh = append(fresh, domain.LedgerEntry{
			ItemID:      record.ItemID,
			Title:       record.Title,
			FirstSource: record.Source,
			FirstSeenAt: record.ObservedAt,
		})
	}

	if len(fresh) == 0 {
		return nil
	}
	if err := s.ledger.UpsertMany(ctx, fresh); err != nil {
		return fmt.Errorf("record view history: %w", err)
	}

	return nil
}

func distinctIDs(lists ...[]domain.ActivityRecord) []domain.ItemID {
	seen := make(map[domain.ItemID]struct{})
	var ids []domain.ItemID
	for _, list := range lists {
		for _, record := range list {
			if _, ok := seen[record.ItemID]; ok {
				continue
			}
			seen[record.ItemID] = struct{}{}
			ids = append(ids, record.ItemID)
		}
	}
	return ids
}
