// Package memory implements an in-memory ledger store for development and
// testing.
package memory

import (
	"context"
	"sync"

	"github.com/yumeka/bili2tg/internal/domain"
	"github.com/yumeka/bili2tg/internal/ports"
)

type Store struct {
	mu      sync.Mutex
	entries map[domain.ItemID]domain.LedgerEntry
}

var _ ports.LedgerStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{entries: make(map[domain.ItemID]domain.LedgerEntry)}
}

func (s *Store) FindByIDs(ctx context.Context, ids []domain.ItemID) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := s.entries[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *Store) Upsert(ctx context.Context, entry domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ItemID] = entry
	return nil
}

func (s *Store) UpsertMany(ctx context.Context, entries []domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		s.entries[entry.ItemID] = entry
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (ports.LedgerStats, error) {
	if err := ctx.Err(); err != nil {
		return ports.LedgerStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := ports.LedgerStats{Tracked: len(s.entries)}
	for _, entry := range s.entries {
		if entry.Notified {
			stats.Notified++
		}
	}
	return stats, nil
}

// Len reports how many distinct items the ledger holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
