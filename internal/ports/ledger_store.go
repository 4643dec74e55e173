package ports

import (
	"context"

	"github.com/yumeka/bili2tg/internal/domain"
)

// LedgerStats summarizes the ledger for the status command.
type LedgerStats struct {
	Tracked  int
	Notified int
}

// LedgerStore is keyed record storage for notification state. Stores replace
// whole entries by ItemID; the sync engine owns all merge semantics and is
// the sole writer.
type LedgerStore interface {
	FindByIDs(ctx context.Context, ids []domain.ItemID) ([]domain.LedgerEntry, error)
	Upsert(ctx context.Context, entry domain.LedgerEntry) error
	UpsertMany(ctx context.Context, entries []domain.LedgerEntry) error
	Stats(ctx context.Context) (LedgerStats, error)
}
