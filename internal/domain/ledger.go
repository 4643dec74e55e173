package domain

import "time"

// LedgerEntry is the persisted record of one item ever observed. ItemID is
// unique in the store; Notified moves false to true at most once and never
// back.
type LedgerEntry struct {
	ItemID      ItemID
	Title       string
	FirstSource Source
	FirstSeenAt time.Time
	Notified    bool
}
