package domain

import "time"

// ItemID is the platform-assigned stable identifier of one piece of content.
type ItemID string

// Source names the feed that produced an observation.
type Source string

const (
	SourceView   Source = "view"
	SourceUpvote Source = "upvote"
)

// ActivityRecord is one observation of a platform item during a single
// polling cycle. Records are rebuilt from the raw feeds every cycle and never
// mutated; persistence happens through LedgerEntry instead.
type ActivityRecord struct {
	ItemID     ItemID
	Title      string
	Source     Source
	ObservedAt time.Time
}
