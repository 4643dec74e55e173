package toml

import (
	"fmt"
	"time"

	"github.com/yumeka/bili2tg/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	Items   []entrySchema `toml:"items"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported ledger schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type entrySchema struct {
	ItemID      string    `toml:"item_id"`
	Title       string    `toml:"title"`
	FirstSource string    `toml:"first_source"`
	FirstSeenAt time.Time `toml:"first_seen_at"`
	Notified    bool      `toml:"notified"`
}

func toSchema(entry domain.LedgerEntry) entrySchema {
	return entrySchema{
		ItemID:      string(entry.ItemID),
		Title:       entry.Title,
		FirstSource: string(entry.FirstSource),
		FirstSeenAt: entry.FirstSeenAt,
		Notified:    entry.Notified,
	}
}

func fromSchema(entry entrySchema) domain.LedgerEntry {
	return domain.LedgerEntry{
		ItemID:      domain.ItemID(entry.ItemID),
		Title:       entry.Title,
		FirstSource: domain.Source(entry.FirstSource),
		FirstSeenAt: entry.FirstSeenAt,
		Notified:    entry.Notified,
	}
}
