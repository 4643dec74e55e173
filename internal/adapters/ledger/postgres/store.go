// Package postgres implements the ledger store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/yumeka/bili2tg/internal/domain"
	"github.com/yumeka/bili2tg/internal/ports"
)

// Store wraps a *sql.DB and implements ports.LedgerStore.
type Store struct {
	sql *sql.DB
}

var _ ports.LedgerStore = (*Store)(nil)

// Open connects, pings, and creates the ledger table if needed.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{sql: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS ledger (
		item_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		first_source TEXT NOT NULL CHECK(first_source IN ('view','upvote')),
		first_seen_at TIMESTAMPTZ NOT NULL,
		notified BOOLEAN NOT NULL DEFAULT FALSE
	);`
	if _, err := s.sql.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate ledger table: %w", err)
	}
	return nil
}

func (s *Store) FindByIDs(ctx context.Context, ids []domain.ItemID) ([]domain.LedgerEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}

	rows, err := s.sql.QueryContext(ctx,
		"SELECT item_id, title, first_source, first_seen_at, notified FROM ledger WHERE item_id = ANY($1)",
		pq.Array(raw),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.ItemID, &entry.Title, &entry.FirstSource, &entry.FirstSeenAt, &entry.Notified); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (ports.LedgerStats, error) {
	var stats ports.LedgerStats
	err := s.sql.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE notified) FROM ledger",
	).Scan(&stats.Tracked, &stats.Notified)
	if err != nil {
		return ports.LedgerStats{}, err
	}
	return stats, nil
}

const upsertStmt = `INSERT INTO ledger (item_id, title, first_source, first_seen_at, notified)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (item_id) DO UPDATE SET
		title = EXCLUDED.title,
		first_source = EXCLUDED.first_source,
		first_seen_at = EXCLUDED.first_seen_at,
		notified = EXCLUDED.notified`

func (s *Store) Upsert(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := s.sql.ExecContext(ctx, upsertStmt,
		string(entry.ItemID), entry.Title, string(entry.FirstSource), entry.FirstSeenAt, entry.Notified)
	return err
}

func (s *Store) UpsertMany(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertStmt)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx,
			string(entry.ItemID), entry.Title, string(entry.FirstSource), entry.FirstSeenAt, entry.Notified); err != nil {
			return err
		}
	}

	return tx.Commit()
}
