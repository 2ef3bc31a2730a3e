// Package store persists the ledger in PostgreSQL. Each category owns
// one table keyed by record fingerprint; an append-only import_events
// table records every applied import and backs the duplicate-source
// lookup.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goqu "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"herdbook/internal/core"
)

var dialect = goqu.Dialect("postgres")

// Store is the pgx-backed ledger. It implements core.Ledger.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on top of an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// SourceApplied reports whether an import with this whole-file digest
// was already applied to the category. Backed by an index on
// (category, source_digest) so the duplicate gate stays O(1).
func (s *Store) SourceApplied(ctx context.Context, category core.CategoryKey, digest string) (bool, error) {
	sql, args, err := dialect.From("import_events").
		Select("id").
		Where(goqu.Ex{"category": string(category), "source_digest": digest}).
		Limit(1).
		Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build duplicate query: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query import events: %w", err)
	}
	return true, nil
}

// ImportEvent is one row of the import history.
type ImportEvent struct {
	RunID        string    `json:"runId"`
	Category     string    `json:"category"`
	SourceName   string    `json:"sourceName"`
	SourceDigest string    `json:"sourceDigest"`
	Validated    int       `json:"validated"`
	Errored      int       `json:"errored"`
	Added        int       `json:"added"`
	Removed      int       `json:"removed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// History returns the most recent import events for a category, newest
// first.
func (s *Store) History(ctx context.Context, category core.CategoryKey, limit int) ([]ImportEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	sql, args, err := dialect.From("import_events").
		Select("run_id", "category", "source_name", "source_digest",
			"validated", "errored", "added", "removed", "created_at").
		Where(goqu.Ex{"category": string(category)}).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query import history: %w", err)
	}
	defer rows.Close()

	var events []ImportEvent
	for rows.Next() {
		var ev ImportEvent
		if err := rows.Scan(&ev.RunID, &ev.Category, &ev.SourceName, &ev.SourceDigest,
			&ev.Validated, &ev.Errored, &ev.Added, &ev.Removed, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
