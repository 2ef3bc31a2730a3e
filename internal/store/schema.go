package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"herdbook/internal/core"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsureSchema creates the import_events table and one table per
// registered category if they do not exist. Idempotent, safe to run at
// every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS import_events (
			id bigserial PRIMARY KEY,
			run_id uuid NOT NULL,
			category text NOT NULL,
			source_name text NOT NULL,
			source_digest text NOT NULL,
			validated integer NOT NULL DEFAULT 0,
			errored integer NOT NULL DEFAULT 0,
			added integer NOT NULL DEFAULT 0,
			removed integer NOT NULL DEFAULT 0,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS import_events_category_digest_idx
			ON import_events (category, source_digest)`,
	}

	for _, def := range core.All() {
		stmts = append(stmts, categoryTableDDL(def),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_status_idx ON %s (lifecycle_status)`,
				def.Table, def.Table))
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func categoryTableDDL(def core.CategoryDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", def.Table)
	b.WriteString("\tfingerprint text PRIMARY KEY,\n")
	for _, col := range def.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", col.Name, col.SQLType)
	}
	b.WriteString("\tlifecycle_status text NOT NULL DEFAULT 'ADDED',\n")
	b.WriteString("\tsource_digest text NOT NULL,\n")
	b.WriteString("\tupdated_at timestamptz NOT NULL DEFAULT now()\n)")
	return b.String()
}
