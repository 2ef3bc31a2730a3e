package store

// reconcile.go applies one import to a category inside a single
// transaction: load the fingerprint statuses, diff the live set against
// the import, soft-delete the removals, insert the additions, and
// record the import event. Any failure rolls the whole transaction
// back, so a partially applied diff is never visible.
//
// Soft-deleted rows are tombstones: a fingerprint that reappears after
// deletion stays DELETED and is excluded from the insert (and from the
// reported additions), never resurrected.

import (
	"context"
	"fmt"

	goqu "github.com/doug-martin/goqu/v9"

	"herdbook/internal/core"
)

// insertChunkSize bounds the number of rows per INSERT statement.
const insertChunkSize = 500

// Reconcile implements core.Ledger.
func (s *Store) Reconcile(ctx context.Context, def core.CategoryDefinition, records []core.ValidatedRecord, meta core.ImportMeta) (added, removed []string, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	statuses, err := fingerprintStatuses(ctx, tx, def.Table)
	if err != nil {
		return nil, nil, err
	}

	existing := make(map[string]struct{}, len(statuses))
	tombstones := make(map[string]core.LifecycleStatus)
	for fp, status := range statuses {
		if status == core.StatusAdded {
			existing[fp] = struct{}{}
		} else {
			tombstones[fp] = status
		}
	}

	importKeys := make([]string, len(records))
	byKey := make(map[string]core.ValidatedRecord, len(records))
	for i, rec := range records {
		importKeys[i] = rec.Fingerprint
		byKey[rec.Fingerprint] = rec
	}

	toAdd, toRemove := core.DiffKeys(existing, importKeys)
	toAdd, _ = core.SplitTombstoned(toAdd, tombstones)

	if len(toRemove) > 0 {
		if err := softDelete(ctx, tx, def.Table, toRemove); err != nil {
			return nil, nil, err
		}
	}

	if len(toAdd) > 0 {
		if err := insertRecords(ctx, tx, def, toAdd, byKey, meta.SourceDigest); err != nil {
			return nil, nil, err
		}
	}

	if err := recordImportEvent(ctx, tx, def.Key, meta, len(toAdd), len(toRemove)); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return toAdd, toRemove, nil
}

func fingerprintStatuses(ctx context.Context, tx dbtx, table string) (map[string]core.LifecycleStatus, error) {
	sql, args, err := dialect.From(table).
		Select("fingerprint", "lifecycle_status").
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build status query: %w", err)
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query fingerprint statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]core.LifecycleStatus)
	for rows.Next() {
		var fp, status string
		if err := rows.Scan(&fp, &status); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		statuses[fp] = core.LifecycleStatus(status)
	}
	return statuses, rows.Err()
}

func softDelete(ctx context.Context, tx dbtx, table string, fingerprints []string) error {
	sql, args, err := dialect.Update(table).
		Set(goqu.Record{
			"lifecycle_status": string(core.StatusDeleted),
			"updated_at":       goqu.L("now()"),
		}).
		Where(
			goqu.C("fingerprint").In(fingerprints),
			goqu.C("lifecycle_status").Eq(string(core.StatusAdded)),
		).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build soft delete: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx dbtx, def core.CategoryDefinition, toAdd []string, byKey map[string]core.ValidatedRecord, digest string) error {
	cols := make([]any, 0, len(def.Columns)+3)
	cols = append(cols, "fingerprint")
	for _, c := range def.Columns {
		cols = append(cols, c.Name)
	}
	cols = append(cols, "lifecycle_status", "source_digest")

	for start := 0; start < len(toAdd); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(toAdd) {
			end = len(toAdd)
		}

		vals := make([][]interface{}, 0, end-start)
		for _, fp := range toAdd[start:end] {
			rec := byKey[fp]
			row := make([]interface{}, 0, len(cols))
			row = append(row, fp)
			row = append(row, rec.Record.Values()...)
			row = append(row, string(core.StatusAdded), digest)
			vals = append(vals, row)
		}

		sql, args, err := dialect.Insert(def.Table).
			Cols(cols...).
			Vals(vals...).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
	}
	return nil
}

func recordImportEvent(ctx context.Context, tx dbtx, category core.CategoryKey, meta core.ImportMeta, added, removed int) error {
	sql, args, err := dialect.Insert("import_events").
		Rows(goqu.Record{
			"run_id":        meta.RunID,
			"category":      string(category),
			"source_name":   meta.SourceName,
			"source_digest": meta.SourceDigest,
			"validated":     meta.Validated,
			"errored":       meta.Errored,
			"added":         added,
			"removed":       removed,
		}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build import event: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("record import event: %w", err)
	}
	return nil
}
