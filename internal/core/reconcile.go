package core

import "sort"

// DiffKeys computes the minimal add/remove diff between the fingerprints
// currently live in a category and the fingerprints of an import. The
// operation is commutative over its inputs and idempotent: diffing an
// unchanged import against its own result yields two empty sets.
//
// An empty import is not special-cased: it removes every live key, so an
// upload whose rows all failed validation empties the category. That
// mirrors the ledger's historical behavior and is preserved on purpose;
// callers flag such runs for review rather than suppressing them.
func DiffKeys(existing map[string]struct{}, imported []string) (toAdd, toRemove []string) {
	importSet := make(map[string]struct{}, len(imported))
	for _, key := range imported {
		importSet[key] = struct{}{}
	}

	for key := range importSet {
		if _, ok := existing[key]; !ok {
			toAdd = append(toAdd, key)
		}
	}
	for key := range existing {
		if _, ok := importSet[key]; !ok {
			toRemove = append(toRemove, key)
		}
	}

	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

// SplitTombstoned partitions keys slated for insertion into
// fingerprints the table has never seen and fingerprints that already
// exist as soft-deleted rows. A deleted record never transitions back
// to ADDED: a tombstoned fingerprint reappearing in a later import
// stays deleted and must not be re-inserted, or the insert would
// collide with the existing primary key.
func SplitTombstoned(keys []string, statuses map[string]LifecycleStatus) (fresh, tombstoned []string) {
	for _, key := range keys {
		if _, exists := statuses[key]; exists {
			tombstoned = append(tombstoned, key)
			continue
		}
		fresh = append(fresh, key)
	}
	return fresh, tombstoned
}

// DedupeRecords drops later duplicates of a fingerprint, preserving
// first-seen order. Structurally identical rows are the same record.
func DedupeRecords(records []ValidatedRecord) []ValidatedRecord {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, rec := range records {
		if _, ok := seen[rec.Fingerprint]; ok {
			continue
		}
		seen[rec.Fingerprint] = struct{}{}
		out = append(out, rec)
	}
	return out
}
