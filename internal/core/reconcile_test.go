package core

import (
	"reflect"
	"testing"
)

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func TestDiffKeys(t *testing.T) {
	tests := []struct {
		name       string
		existing   map[string]struct{}
		imported   []string
		wantAdd    []string
		wantRemove []string
	}{
		{
			name:       "overlapping sets",
			existing:   keySet("a", "b", "c"),
			imported:   []string{"b", "c", "d"},
			wantAdd:    []string{"d"},
			wantRemove: []string{"a"},
		},
		{
			name:       "identical sets yield empty diff",
			existing:   keySet("a", "b"),
			imported:   []string{"a", "b"},
			wantAdd:    nil,
			wantRemove: nil,
		},
		{
			name:       "empty ledger adds everything",
			existing:   keySet(),
			imported:   []string{"x", "y"},
			wantAdd:    []string{"x", "y"},
			wantRemove: nil,
		},
		{
			name:       "empty import removes everything",
			existing:   keySet("a", "b"),
			imported:   nil,
			wantAdd:    nil,
			wantRemove: []string{"a", "b"},
		},
		{
			name:       "duplicate import keys counted once",
			existing:   keySet("a"),
			imported:   []string{"a", "b", "b"},
			wantAdd:    []string{"b"},
			wantRemove: nil,
		},
		{
			name:       "both empty",
			existing:   keySet(),
			imported:   nil,
			wantAdd:    nil,
			wantRemove: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAdd, gotRemove := DiffKeys(tt.existing, tt.imported)

			if !reflect.DeepEqual(gotAdd, tt.wantAdd) {
				t.Errorf("toAdd = %v, want %v", gotAdd, tt.wantAdd)
			}
			if !reflect.DeepEqual(gotRemove, tt.wantRemove) {
				t.Errorf("toRemove = %v, want %v", gotRemove, tt.wantRemove)
			}
		})
	}
}

func TestDiffKeys_SortedOutput(t *testing.T) {
	gotAdd, gotRemove := DiffKeys(keySet("z", "m", "a"), []string{"q", "b"})

	if !reflect.DeepEqual(gotAdd, []string{"b", "q"}) {
		t.Errorf("toAdd = %v, want sorted [b q]", gotAdd)
	}
	if !reflect.DeepEqual(gotRemove, []string{"a", "m", "z"}) {
		t.Errorf("toRemove = %v, want sorted [a m z]", gotRemove)
	}
}

func TestDiffKeys_Idempotent(t *testing.T) {
	existing := keySet("a", "b", "c")
	imported := []string{"b", "c", "d"}

	toAdd, toRemove := DiffKeys(existing, imported)

	// Apply the diff, then re-diff the same import against the result.
	for _, k := range toAdd {
		existing[k] = struct{}{}
	}
	for _, k := range toRemove {
		delete(existing, k)
	}

	toAdd, toRemove = DiffKeys(existing, imported)
	if len(toAdd) != 0 || len(toRemove) != 0 {
		t.Errorf("re-diff after apply = add %v remove %v, want empty", toAdd, toRemove)
	}
}

func TestSplitTombstoned(t *testing.T) {
	tombstones := map[string]LifecycleStatus{
		"b": StatusDeleted,
		"d": StatusDeleted,
	}

	fresh, tombstoned := SplitTombstoned([]string{"a", "b", "c"}, tombstones)

	if !reflect.DeepEqual(fresh, []string{"a", "c"}) {
		t.Errorf("fresh = %v, want [a c]", fresh)
	}
	if !reflect.DeepEqual(tombstoned, []string{"b"}) {
		t.Errorf("tombstoned = %v, want [b]", tombstoned)
	}
}

func TestSplitTombstoned_NoTombstones(t *testing.T) {
	fresh, tombstoned := SplitTombstoned([]string{"a", "b"}, nil)

	if !reflect.DeepEqual(fresh, []string{"a", "b"}) {
		t.Errorf("fresh = %v, want [a b]", fresh)
	}
	if len(tombstoned) != 0 {
		t.Errorf("tombstoned = %v, want empty", tombstoned)
	}
}

func TestDedupeRecords(t *testing.T) {
	records := []ValidatedRecord{
		{Fingerprint: "aaa"},
		{Fingerprint: "bbb"},
		{Fingerprint: "aaa"},
		{Fingerprint: "ccc"},
		{Fingerprint: "bbb"},
	}

	out := DedupeRecords(records)

	want := []string{"aaa", "bbb", "ccc"}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i, rec := range out {
		if rec.Fingerprint != want[i] {
			t.Errorf("out[%d].Fingerprint = %q, want %q (first-seen order)", i, rec.Fingerprint, want[i])
		}
	}
}

func TestDedupeRecords_NoDuplicates(t *testing.T) {
	records := []ValidatedRecord{{Fingerprint: "a"}, {Fingerprint: "b"}}

	out := DedupeRecords(records)
	if len(out) != 2 {
		t.Errorf("len = %d, want 2", len(out))
	}
}

func TestDedupeRecords_Empty(t *testing.T) {
	if out := DedupeRecords(nil); len(out) != 0 {
		t.Errorf("DedupeRecords(nil) = %v, want empty", out)
	}
}
