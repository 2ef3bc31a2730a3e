package core

import "testing"

// fieldsRecord is a minimal Record for fingerprint tests.
type fieldsRecord struct {
	fields []Field
}

func (r fieldsRecord) Fields() []Field { return r.fields }
func (r fieldsRecord) Values() []any   { return nil }

func TestFingerprint_Deterministic(t *testing.T) {
	rec := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
		{Name: "mated_on", Value: "2024-01-15"},
		{Name: "born_total", Value: "12"},
	}}

	first := Fingerprint(rec)
	second := Fingerprint(rec)

	if first != second {
		t.Errorf("Fingerprint not deterministic: %q vs %q", first, second)
	}
	if len(first) != FingerprintLength {
		t.Errorf("Fingerprint length = %d, want %d", len(first), FingerprintLength)
	}
}

func TestFingerprint_IdenticalContentCollides(t *testing.T) {
	a := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
		{Name: "mated_on", Value: "2024-01-15"},
	}}
	b := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
		{Name: "mated_on", Value: "2024-01-15"},
	}}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("records with identical fields produced different fingerprints")
	}
}

func TestFingerprint_ValueChangeChangesHash(t *testing.T) {
	base := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
		{Name: "born_total", Value: "12"},
	}}
	changed := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
		{Name: "born_total", Value: "13"},
	}}

	if Fingerprint(base) == Fingerprint(changed) {
		t.Error("changing a field value did not change the fingerprint")
	}
}

func TestFingerprint_FieldOrderMatters(t *testing.T) {
	forward := fieldsRecord{fields: []Field{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2"},
	}}
	reversed := fieldsRecord{fields: []Field{
		{Name: "b", Value: "2"},
		{Name: "a", Value: "1"},
	}}

	// Declared field order is part of the canonical form.
	if Fingerprint(forward) == Fingerprint(reversed) {
		t.Error("field order did not affect the fingerprint")
	}
}

func TestFingerprint_BoundaryUnambiguous(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not serialize identically.
	a := fieldsRecord{fields: []Field{{Name: "x", Value: "ab"}, {Name: "y", Value: "c"}}}
	b := fieldsRecord{fields: []Field{{Name: "x", Value: "a"}, {Name: "y", Value: "bc"}}}

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("field boundaries are ambiguous in the canonical form")
	}
}

func TestFingerprint_EmptyValues(t *testing.T) {
	withEmpty := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
		{Name: "notes", Value: ""},
	}}
	without := fieldsRecord{fields: []Field{
		{Name: "sow_tag", Value: "S-101"},
	}}

	// An empty optional field still occupies its slot in the canonical form.
	if Fingerprint(withEmpty) == Fingerprint(without) {
		t.Error("empty field was dropped from the canonical form")
	}
}
