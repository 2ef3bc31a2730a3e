// Package core implements the import pipeline: reading tabular sources,
// per-category validation, content fingerprinting, and reconciling each
// import against the live ledger. It has no HTTP dependencies and is
// driven by the web layer or by tests directly.
package core

import (
	"fmt"
	"time"
)

// CategoryKey identifies one ledger category.
type CategoryKey string

const (
	CategoryBreeding CategoryKey = "breeding_records"
	CategorySales    CategoryKey = "sale_records"
	CategoryFeed     CategoryKey = "feed_records"
)

// Row is one raw source row, keyed by lowercased header name.
// Cell values are cleaned of CSV artifacts but not yet validated.
type Row map[string]string

// FieldType represents the expected data type for a source field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldNumeric
	FieldInt
)

// FieldSpec defines validation rules for a single source column.
type FieldSpec struct {
	Name       string              // Column header name (lowercase)
	Type       FieldType           // Expected data type
	Required   bool                // Value must be present and non-placeholder
	Normalizer func(string) string // Optional transformation applied before validation
}

// Column describes one persisted domain column of a category table.
type Column struct {
	Name    string
	SQLType string
}

// Field is one canonical domain field of a record: the pair the
// fingerprint is derived from.
type Field struct {
	Name  string
	Value string
}

// Record is a typed, immutable record produced by a category builder.
type Record interface {
	// Fields returns every domain field in declared order. The record's
	// fingerprint is a pure function of exactly these pairs.
	Fields() []Field
	// Values returns insert values aligned with the category's Columns.
	Values() []any
}

// BuildFunc builds a typed record from a row whose cells already passed
// the category's FieldSpec checks.
type BuildFunc func(row Row) (Record, error)

// CategoryDefinition contains everything needed to validate, fingerprint
// and persist one ledger category.
type CategoryDefinition struct {
	Key     CategoryKey
	Label   string   // Display name: "Breeding"
	Table   string   // Backing table name
	Columns []Column // Domain columns, insert order
	Specs   []FieldSpec
	Build   BuildFunc
}

// Headers returns the expected source column names in spec order.
func (d CategoryDefinition) Headers() []string {
	headers := make([]string, len(d.Specs))
	for i, spec := range d.Specs {
		headers[i] = spec.Name
	}
	return headers
}

// ColumnNames returns the persisted domain column names in insert order.
func (d CategoryDefinition) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// ValidatedRecord is a record that passed validation, addressed by its
// content fingerprint.
type ValidatedRecord struct {
	Fingerprint string
	Record      Record
}

// RowError describes one row that failed validation. Collected per run,
// never retried automatically.
type RowError struct {
	Reason  string            `json:"reason"`
	Row     Row               `json:"row"`
	Context map[string]string `json:"context,omitempty"`
}

func (e RowError) Error() string {
	if line, ok := e.Context["line"]; ok {
		return fmt.Sprintf("line %s: %s", line, e.Reason)
	}
	return e.Reason
}

// LifecycleStatus marks a persisted record's state. Records are never
// physically deleted; a record that disappears from a later import is
// flipped to StatusDeleted.
type LifecycleStatus string

const (
	StatusAdded   LifecycleStatus = "ADDED"
	StatusDeleted LifecycleStatus = "DELETED"
	StatusUpdated LifecycleStatus = "UPDATED"
)

// Outcome is the result of one pipeline run.
type Outcome struct {
	RunID        string        `json:"runId"`
	Category     CategoryKey   `json:"category"`
	SourceName   string        `json:"sourceName"`
	SourceDigest string        `json:"sourceDigest"`
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Added        []string      `json:"added"`
	Removed      []string      `json:"removed"`
	Validated    int           `json:"validated"`
	Errored      int           `json:"errored"`
	RowErrors    []RowError    `json:"rowErrors,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Summary returns a one-line human-readable digest of the run.
func (o Outcome) Summary() string {
	if !o.Success {
		return o.Message
	}
	return fmt.Sprintf("validated %d, errored %d, added %d, removed %d",
		o.Validated, o.Errored, len(o.Added), len(o.Removed))
}

// ImportMeta carries run identification into the store so the import
// event is recorded in the same transaction as the diff.
type ImportMeta struct {
	RunID        string
	SourceName   string
	SourceDigest string
	Validated    int
	Errored      int
}
