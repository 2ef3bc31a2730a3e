package core

// validation.go turns one raw row into a typed record or a RowError.
//
// Validation is a pure function with no I/O. Required fields must be
// present after placeholder coercion, typed fields must parse, and the
// category builder computes any derived fields. A panic anywhere inside
// the builder becomes a RowError: one malformed row never aborts the
// batch.

import (
	"fmt"
	"strconv"
)

// Validate checks row against the category's field specs, builds the
// typed record and fingerprints it. line is the 1-based source line,
// recorded in the error context.
func Validate(def CategoryDefinition, row Row, line int) (rec ValidatedRecord, rowErr *RowError) {
	defer func() {
		if r := recover(); r != nil {
			rowErr = newRowError(def, row, line, fmt.Sprintf("internal validation error: %v", r))
		}
	}()

	// Normalizers run on a copy; the caller's row is read-only.
	cells := make(Row, len(row))
	for k, v := range row {
		cells[k] = v
	}

	for _, spec := range def.Specs {
		raw := cells[spec.Name]

		if spec.Normalizer != nil && raw != "" {
			raw = spec.Normalizer(raw)
			cells[spec.Name] = raw
		}

		if raw == "" {
			if spec.Required {
				return ValidatedRecord{}, newRowError(def, row, line, fmt.Sprintf("missing required field %q", spec.Name))
			}
			continue
		}

		if err := ValidateCell(raw, spec); err != nil {
			return ValidatedRecord{}, newRowError(def, row, line, fmt.Sprintf("%s %q: %v", spec.Name, raw, err))
		}
	}

	record, err := def.Build(cells)
	if err != nil {
		return ValidatedRecord{}, newRowError(def, row, line, err.Error())
	}

	return ValidatedRecord{Fingerprint: Fingerprint(record), Record: record}, nil
}

// ValidateCell validates a single non-empty cell value against a field
// specification.
func ValidateCell(value string, spec FieldSpec) error {
	switch spec.Type {
	case FieldDate:
		if !ToPgDate(value).Valid {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD or similar)")
		}
	case FieldNumeric:
		if !ToPgNumeric(value).Valid {
			return fmt.Errorf("invalid number format")
		}
	case FieldInt:
		if !ToPgInt4(value).Valid {
			return fmt.Errorf("invalid integer")
		}
	}
	return nil
}

func newRowError(def CategoryDefinition, row Row, line int, reason string) *RowError {
	return &RowError{
		Reason: reason,
		Row:    row,
		Context: map[string]string{
			"category": string(def.Key),
			"line":     strconv.Itoa(line),
		},
	}
}
