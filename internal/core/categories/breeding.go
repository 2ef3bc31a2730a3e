// Package categories defines the ledger categories: one explicit record
// struct, field-spec set and builder per category, registered with the
// core registry at init. Derived fields are computed here so the same
// business rules apply no matter which surface fed the row in.
package categories

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"herdbook/internal/core"
)

func init() {
	core.Register(breedingDefinition())
}

// BreedingRecord is one sow breeding cycle.
type BreedingRecord struct {
	SowTag     string
	BoarTag    pgtype.Text
	MatedOn    pgtype.Date
	FarrowedOn pgtype.Date
	BornTotal  pgtype.Int4
	BornMale   pgtype.Int4
	BornFemale pgtype.Int4
	Weaned     pgtype.Int4
	Notes      pgtype.Text
}

func (r BreedingRecord) Fields() []core.Field {
	return []core.Field{
		{Name: "sow_tag", Value: r.SowTag},
		{Name: "boar_tag", Value: core.TextString(r.BoarTag)},
		{Name: "mated_on", Value: core.DateString(r.MatedOn)},
		{Name: "farrowed_on", Value: core.DateString(r.FarrowedOn)},
		{Name: "born_total", Value: core.Int4String(r.BornTotal)},
		{Name: "born_male", Value: core.Int4String(r.BornMale)},
		{Name: "born_female", Value: core.Int4String(r.BornFemale)},
		{Name: "weaned", Value: core.Int4String(r.Weaned)},
		{Name: "notes", Value: core.TextString(r.Notes)},
	}
}

func (r BreedingRecord) Values() []any {
	return []any{
		r.SowTag, r.BoarTag, r.MatedOn, r.FarrowedOn,
		r.BornTotal, r.BornMale, r.BornFemale, r.Weaned, r.Notes,
	}
}

func breedingDefinition() core.CategoryDefinition {
	return core.CategoryDefinition{
		Key:   core.CategoryBreeding,
		Label: "Breeding",
		Table: "breeding_records",
		Columns: []core.Column{
			{Name: "sow_tag", SQLType: "text NOT NULL"},
			{Name: "boar_tag", SQLType: "text"},
			{Name: "mated_on", SQLType: "date NOT NULL"},
			{Name: "farrowed_on", SQLType: "date"},
			{Name: "born_total", SQLType: "integer"},
			{Name: "born_male", SQLType: "integer"},
			{Name: "born_female", SQLType: "integer"},
			{Name: "weaned", SQLType: "integer"},
			{Name: "notes", SQLType: "text"},
		},
		Specs: []core.FieldSpec{
			{Name: "sow_tag", Type: core.FieldText, Required: true, Normalizer: core.NormalizeText},
			{Name: "boar_tag", Type: core.FieldText, Normalizer: core.NormalizeText},
			{Name: "mated_on", Type: core.FieldDate, Required: true},
			{Name: "farrowed_on", Type: core.FieldDate},
			{Name: "born_total", Type: core.FieldInt},
			{Name: "born_male", Type: core.FieldInt},
			{Name: "born_female", Type: core.FieldInt},
			{Name: "weaned", Type: core.FieldInt},
			{Name: "notes", Type: core.FieldText, Normalizer: core.NormalizeText},
		},
		Build: buildBreeding,
	}
}

func buildBreeding(row core.Row) (core.Record, error) {
	rec := BreedingRecord{
		SowTag:     row["sow_tag"],
		BoarTag:    core.ToPgText(row["boar_tag"]),
		MatedOn:    core.ToPgDate(row["mated_on"]),
		FarrowedOn: core.ToPgDate(row["farrowed_on"]),
		BornTotal:  core.ToPgInt4(row["born_total"]),
		BornMale:   core.ToPgInt4(row["born_male"]),
		BornFemale: core.ToPgInt4(row["born_female"]),
		Weaned:     core.ToPgInt4(row["weaned"]),
		Notes:      core.ToPgText(row["notes"]),
	}

	// Exports often carry only the total and male counts; the female
	// split is derived.
	if !rec.BornFemale.Valid && rec.BornTotal.Valid && rec.BornMale.Valid {
		female := rec.BornTotal.Int32 - rec.BornMale.Int32
		if female < 0 {
			return nil, fmt.Errorf("born_male (%d) exceeds born_total (%d)", rec.BornMale.Int32, rec.BornTotal.Int32)
		}
		rec.BornFemale = pgtype.Int4{Int32: female, Valid: true}
	}

	if rec.FarrowedOn.Valid && rec.FarrowedOn.Time.Before(rec.MatedOn.Time) {
		return nil, fmt.Errorf("farrowed_on precedes mated_on")
	}

	return rec, nil
}
