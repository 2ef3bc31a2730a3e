package categories

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"herdbook/internal/core"
)

func init() {
	core.Register(feedDefinition())
}

// FeedRecord is one feed delivery.
type FeedRecord struct {
	DeliveredOn pgtype.Date
	FeedType    string
	Supplier    pgtype.Text
	QuantityKg  pgtype.Numeric
	UnitPrice   pgtype.Numeric
	Notes       pgtype.Text
}

func (r FeedRecord) Fields() []core.Field {
	return []core.Field{
		{Name: "delivered_on", Value: core.DateString(r.DeliveredOn)},
		{Name: "feed_type", Value: r.FeedType},
		{Name: "supplier", Value: core.TextString(r.Supplier)},
		{Name: "quantity_kg", Value: core.NumericString(r.QuantityKg)},
		{Name: "unit_price", Value: core.NumericString(r.UnitPrice)},
		{Name: "notes", Value: core.TextString(r.Notes)},
	}
}

func (r FeedRecord) Values() []any {
	return []any{
		r.DeliveredOn, r.FeedType, r.Supplier,
		r.QuantityKg, r.UnitPrice, r.Notes,
	}
}

func feedDefinition() core.CategoryDefinition {
	return core.CategoryDefinition{
		Key:   core.CategoryFeed,
		Label: "Feed",
		Table: "feed_records",
		Columns: []core.Column{
			{Name: "delivered_on", SQLType: "date NOT NULL"},
			{Name: "feed_type", SQLType: "text NOT NULL"},
			{Name: "supplier", SQLType: "text"},
			{Name: "quantity_kg", SQLType: "numeric NOT NULL"},
			{Name: "unit_price", SQLType: "numeric"},
			{Name: "notes", SQLType: "text"},
		},
		Specs: []core.FieldSpec{
			{Name: "delivered_on", Type: core.FieldDate, Required: true},
			{Name: "feed_type", Type: core.FieldText, Required: true, Normalizer: core.NormalizeText},
			{Name: "supplier", Type: core.FieldText, Normalizer: core.NormalizeText},
			{Name: "quantity_kg", Type: core.FieldNumeric, Required: true},
			{Name: "unit_price", Type: core.FieldNumeric},
			{Name: "notes", Type: core.FieldText, Normalizer: core.NormalizeText},
		},
		Build: buildFeed,
	}
}

func buildFeed(row core.Row) (core.Record, error) {
	rec := FeedRecord{
		DeliveredOn: core.ToPgDate(row["delivered_on"]),
		FeedType:    row["feed_type"],
		Supplier:    core.ToPgText(row["supplier"]),
		QuantityKg:  core.ToPgNumeric(row["quantity_kg"]),
		UnitPrice:   core.ToPgNumeric(row["unit_price"]),
		Notes:       core.ToPgText(row["notes"]),
	}

	if rec.QuantityKg.Int != nil && rec.QuantityKg.Int.Sign() <= 0 {
		return nil, fmt.Errorf("quantity_kg must be positive")
	}

	return rec, nil
}
