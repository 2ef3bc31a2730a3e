package categories

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"

	"herdbook/internal/core"
)

func init() {
	core.Register(salesDefinition())
}

// SaleRecord is one livestock sale.
type SaleRecord struct {
	SoldOn      pgtype.Date
	Buyer       string
	HeadCount   pgtype.Int4
	AvgWeightKg pgtype.Numeric
	UnitPrice   pgtype.Numeric
	TotalAmount pgtype.Numeric
	Notes       pgtype.Text
}

func (r SaleRecord) Fields() []core.Field {
	return []core.Field{
		{Name: "sold_on", Value: core.DateString(r.SoldOn)},
		{Name: "buyer", Value: r.Buyer},
		{Name: "head_count", Value: core.Int4String(r.HeadCount)},
		{Name: "avg_weight_kg", Value: core.NumericString(r.AvgWeightKg)},
		{Name: "unit_price", Value: core.NumericString(r.UnitPrice)},
		{Name: "total_amount", Value: core.NumericString(r.TotalAmount)},
		{Name: "notes", Value: core.TextString(r.Notes)},
	}
}

func (r SaleRecord) Values() []any {
	return []any{
		r.SoldOn, r.Buyer, r.HeadCount, r.AvgWeightKg,
		r.UnitPrice, r.TotalAmount, r.Notes,
	}
}

func salesDefinition() core.CategoryDefinition {
	return core.CategoryDefinition{
		Key:   core.CategorySales,
		Label: "Sales",
		Table: "sale_records",
		Columns: []core.Column{
			{Name: "sold_on", SQLType: "date NOT NULL"},
			{Name: "buyer", SQLType: "text NOT NULL"},
			{Name: "head_count", SQLType: "integer NOT NULL"},
			{Name: "avg_weight_kg", SQLType: "numeric"},
			{Name: "unit_price", SQLType: "numeric"},
			{Name: "total_amount", SQLType: "numeric"},
			{Name: "notes", SQLType: "text"},
		},
		Specs: []core.FieldSpec{
			{Name: "sold_on", Type: core.FieldDate, Required: true},
			{Name: "buyer", Type: core.FieldText, Required: true, Normalizer: core.NormalizeText},
			{Name: "head_count", Type: core.FieldInt, Required: true},
			{Name: "avg_weight_kg", Type: core.FieldNumeric},
			{Name: "unit_price", Type: core.FieldNumeric},
			{Name: "total_amount", Type: core.FieldNumeric},
			{Name: "notes", Type: core.FieldText, Normalizer: core.NormalizeText},
		},
		Build: buildSale,
	}
}

func buildSale(row core.Row) (core.Record, error) {
	rec := SaleRecord{
		SoldOn:      core.ToPgDate(row["sold_on"]),
		Buyer:       row["buyer"],
		HeadCount:   core.ToPgInt4(row["head_count"]),
		AvgWeightKg: core.ToPgNumeric(row["avg_weight_kg"]),
		UnitPrice:   core.ToPgNumeric(row["unit_price"]),
		TotalAmount: core.ToPgNumeric(row["total_amount"]),
		Notes:       core.ToPgText(row["notes"]),
	}

	if rec.HeadCount.Int32 <= 0 {
		return nil, fmt.Errorf("head_count must be positive, got %d", rec.HeadCount.Int32)
	}

	// Exports frequently leave the total blank when unit price is given.
	if !rec.TotalAmount.Valid && rec.UnitPrice.Valid {
		rec.TotalAmount = mulNumericByInt(rec.UnitPrice, rec.HeadCount.Int32)
	}

	return rec, nil
}

// mulNumericByInt multiplies an exact decimal by an integer count
// without a float round trip.
func mulNumericByInt(n pgtype.Numeric, count int32) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   new(big.Int).Mul(n.Int, big.NewInt(int64(count))),
		Exp:   n.Exp,
		Valid: true,
	}
}
