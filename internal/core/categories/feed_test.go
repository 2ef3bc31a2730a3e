package categories

import (
	"testing"

	"herdbook/internal/core"
)

func TestBuildFeed_Complete(t *testing.T) {
	row := core.Row{
		"delivered_on": "2024-02-20",
		"feed_type":    "grower",
		"supplier":     "Nonghyup Feed",
		"quantity_kg":  "1500",
		"unit_price":   "720.5",
		"notes":        "pallet delivery",
	}

	rec, err := buildFeed(row)
	if err != nil {
		t.Fatalf("buildFeed failed: %v", err)
	}

	feed := rec.(FeedRecord)
	if feed.FeedType != "grower" {
		t.Errorf("FeedType = %q, want %q", feed.FeedType, "grower")
	}
	if got := core.NumericString(feed.QuantityKg); got != "1500" {
		t.Errorf("QuantityKg = %q, want %q", got, "1500")
	}
	if len(rec.Values()) != len(feedDefinition().Columns) {
		t.Errorf("len(Values) = %d, want %d", len(rec.Values()), len(feedDefinition().Columns))
	}
}

func TestBuildFeed_QuantityMustBePositive(t *testing.T) {
	for _, qty := range []string{"0", "-25"} {
		if _, err := buildFeed(core.Row{
			"delivered_on": "2024-02-20",
			"feed_type":    "grower",
			"quantity_kg":  qty,
		}); err == nil {
			t.Errorf("buildFeed accepted quantity_kg %q", qty)
		}
	}
}

func TestFeed_ValidateEndToEnd(t *testing.T) {
	def := feedDefinition()

	if _, rowErr := core.Validate(def, core.Row{
		"delivered_on": "2024-02-20",
		"feed_type":    "grower",
		"quantity_kg":  "1500",
	}, 2); rowErr != nil {
		t.Errorf("Validate rejected minimal valid row: %v", rowErr)
	}

	if _, rowErr := core.Validate(def, core.Row{
		"delivered_on": "2024-02-20",
		"quantity_kg":  "1500",
	}, 3); rowErr == nil {
		t.Error("Validate accepted row without feed_type")
	}

	if _, rowErr := core.Validate(def, core.Row{
		"delivered_on": "2024-02-20",
		"feed_type":    "grower",
		"quantity_kg":  "lots",
	}, 4); rowErr == nil {
		t.Error("Validate accepted unparseable quantity_kg")
	}
}

func TestCategories_Registered(t *testing.T) {
	for _, key := range []core.CategoryKey{core.CategoryBreeding, core.CategorySales, core.CategoryFeed} {
		def, ok := core.Lookup(key)
		if !ok {
			t.Errorf("category %s not registered", key)
			continue
		}
		if def.Build == nil {
			t.Errorf("category %s has no builder", key)
		}
		if len(def.Columns) == 0 || len(def.Specs) == 0 {
			t.Errorf("category %s missing columns or specs", key)
		}
	}
}
