package clean

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/calidata/opsaudit/internal/table"
)

var testNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func invTable(rows [][]string) *table.Table {
	return table.New(InventoryColumns, rows)
}

func TestInventoryMissingColumn(t *testing.T) {
	tb := table.New([]string{ColSKU, ColStock}, nil)
	_, _, err := Inventory(tb, DefaultPolicy(), testNow)
	var se *table.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Dataset != DatasetInventory {
		t.Fatalf("dataset = %s", se.Dataset)
	}
}

func TestInventoryNegativeStockFlagged(t *testing.T) {
	tb := invTable([][]string{
		{"A1", "electronica", "MED", "-5", "10", "7", "20", "2026-01-10"},
	})
	out, log, err := Inventory(tb, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if got := out.Cell(0, ColStock); got != "0" {
		t.Fatalf("stock = %q, want 0", got)
	}
	if got := out.Cell(0, ColNegativeStock); got != "true" {
		t.Fatalf("negative flag = %q, want true", got)
	}
	if got := out.Cell(0, ColCleanCost); got != "10" {
		t.Fatalf("clean cost = %q, want 10", got)
	}
	found := false
	for _, c := range log {
		if c.Rule == "stock_negativo" && c.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("correction log missing stock rule: %v", log)
	}
}

func TestInventoryNonNumericCostLoggedAndImputed(t *testing.T) {
	tb := invTable([][]string{
		{"A1", "hogar", "BOG", "5", "10", "7", "20", "2026-01-10"},
		{"A2", "hogar", "BOG", "5", "14", "7", "20", "2026-01-10"},
		{"A3", "hogar", "BOG", "5", "n/a", "7", "20", "2026-01-10"},
	})
	out, log, err := Inventory(tb, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if got := out.Cell(2, ColCleanCost); got != "12" {
		t.Fatalf("clean cost = %q, want the category median 12", got)
	}
	found := false
	for _, c := range log {
		if c.Rule == "costo_no_numerico" && c.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("correction log missing non-numeric cost rule: %v", log)
	}
}

func TestInventorySKUUniqueKeepsMostRecent(t *testing.T) {
	tb := invTable([][]string{
		{"A1", "hogar", "BOG", "5", "10", "7", "20", "2026-01-10"},
		{"A1", "hogar", "BOG", "9", "12", "7", "20", "2026-03-01"},
		{"A2", "hogar", "BOG", "1", "11", "7", "20", "2026-02-01"},
	})
	out, _, err := Inventory(tb, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Len())
	}
	seen := map[string]string{}
	for i := 0; i < out.Len(); i++ {
		sku := out.Cell(i, ColSKU)
		if _, dup := seen[sku]; dup {
			t.Fatalf("duplicate SKU %s survived", sku)
		}
		seen[sku] = out.Cell(i, ColStock)
	}
	if seen["A1"] != "9" {
		t.Fatalf("survivor stock = %q, want the 2026-03-01 record", seen["A1"])
	}
}

func TestInventoryCostImputationNeverLeavesGaps(t *testing.T) {
	tb := invTable([][]string{
		{"A1", "hogar", "BOG", "5", "10", "7", "20", "2026-01-10"},
		{"A2", "hogar", "BOG", "5", "", "7", "20", "2026-01-11"},
		{"A3", "hogar", "BOG", "5", "no aplica", "7", "20", "2026-01-12"},
		{"A4", "moda", "MED", "5", "14", "7", "20", "2026-01-13"},
	})
	out, _, err := Inventory(tb, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if n := out.MissingCount(ColCleanCost); n != 0 {
		t.Fatalf("clean cost has %d missing cells", n)
	}
	// A2 and A3 sit in category Hogar whose only observed cost is 10
	if got := out.Cell(1, ColCleanCost); got != "10" {
		t.Fatalf("imputed cost = %q, want category median 10", got)
	}
}

func TestInventoryCostOutlierMedianPolicy(t *testing.T) {
	rows := [][]string{
		{"A1", "hogar", "BOG", "5", "10", "7", "20", "2026-01-10"},
		{"A2", "hogar", "BOG", "5", "11", "7", "20", "2026-01-11"},
		{"A3", "hogar", "BOG", "5", "9", "7", "20", "2026-01-12"},
		{"A4", "hogar", "BOG", "5", "10", "7", "20", "2026-01-13"},
		{"A5", "hogar", "BOG", "5", "9000", "7", "20", "2026-01-14"},
	}
	out, _, err := Inventory(invTable(rows), DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if out.Len() != 5 {
		t.Fatalf("median policy dropped rows: %d", out.Len())
	}
	if got := out.Cell(4, ColCleanCost); got != "10" {
		t.Fatalf("outlier cost = %q, want category median 10", got)
	}

	pol := DefaultPolicy()
	pol.CostOutliers = OutlierDrop
	out, _, err = Inventory(invTable(rows), pol, testNow)
	if err != nil {
		t.Fatalf("Inventory drop: %v", err)
	}
	if out.Len() != 4 {
		t.Fatalf("drop policy rows = %d, want 4", out.Len())
	}
}

func TestInventoryFutureReviewDateClamped(t *testing.T) {
	tb := invTable([][]string{
		{"A1", "hogar", "BOG", "5", "10", "7", "20", "2027-12-31"},
	})
	out, _, err := Inventory(tb, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if got := out.Cell(0, ColLastReview); got != "2026-08-01" {
		t.Fatalf("review date = %q, want clamped to now", got)
	}
}

func TestInventoryIdempotent(t *testing.T) {
	tb := invTable([][]string{
		{"A1", "Hogar", "MED", "-5", "10", "7", "20", "2026-01-10"},
		{"A1", "hogar", "med", "3", "11", "", "20", "2026-02-10"},
		{"A2", "MODA", "BOG", "4", "900", "9", "20", "2026-01-11"},
		{"A3", "moda", "BOG", "4", "12", "9", "20", "2026-01-12"},
		{"A4", "moda", "BOG", "4", "13", "8", "20", "2026-01-13"},
	})
	once, _, err := Inventory(tb, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	twice, log, err := Inventory(once, DefaultPolicy(), testNow)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for _, c := range log {
		// derived columns are recomputed from the raw ones on every run;
		// what must not happen again is a change to the raw data
		switch c.Rule {
		case "outlier_costo", "imputacion_costo", "imputacion_lead_time":
			continue
		}
		t.Fatalf("second run applied correction: %v", c)
	}
	if once.Len() != twice.Len() {
		t.Fatalf("row count changed: %d -> %d", once.Len(), twice.Len())
	}
	for i := 0; i < once.Len(); i++ {
		if !reflect.DeepEqual(once.Row(i), twice.Row(i)) {
			t.Fatalf("row %d changed:\n%v\n%v", i, once.Row(i), twice.Row(i))
		}
	}
}
