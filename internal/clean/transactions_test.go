package clean

import (
	"errors"
	"testing"

	"github.com/calidata/opsaudit/internal/table"
)

func txTable(rows [][]string) *table.Table {
	return table.New(TransactionColumns, rows)
}

func TestTransactionsMissingColumn(t *testing.T) {
	tb := table.New([]string{ColTransaction}, nil)
	_, _, err := Transactions(tb, DefaultPolicy())
	var se *table.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestTransactionsDeliveryClip(t *testing.T) {
	tb := txTable([][]string{
		{"T1", "A1", "bogota", "2026-01-05", "2", "100", "5", "300"},
		{"T2", "A1", "bogota", "2026-01-06", "1", "50", "5", "-3"},
		{"T3", "A1", "bogota", "2026-01-07", "1", "50", "5", "12"},
		{"T4", "A1", "bogota", "2026-01-08", "1", "50", "5", "sin dato"},
	})
	out, _, err := Transactions(tb, DefaultPolicy())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	want := map[string]string{"T1": "180", "T2": "0", "T3": "12", "T4": "12"}
	for i := 0; i < out.Len(); i++ {
		id := out.Cell(i, ColTransaction)
		got := out.Cell(i, ColCleanDelivery)
		if got != want[id] {
			t.Errorf("%s delivery = %q, want %q", id, got, want[id])
		}
		if v, ok := ParseNumber(got); !ok || v < 0 || v > 180 {
			t.Errorf("%s delivery %q outside [0,180]", id, got)
		}
	}
}

func TestTransactionsDropNonPositiveQuantityAndPrice(t *testing.T) {
	tb := txTable([][]string{
		{"T1", "A1", "cali", "2026-01-05", "2", "100", "5", "3"},
		{"T2", "A1", "cali", "2026-01-06", "0", "50", "5", "3"},
		{"T3", "A1", "cali", "2026-01-07", "1", "-50", "5", "3"},
		{"T4", "A1", "cali", "2026-01-08", "x", "50", "5", "3"},
	})
	out, log, err := Transactions(tb, DefaultPolicy())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("rows = %d, want 1", out.Len())
	}
	if got := out.Cell(0, ColTransaction); got != "T1" {
		t.Fatalf("survivor = %s, want T1", got)
	}
	rules := map[string]int{}
	for _, c := range log {
		rules[c.Rule] += c.Count
	}
	if rules["valor_no_positivo"] != 3 {
		t.Fatalf("dropped rows logged = %d, want 3 (%v)", rules["valor_no_positivo"], log)
	}
}

func TestTransactionsDedupKeepsFirstByID(t *testing.T) {
	tb := txTable([][]string{
		{"T1", "A1", "cali", "2026-01-05", "2", "100", "5", "3"},
		{"T1", "A1", "cali", "2026-01-05", "2", "100", "5", "3"}, // exact dup
		{"T1", "A9", "cali", "2026-01-06", "4", "200", "5", "3"}, // same id, different content
		{"T2", "A1", "cali", "2026-01-07", "1", "60", "5", "3"},
	})
	out, _, err := Transactions(tb, DefaultPolicy())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Len())
	}
	if got := out.Cell(0, ColSKU); got != "A1" {
		t.Fatalf("first-seen survivor SKU = %s, want A1", got)
	}
}

func TestTransactionsCityNormalized(t *testing.T) {
	tb := txTable([][]string{
		{"T1", "A1", "BOGOTA", "2026-01-05", "2", "100", "5", "3"},
	})
	out, _, err := Transactions(tb, DefaultPolicy())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if got := out.Cell(0, ColCity); got != "Bogotá" {
		t.Fatalf("city = %q, want Bogotá", got)
	}
}
