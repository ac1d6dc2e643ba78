package clean

import "github.com/calidata/opsaudit/internal/table"

// dropExactDuplicates removes rows whose full content repeats an earlier
// row. Returns the filtered table and the number of rows removed.
func dropExactDuplicates(t *table.Table) (*table.Table, int) {
	seen := make(map[string]bool, t.Len())
	keep := make([]bool, t.Len())
	removed := 0
	for i := 0; i < t.Len(); i++ {
		k := t.RowKey(i)
		if seen[k] {
			removed++
			continue
		}
		seen[k] = true
		keep[i] = true
	}
	if removed == 0 {
		return t, 0
	}
	return t.Filter(keep), removed
}

// keepFirstByKey enforces key uniqueness keeping the first occurrence,
// the upload-order survivor. Missing keys are all kept.
func keepFirstByKey(t *table.Table, keyCol string) (*table.Table, int) {
	seen := make(map[string]bool, t.Len())
	keep := make([]bool, t.Len())
	removed := 0
	for i := 0; i < t.Len(); i++ {
		k := t.Cell(i, keyCol)
		if k != table.Missing && seen[k] {
			removed++
			continue
		}
		seen[k] = true
		keep[i] = true
	}
	if removed == 0 {
		return t, 0
	}
	return t.Filter(keep), removed
}

// keepLastByKey enforces key uniqueness keeping the last occurrence.
// Inventory sorts by review timestamp first so "last" means most
// recently reviewed.
func keepLastByKey(t *table.Table, keyCol string) (*table.Table, int) {
	last := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		if k := t.Cell(i, keyCol); k != table.Missing {
			last[k] = i
		}
	}
	keep := make([]bool, t.Len())
	removed := 0
	for i := 0; i < t.Len(); i++ {
		k := t.Cell(i, keyCol)
		if k == table.Missing || last[k] == i {
			keep[i] = true
			continue
		}
		removed++
	}
	if removed == 0 {
		return t, 0
	}
	return t.Filter(keep), removed
}
