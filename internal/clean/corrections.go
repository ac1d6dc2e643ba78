// Package clean implements the per-dataset cleaning pipelines. Each
// cleaner takes an immutable table and returns a new table plus a
// structured log of every rule that changed data.
package clean

import "fmt"

// Dataset names used in schema errors and correction logs.
const (
	DatasetInventory    = "inventario"
	DatasetTransactions = "transacciones"
	DatasetFeedback     = "feedback"
)

// Correction records one applied cleaning rule: which column it touched,
// how many cells or rows it changed, and a human-readable description.
type Correction struct {
	Dataset string `json:"dataset"`
	Column  string `json:"column"`
	Rule    string `json:"rule"`
	Count   int    `json:"count"`
	Detail  string `json:"detail"`
}

func (c Correction) String() string {
	return fmt.Sprintf("%s/%s: %s (%d) %s", c.Dataset, c.Column, c.Rule, c.Count, c.Detail)
}

// corrections accumulates the log for one cleaner run. Rules that change
// nothing are not recorded.
type corrections struct {
	dataset string
	entries []Correction
}

func (c *corrections) add(column, rule string, count int, detail string) {
	if count == 0 {
		return
	}
	c.entries = append(c.entries, Correction{
		Dataset: c.dataset,
		Column:  column,
		Rule:    rule,
		Count:   count,
		Detail:  detail,
	})
}
