// Package health scores a table's data quality on a 0-100 scale from
// nulls, duplicates and statistical outliers.
package health

import (
	"math"

	"github.com/calidata/opsaudit/internal/clean"
	"github.com/calidata/opsaudit/internal/stats"
	"github.com/calidata/opsaudit/internal/table"
)

// Weights tunes the three penalty terms. Setting Outlier to 0 and the
// other two to 1 reproduces the simple nulls-plus-duplicates score.
type Weights struct {
	Null      float64 `mapstructure:"null" yaml:"null"`
	Duplicate float64 `mapstructure:"duplicate" yaml:"duplicate"`
	Outlier   float64 `mapstructure:"outlier" yaml:"outlier"`
}

// DefaultWeights is the reference weighting.
func DefaultWeights() Weights {
	return Weights{Null: 0.4, Duplicate: 0.2, Outlier: 0.4}
}

// sigmaThreshold flags numeric cells this many standard deviations from
// the column mean as outliers for the penalty term.
const sigmaThreshold = 3

// Report carries the score plus the raw counts behind it for display.
type Report struct {
	Dataset      string             `json:"dataset"`
	Score        float64            `json:"score"`
	Rows         int                `json:"rows"`
	Columns      int                `json:"columns"`
	NullPct      map[string]float64 `json:"null_pct_by_column"`
	MeanNullPct  float64            `json:"mean_null_pct"`
	Duplicates   int                `json:"duplicates"`
	Outliers     int                `json:"outliers"`
	NumericCells int                `json:"numeric_cells"`
}

// Score measures the cleaned table against the raw upload: null
// percentages and outliers come from the cleaned data, the duplicate
// penalty from exact-duplicate rows in the raw upload. An empty table is
// perfectly healthy by definition (score 100), never NaN.
func Score(dataset string, raw, cleaned *table.Table, w Weights) Report {
	rep := Report{
		Dataset: dataset,
		Rows:    cleaned.Len(),
		Columns: len(cleaned.Columns()),
		NullPct: map[string]float64{},
	}
	if cleaned.Len() == 0 || rep.Columns == 0 {
		rep.Score = 100
		return rep
	}

	var nullSum float64
	for _, col := range cleaned.Columns() {
		pct := float64(cleaned.MissingCount(col)) * 100 / float64(cleaned.Len())
		rep.NullPct[col] = pct
		nullSum += pct
	}
	rep.MeanNullPct = nullSum / float64(rep.Columns)

	rep.Duplicates = exactDuplicates(raw)
	dupPct := 0.0
	if raw.Len() > 0 {
		dupPct = float64(rep.Duplicates) * 100 / float64(raw.Len())
	}

	outPct := 0.0
	for _, col := range cleaned.Columns() {
		vals := numericColumn(cleaned, col)
		if len(vals)*2 < cleaned.Len() {
			continue // mostly non-numeric column
		}
		rep.NumericCells += len(vals)
		rep.Outliers += stats.SigmaOutliers(vals, sigmaThreshold)
	}
	if rep.NumericCells > 0 {
		outPct = float64(rep.Outliers) * 100 / float64(rep.NumericCells)
	}

	score := 100 - w.Null*rep.MeanNullPct - w.Duplicate*dupPct - w.Outlier*outPct
	rep.Score = math.Round(math.Max(0, score)*10) / 10
	return rep
}

func exactDuplicates(t *table.Table) int {
	seen := make(map[string]bool, t.Len())
	dups := 0
	for i := 0; i < t.Len(); i++ {
		k := t.RowKey(i)
		if seen[k] {
			dups++
			continue
		}
		seen[k] = true
	}
	return dups
}

func numericColumn(t *table.Table, col string) []float64 {
	var out []float64
	for _, s := range t.Col(col) {
		if v, ok := clean.ParseNumber(s); ok {
			out = append(out, v)
		}
	}
	return out
}
