package clean

import (
	"math"

	"github.com/calidata/opsaudit/internal/stats"
	"github.com/calidata/opsaudit/internal/table"
)

// imputeGroupMedian fills missing entries of vals with the median of the
// row's group, falling back to the global median when the group has no
// usable value. vals and groups are parallel to the table rows; entries
// of vals are either a formatted number or table.Missing. Returns the
// filled column and the number of imputed cells. If no value exists
// anywhere in the column, missing entries stay missing.
func imputeGroupMedian(vals, groups []string) ([]string, int) {
	parsed := make([]float64, len(vals))
	present := make([]bool, len(vals))
	var global []float64
	byGroup := map[string][]float64{}
	for i, s := range vals {
		v, ok := ParseNumber(s)
		if !ok {
			continue
		}
		parsed[i], present[i] = v, true
		global = append(global, v)
		if len(groups) == len(vals) {
			g := groups[i]
			byGroup[g] = append(byGroup[g], v)
		}
	}
	globalMedian := stats.Median(global)

	out := make([]string, len(vals))
	imputed := 0
	for i := range vals {
		if present[i] {
			out[i] = FormatNumber(parsed[i])
			continue
		}
		fill := math.NaN()
		if len(groups) == len(vals) {
			if gv := byGroup[groups[i]]; len(gv) > 0 {
				fill = stats.Median(gv)
			}
		}
		if math.IsNaN(fill) {
			fill = globalMedian
		}
		if math.IsNaN(fill) {
			out[i] = table.Missing
			continue
		}
		out[i] = FormatNumber(fill)
		imputed++
	}
	return out, imputed
}

// imputeMedian is the ungrouped form: missing cells get the global median.
func imputeMedian(vals []string) ([]string, int) {
	return imputeGroupMedian(vals, nil)
}
