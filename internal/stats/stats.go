// Package stats wraps the descriptive statistics the cleaning rules
// need. Inputs are the non-missing values of a column.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile returns the q-quantile of vals with linear interpolation
// between order statistics, the convention of the upstream reports.
// Returns NaN for an empty input.
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median returns the middle value of vals, NaN when empty.
func Median(vals []float64) float64 {
	return Quantile(vals, 0.5)
}

// IQRBounds returns the [Q1 - factor*IQR, Q3 + factor*IQR] fence used to
// flag implausible values.
func IQRBounds(vals []float64, factor float64) (lo, hi float64) {
	if len(vals) == 0 {
		return math.Inf(-1), math.Inf(1)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return q1 - factor*iqr, q3 + factor*iqr
}

// Mean returns the arithmetic mean of vals, NaN when empty.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// MeanStd returns the mean and sample standard deviation of vals.
func MeanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	mean, std = stat.MeanStdDev(vals, nil)
	if math.IsNaN(std) { // single value
		std = 0
	}
	return mean, std
}

// SigmaOutliers counts values more than k standard deviations from the
// column mean. A zero deviation column has no outliers.
func SigmaOutliers(vals []float64, k float64) int {
	mean, std := MeanStd(vals)
	if len(vals) == 0 || std == 0 || math.IsNaN(std) {
		return 0
	}
	n := 0
	for _, v := range vals {
		if math.Abs(v-mean) > k*std {
			n++
		}
	}
	return n
}
