package clean

// OutlierPolicy selects what happens to a unit cost outside the IQR fence.
type OutlierPolicy string

const (
	// OutlierMedian replaces the outlier with the median of its category.
	OutlierMedian OutlierPolicy = "median"
	// OutlierDrop removes the whole inventory row. Dropping changes the
	// fence of the next run, so unlike OutlierMedian this policy is not a
	// fixed point: rerunning on its own output can drop further rows.
	OutlierDrop OutlierPolicy = "drop"
)

// Policy carries the tunable cleaning rules. Zero values are replaced by
// the defaults in Normalize.
type Policy struct {
	CostOutliers    OutlierPolicy
	IQRFactor       float64
	MaxDeliveryDays float64
}

// DefaultPolicy matches the reference pipeline: median replacement,
// 1.5x IQR fence, deliveries bounded to half a year.
func DefaultPolicy() Policy {
	return Policy{
		CostOutliers:    OutlierMedian,
		IQRFactor:       1.5,
		MaxDeliveryDays: 180,
	}
}

// Normalize fills unset fields with defaults.
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	if p.CostOutliers != OutlierMedian && p.CostOutliers != OutlierDrop {
		p.CostOutliers = d.CostOutliers
	}
	if p.IQRFactor <= 0 {
		p.IQRFactor = d.IQRFactor
	}
	if p.MaxDeliveryDays <= 0 {
		p.MaxDeliveryDays = d.MaxDeliveryDays
	}
	return p
}
