package clean

import (
	"time"

	"github.com/calidata/opsaudit/internal/normalize"
	"github.com/calidata/opsaudit/internal/stats"
	"github.com/calidata/opsaudit/internal/table"
)

// Inventory column names, raw and derived.
const (
	ColSKU          = "SKU_ID"
	ColCategory     = "Categoria"
	ColWarehouse    = "Bodega_Origen"
	ColStock        = "Stock_Actual"
	ColUnitCost     = "Costo_Unitario_USD"
	ColLeadTime     = "Lead_Time_Dias"
	ColReorderPoint = "Punto_Reorden"
	ColLastReview   = "Ultima_Revision"

	ColNegativeStock = "Stock_Negativo"
	ColCleanCost     = "Costo_Unitario_Limpio"
	ColCleanLeadTime = "Lead_Time_Limpio"
)

// InventoryColumns is the required schema of the inventory upload.
var InventoryColumns = []string{
	ColSKU, ColCategory, ColWarehouse, ColStock, ColUnitCost,
	ColLeadTime, ColReorderPoint, ColLastReview,
}

// Inventory cleans the inventory upload. Applied rules, in order:
// warehouse/category normalization, review-date repair (invalid to
// missing, future clamped to now), SKU deduplication keeping the most
// recently reviewed record, negative-stock correction with flagging,
// unit-cost IQR outlier policy plus category-median imputation into
// Costo_Unitario_Limpio, and lead-time imputation by warehouse into
// Lead_Time_Limpio. The pipeline is a fixed point: running it again on
// its own output changes nothing.
func Inventory(t *table.Table, pol Policy, now time.Time) (*table.Table, []Correction, error) {
	if err := table.Require(t, DatasetInventory, InventoryColumns...); err != nil {
		return nil, nil, err
	}
	pol = pol.Normalize()
	log := &corrections{dataset: DatasetInventory}

	t = normalizeColumn(t, log, ColWarehouse, "normalizar_bodega", normalize.Warehouse)
	t = normalizeColumn(t, log, ColCategory, "normalizar_categoria", normalize.Category)
	t = repairReviewDates(t, log, now)
	t = dedupInventory(t, log)
	t = fixNegativeStock(t, log)
	t = coerceNonNegative(t, log, ColReorderPoint)
	t = cleanUnitCost(t, log, pol)
	t = cleanLeadTime(t, log)

	return t, log.entries, nil
}

func normalizeColumn(t *table.Table, log *corrections, col, rule string, f func(string) string) *table.Table {
	vals := t.Col(col)
	changed := 0
	for i, s := range vals {
		n := f(s)
		if n != s {
			changed++
		}
		vals[i] = n
	}
	log.add(col, rule, changed, "valores canonizados")
	t, _ = t.WithColumn(col, vals)
	return t
}

func repairReviewDates(t *table.Table, log *corrections, now time.Time) *table.Table {
	vals := t.Col(ColLastReview)
	invalid, future := 0, 0
	for i, s := range vals {
		if s == table.Missing {
			continue
		}
		ts, ok := ParseTime(s)
		if !ok {
			vals[i] = table.Missing
			invalid++
			continue
		}
		if ts.After(now) {
			ts = now
			future++
		}
		vals[i] = FormatTime(ts)
	}
	log.add(ColLastReview, "fecha_invalida", invalid, "fechas no interpretables pasan a faltante")
	log.add(ColLastReview, "fecha_futura", future, "fechas futuras truncadas a hoy")
	t, _ = t.WithColumn(ColLastReview, vals)
	return t
}

func dedupInventory(t *table.Table, log *corrections) *table.Table {
	sorted := t.SortBy(func(i, j int) bool {
		ti, oki := ParseTime(t.Cell(i, ColLastReview))
		tj, okj := ParseTime(t.Cell(j, ColLastReview))
		if oki != okj {
			return !oki // missing dates sort first, so a dated record wins
		}
		return ti.Before(tj)
	})
	out, removed := keepLastByKey(sorted, ColSKU)
	log.add(ColSKU, "sku_duplicado", removed, "se conserva el registro revisado mas recientemente")
	return out
}

func fixNegativeStock(t *table.Table, log *corrections) *table.Table {
	stock := t.Col(ColStock)
	prior := t.Col(ColNegativeStock) // survives reruns on already-clean data
	flags := make([]string, len(stock))
	negative, nonNumeric := 0, 0
	for i, s := range stock {
		flags[i] = "false"
		if len(prior) == len(stock) && prior[i] == "true" {
			flags[i] = "true"
		}
		if s == table.Missing {
			continue
		}
		v, ok := ParseNumber(s)
		if !ok {
			stock[i] = table.Missing
			nonNumeric++
			continue
		}
		if v < 0 {
			stock[i] = "0"
			flags[i] = "true"
			negative++
		} else {
			stock[i] = FormatNumber(v)
		}
	}
	log.add(ColStock, "stock_no_numerico", nonNumeric, "texto no numerico pasa a faltante")
	log.add(ColStock, "stock_negativo", negative, "stocks negativos corregidos a 0 y marcados")
	t, _ = t.WithColumn(ColStock, stock)
	t, _ = t.WithColumn(ColNegativeStock, flags)
	return t
}

func coerceNonNegative(t *table.Table, log *corrections, col string) *table.Table {
	vals := t.Col(col)
	changed := 0
	for i, s := range vals {
		if s == table.Missing {
			continue
		}
		v, ok := ParseNumber(s)
		if !ok || v < 0 {
			vals[i] = table.Missing
			changed++
			continue
		}
		vals[i] = FormatNumber(v)
	}
	log.add(col, "valor_invalido", changed, "valores no numericos o negativos pasan a faltante")
	t, _ = t.WithColumn(col, vals)
	return t
}

// cleanUnitCost derives Costo_Unitario_Limpio. Costs that are negative or
// outside the IQR fence are handled per policy (row dropped, or value
// replaced by the category median); remaining gaps are filled category
// median first, global median last.
func cleanUnitCost(t *table.Table, log *corrections, pol Policy) *table.Table {
	raw := t.Col(ColUnitCost)
	vals := make([]string, len(raw))
	negative, nonNumeric := 0, 0
	var inRange []float64
	parsed := make([]float64, len(raw))
	valid := make([]bool, len(raw))
	for i, s := range raw {
		if s == table.Missing {
			continue
		}
		v, ok := ParseNumber(s)
		if !ok {
			nonNumeric++
			continue
		}
		if v < 0 {
			negative++
			continue
		}
		parsed[i], valid[i] = v, true
		inRange = append(inRange, v)
	}
	log.add(ColUnitCost, "costo_no_numerico", nonNumeric, "texto no numerico pasa a faltante")
	log.add(ColUnitCost, "costo_negativo", negative, "costos negativos pasan a faltante")

	lo, hi := stats.IQRBounds(inRange, pol.IQRFactor)
	outliers := 0
	dropRow := make([]bool, len(raw))
	for i := range raw {
		if !valid[i] {
			vals[i] = table.Missing
			continue
		}
		v := parsed[i]
		if v < lo || v > hi {
			outliers++
			if pol.CostOutliers == OutlierDrop {
				dropRow[i] = true
			}
			vals[i] = table.Missing // median policy: refill below
			continue
		}
		vals[i] = FormatNumber(v)
	}

	if pol.CostOutliers == OutlierDrop && outliers > 0 {
		keep := make([]bool, t.Len())
		kept := vals[:0]
		for i := range dropRow {
			if !dropRow[i] {
				keep[i] = true
				kept = append(kept, vals[i])
			}
		}
		t = t.Filter(keep)
		vals = kept
		log.add(ColUnitCost, "outlier_costo", outliers, "filas con costos extremos eliminadas (regla IQR)")
	} else {
		log.add(ColUnitCost, "outlier_costo", outliers, "costos extremos reemplazados por mediana de categoria (regla IQR)")
	}

	filled, imputed := imputeGroupMedian(vals, t.Col(ColCategory))
	log.add(ColCleanCost, "imputacion_costo", imputed, "faltantes imputados con mediana de categoria o global")
	t, _ = t.WithColumn(ColCleanCost, filled)
	return t
}

// cleanLeadTime derives Lead_Time_Limpio: non-numeric and negative lead
// times become missing, then warehouse-median imputation.
func cleanLeadTime(t *table.Table, log *corrections) *table.Table {
	raw := t.Col(ColLeadTime)
	vals := make([]string, len(raw))
	invalid := 0
	for i, s := range raw {
		if s == table.Missing {
			vals[i] = table.Missing
			continue
		}
		v, ok := ParseNumber(s)
		if !ok || v < 0 {
			vals[i] = table.Missing
			invalid++
			continue
		}
		vals[i] = FormatNumber(v)
	}
	log.add(ColLeadTime, "lead_time_invalido", invalid, "valores no numericos o negativos pasan a faltante")

	filled, imputed := imputeGroupMedian(vals, t.Col(ColWarehouse))
	log.add(ColCleanLeadTime, "imputacion_lead_time", imputed, "faltantes imputados con mediana de bodega o global")
	t, _ = t.WithColumn(ColCleanLeadTime, filled)
	return t
}
