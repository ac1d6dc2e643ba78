package clean

import (
	"fmt"

	"github.com/calidata/opsaudit/internal/normalize"
	"github.com/calidata/opsaudit/internal/table"
)

// Transaction column names, raw and derived.
const (
	ColTransaction  = "Transaccion_ID"
	ColCity         = "Ciudad_Destino"
	ColSaleDate     = "Fecha_Venta"
	ColQuantity     = "Cantidad_Vendida"
	ColPrice        = "Precio_Venta_Final"
	ColShipping     = "Costo_Envio"
	ColDeliveryTime = "Tiempo_Entrega_Dias"

	ColCleanDelivery = "Tiempo_Entrega_Limpio"
)

// TransactionColumns is the required schema of the transactions upload.
var TransactionColumns = []string{
	ColTransaction, ColSKU, ColCity, ColSaleDate, ColQuantity,
	ColPrice, ColShipping, ColDeliveryTime,
}

// Transactions cleans the sales upload: destination-city normalization,
// deduplication (exact rows, then first per transaction id), removal of
// rows without a strictly positive quantity and price, shipping-cost
// repair, sale-date coercion, and delivery-time clipping to
// [0, MaxDeliveryDays] with median imputation into Tiempo_Entrega_Limpio.
func Transactions(t *table.Table, pol Policy) (*table.Table, []Correction, error) {
	if err := table.Require(t, DatasetTransactions, TransactionColumns...); err != nil {
		return nil, nil, err
	}
	pol = pol.Normalize()
	log := &corrections{dataset: DatasetTransactions}

	t = normalizeColumn(t, log, ColCity, "normalizar_ciudad", normalize.City)

	var removed int
	t, removed = dropExactDuplicates(t)
	log.add(ColTransaction, "fila_duplicada", removed, "filas identicas eliminadas")
	t, removed = keepFirstByKey(t, ColTransaction)
	log.add(ColTransaction, "id_duplicado", removed, "se conserva la primera aparicion por id")

	t = dropNonPositive(t, log, ColQuantity)
	t = dropNonPositive(t, log, ColPrice)
	t = coerceNonNegative(t, log, ColShipping)
	t = coerceSaleDates(t, log)
	t = clipDeliveryTime(t, log, pol.MaxDeliveryDays)

	return t, log.entries, nil
}

// dropNonPositive removes rows whose value in col is missing, non-numeric
// or not strictly positive. Quantity and price must be positive for the
// financial metrics to mean anything.
func dropNonPositive(t *table.Table, log *corrections, col string) *table.Table {
	vals := t.Col(col)
	keep := make([]bool, len(vals))
	removed := 0
	for i, s := range vals {
		v, ok := ParseNumber(s)
		if !ok || v <= 0 {
			removed++
			continue
		}
		vals[i] = FormatNumber(v)
		keep[i] = true
	}
	log.add(col, "valor_no_positivo", removed, "filas sin valor estrictamente positivo eliminadas")
	t, _ = t.WithColumn(col, vals)
	if removed == 0 {
		return t
	}
	return t.Filter(keep)
}

func coerceSaleDates(t *table.Table, log *corrections) *table.Table {
	vals := t.Col(ColSaleDate)
	invalid := 0
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
		vals[i] = FormatTime(ts)
	}
	log.add(ColSaleDate, "fecha_invalida", invalid, "fechas no interpretables pasan a faltante")
	t, _ = t.WithColumn(ColSaleDate, vals)
	return t
}

// clipDeliveryTime derives Tiempo_Entrega_Limpio: values clipped to
// [0, maxDays], non-numeric to missing, then global median imputation.
func clipDeliveryTime(t *table.Table, log *corrections, maxDays float64) *table.Table {
	raw := t.Col(ColDeliveryTime)
	vals := make([]string, len(raw))
	clipped, invalid := 0, 0
	for i, s := range raw {
		if s == table.Missing {
			vals[i] = table.Missing
			continue
		}
		v, ok := ParseNumber(s)
		if !ok {
			vals[i] = table.Missing
			invalid++
			continue
		}
		switch {
		case v < 0:
			v = 0
			clipped++
		case v > maxDays:
			v = maxDays
			clipped++
		}
		vals[i] = FormatNumber(v)
	}
	log.add(ColDeliveryTime, "entrega_no_numerica", invalid, "texto no numerico pasa a faltante")
	log.add(ColDeliveryTime, "entrega_fuera_de_rango", clipped,
		fmt.Sprintf("tiempos de entrega recortados al rango [0, %g]", maxDays))

	filled, imputed := imputeMedian(vals)
	log.add(ColCleanDelivery, "imputacion_entrega", imputed, "faltantes imputados con mediana global")
	t, _ = t.WithColumn(ColCleanDelivery, filled)
	return t
}
