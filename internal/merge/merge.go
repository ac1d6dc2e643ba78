// Package merge integrates the three cleaned datasets into the master
// table and derives the financial and operational columns.
package merge

import (
	"math"
	"time"

	"github.com/calidata/opsaudit/internal/clean"
	"github.com/calidata/opsaudit/internal/normalize"
	"github.com/calidata/opsaudit/internal/table"
)

// Derived column names.
const (
	ColPhantom      = "SKU_Fantasma"
	ColRevenue      = "Ingreso"
	ColTotalCost    = "Costo_Total"
	ColMargin       = "Margen_Utilidad"
	ColMarginPct    = "Margen_Pct"
	ColDeliveryGap  = "Brecha_Entrega"
	ColDaysNoReview = "Dias_Sin_Revision"
	ColTicketBinary = "Ticket_Binario"
)

// inventoryCarry are the inventory columns copied onto each transaction
// row; phantom sales get missing values for all of them.
var inventoryCarry = []string{
	clean.ColCategory, clean.ColWarehouse, clean.ColStock,
	clean.ColCleanCost, clean.ColCleanLeadTime, clean.ColLastReview,
}

// feedbackCarry are the feedback columns joined by transaction id; most
// transactions legitimately have none.
var feedbackCarry = []string{
	clean.ColFeedback, clean.ColCustomerAge, clean.ColProductRating,
	clean.ColLogisticRating, clean.ColNPS, clean.ColNPSGroup,
	clean.ColTicket, clean.ColRecommends, clean.ColComment,
}

// Metrics summarizes the master table for the report and the insights
// prompt.
type Metrics struct {
	TotalRecords   int     `json:"total_records"`
	PhantomSales   int     `json:"phantom_sales"`
	PhantomRevenue float64 `json:"phantom_revenue_usd"`
	TotalRevenue   float64 `json:"total_revenue_usd"`
	TotalMargin    float64 `json:"total_margin_usd"`
	MarginPct      float64 `json:"margin_pct"`
	AvgDelivery    float64 `json:"avg_delivery_days"`
	WorstDelivery  float64 `json:"worst_delivery_days"`
	TicketRatePct  float64 `json:"ticket_rate_pct"`
	WithFeedback   int     `json:"records_with_feedback"`
}

// Master left-joins transactions to inventory by SKU and the result to
// feedback by transaction id. Every transaction row is preserved;
// SKU_Fantasma marks the rows whose SKU has no inventory record.
// Derived metrics propagate missing: a phantom sale has no unit cost, so
// its margin stays undefined rather than silently zero.
func Master(inv, tx, fb *table.Table, now time.Time) (*table.Table, Metrics) {
	invBySKU := indexFirst(inv, clean.ColSKU)
	fbByTx := indexFirst(fb, clean.ColTransaction)

	cols := append(tx.Columns(), ColPhantom)
	cols = append(cols, inventoryCarry...)
	cols = append(cols, feedbackCarry...)

	rows := make([][]string, tx.Len())
	var m Metrics
	m.TotalRecords = tx.Len()
	for i := 0; i < tx.Len(); i++ {
		row := tx.Row(i)

		invRow, found := invBySKU[tx.Cell(i, clean.ColSKU)]
		if found {
			row = append(row, "false")
			for _, c := range inventoryCarry {
				row = append(row, inv.Cell(invRow, c))
			}
		} else {
			m.PhantomSales++
			if price, ok := clean.ParseNumber(tx.Cell(i, clean.ColPrice)); ok {
				m.PhantomRevenue += price
			}
			row = append(row, "true")
			for range inventoryCarry {
				row = append(row, table.Missing)
			}
		}

		if fbRow, ok := fbByTx[tx.Cell(i, clean.ColTransaction)]; ok {
			m.WithFeedback++
			for _, c := range feedbackCarry {
				row = append(row, fb.Cell(fbRow, c))
			}
		} else {
			for range feedbackCarry {
				row = append(row, table.Missing)
			}
		}
		rows[i] = row
	}

	master := table.New(cols, rows)
	master = deriveColumns(master, now)
	fillMetrics(&m, master)
	return master, m
}

// indexFirst maps key value to the first row holding it. Keys are unique
// post-clean for inventory; for feedback the first row wins.
func indexFirst(t *table.Table, keyCol string) map[string]int {
	idx := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		k := t.Cell(i, keyCol)
		if k == table.Missing {
			continue
		}
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

func deriveColumns(t *table.Table, now time.Time) *table.Table {
	n := t.Len()
	revenue := make([]string, n)
	totalCost := make([]string, n)
	margin := make([]string, n)
	marginPct := make([]string, n)
	gap := make([]string, n)
	daysNoReview := make([]string, n)
	ticketBin := make([]string, n)

	for i := 0; i < n; i++ {
		qty, okQty := clean.ParseNumber(t.Cell(i, clean.ColQuantity))
		price, okPrice := clean.ParseNumber(t.Cell(i, clean.ColPrice))
		unitCost, okCost := clean.ParseNumber(t.Cell(i, clean.ColCleanCost))
		shipping, okShip := clean.ParseNumber(t.Cell(i, clean.ColShipping))
		delivery, okDel := clean.ParseNumber(t.Cell(i, clean.ColCleanDelivery))
		leadTime, okLead := clean.ParseNumber(t.Cell(i, clean.ColCleanLeadTime))

		rev := math.NaN()
		if okQty && okPrice {
			rev = qty * price
			revenue[i] = clean.FormatNumber(rev)
		}
		if okQty && okCost && okShip {
			tc := qty*unitCost + shipping
			totalCost[i] = clean.FormatNumber(tc)
			if !math.IsNaN(rev) {
				mg := rev - tc
				margin[i] = clean.FormatNumber(mg)
				if rev != 0 {
					marginPct[i] = clean.FormatNumber(round2(mg / rev * 100))
				}
			}
		}
		if okDel && okLead {
			gap[i] = clean.FormatNumber(delivery - leadTime)
		}
		if ts, ok := clean.ParseTime(t.Cell(i, clean.ColLastReview)); ok {
			days := int(now.Sub(ts).Hours() / 24)
			daysNoReview[i] = clean.FormatNumber(float64(days))
		}
		switch t.Cell(i, clean.ColTicket) {
		case normalize.Yes:
			ticketBin[i] = "1"
		case normalize.No:
			ticketBin[i] = "0"
		}
	}

	t, _ = t.WithColumn(ColRevenue, revenue)
	t, _ = t.WithColumn(ColTotalCost, totalCost)
	t, _ = t.WithColumn(ColMargin, margin)
	t, _ = t.WithColumn(ColMarginPct, marginPct)
	t, _ = t.WithColumn(ColDeliveryGap, gap)
	t, _ = t.WithColumn(ColDaysNoReview, daysNoReview)
	t, _ = t.WithColumn(ColTicketBinary, ticketBin)
	return t
}

func fillMetrics(m *Metrics, master *table.Table) {
	var deliveries []float64
	tickets, answered := 0, 0
	for i := 0; i < master.Len(); i++ {
		if v, ok := clean.ParseNumber(master.Cell(i, ColRevenue)); ok {
			m.TotalRevenue += v
		}
		if v, ok := clean.ParseNumber(master.Cell(i, ColMargin)); ok {
			m.TotalMargin += v
		}
		if v, ok := clean.ParseNumber(master.Cell(i, clean.ColCleanDelivery)); ok {
			deliveries = append(deliveries, v)
		}
		switch master.Cell(i, clean.ColTicket) {
		case normalize.Yes:
			tickets++
			answered++
		case normalize.No:
			answered++
		}
	}
	if m.TotalRevenue > 0 {
		m.MarginPct = round2(m.TotalMargin / m.TotalRevenue * 100)
	}
	for _, d := range deliveries {
		m.AvgDelivery += d
		if d > m.WorstDelivery {
			m.WorstDelivery = d
		}
	}
	if len(deliveries) > 0 {
		m.AvgDelivery = round2(m.AvgDelivery / float64(len(deliveries)))
	}
	if answered > 0 {
		m.TicketRatePct = round2(float64(tickets) * 100 / float64(answered))
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
