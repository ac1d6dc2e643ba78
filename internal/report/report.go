// Package report renders the audit result as a compact markdown
// document, suitable for a terminal, a file, or an LLM prompt.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/calidata/opsaudit/internal/clean"
	"github.com/calidata/opsaudit/internal/health"
	"github.com/calidata/opsaudit/internal/merge"
	"github.com/calidata/opsaudit/internal/normalize"
	"github.com/calidata/opsaudit/internal/table"
)

// Dataset bundles what the report needs to show for one upload.
type Dataset struct {
	Name        string
	Raw         *table.Table
	Clean       *table.Table
	Health      health.Report
	Corrections []clean.Correction
}

// Input is everything the renderer consumes.
type Input struct {
	RunID    string
	Datasets []Dataset
	Master   *table.Table
	Metrics  merge.Metrics
	// Insights holds the optional LLM narrative; InsightsErr the inline
	// failure message when the call did not succeed.
	Insights    string
	InsightsErr string
}

// sampleRows caps the [SAMPLE ROWS] section.
const sampleRows = 5

// Render produces the full markdown audit.
func Render(in Input) string {
	var b strings.Builder
	b.WriteString("[AUDITORIA OPERACIONAL]\n")
	if in.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", in.RunID)
	}
	fmt.Fprintf(&b, "Registros integrados: %d\n\n", in.Metrics.TotalRecords)

	b.WriteString("[CALIDAD DE DATOS]\n")
	for _, d := range in.Datasets {
		fmt.Fprintf(&b, "- %s: health %.1f (filas %d, duplicados %d, outliers %d, nulos %.1f%%)\n",
			d.Name, d.Health.Score, d.Health.Rows, d.Health.Duplicates,
			d.Health.Outliers, d.Health.MeanNullPct)
	}
	b.WriteString("\n[CORRECCIONES]\n")
	any := false
	for _, d := range in.Datasets {
		for _, c := range d.Corrections {
			fmt.Fprintf(&b, "- %s\n", c)
			any = true
		}
	}
	if !any {
		b.WriteString("- sin correcciones aplicadas\n")
	}

	b.WriteString("\n[VENTAS FANTASMA]\n")
	fmt.Fprintf(&b, "- transacciones sin SKU en inventario: %d\n", in.Metrics.PhantomSales)
	fmt.Fprintf(&b, "- ingreso asociado: %.2f USD\n", in.Metrics.PhantomRevenue)

	b.WriteString("\n[FINANZAS]\n")
	fmt.Fprintf(&b, "- ingreso total: %.2f USD\n", in.Metrics.TotalRevenue)
	fmt.Fprintf(&b, "- margen total: %.2f USD (%.2f%%)\n", in.Metrics.TotalMargin, in.Metrics.MarginPct)
	fmt.Fprintf(&b, "- entrega promedio: %.2f dias (peor caso %.0f)\n", in.Metrics.AvgDelivery, in.Metrics.WorstDelivery)
	fmt.Fprintf(&b, "- tasa de tickets de soporte: %.2f%%\n", in.Metrics.TicketRatePct)

	if in.Master != nil && in.Master.Len() > 0 {
		writeWarehouseRisk(&b, in.Master)
		writeNPSBreakdown(&b, in.Master)
		writeSamples(&b, in.Master)
	}

	if in.Insights != "" {
		b.WriteString("\n[INSIGHTS]\n")
		b.WriteString(strings.TrimSpace(in.Insights))
		b.WriteString("\n")
	} else if in.InsightsErr != "" {
		b.WriteString("\n[INSIGHTS]\n")
		fmt.Fprintf(&b, "x no disponibles: %s\n", in.InsightsErr)
	}
	return b.String()
}

// writeWarehouseRisk prints the support-ticket rate per source warehouse,
// worst first.
func writeWarehouseRisk(b *strings.Builder, master *table.Table) {
	type acc struct{ tickets, answered int }
	byWH := map[string]*acc{}
	for i := 0; i < master.Len(); i++ {
		wh := master.Cell(i, clean.ColWarehouse)
		if wh == table.Missing {
			continue
		}
		a := byWH[wh]
		if a == nil {
			a = &acc{}
			byWH[wh] = a
		}
		switch master.Cell(i, clean.ColTicket) {
		case normalize.Yes:
			a.tickets++
			a.answered++
		case normalize.No:
			a.answered++
		}
	}
	if len(byWH) == 0 {
		return
	}
	type row struct {
		wh   string
		rate float64
		n    int
	}
	rows := make([]row, 0, len(byWH))
	for wh, a := range byWH {
		r := row{wh: wh, n: a.answered}
		if a.answered > 0 {
			r.rate = float64(a.tickets) * 100 / float64(a.answered)
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].rate == rows[j].rate {
			return rows[i].wh < rows[j].wh
		}
		return rows[i].rate > rows[j].rate
	})
	b.WriteString("\n[RIESGO POR BODEGA]\n")
	for _, r := range rows {
		fmt.Fprintf(b, "- %s: %.1f%% tickets (n=%d)\n", r.wh, r.rate, r.n)
	}
}

func writeNPSBreakdown(b *strings.Builder, master *table.Table) {
	counts := map[string]int{}
	total := 0
	for _, g := range master.Col(clean.ColNPSGroup) {
		if g == table.Missing {
			continue
		}
		counts[g]++
		total++
	}
	if total == 0 {
		return
	}
	b.WriteString("\n[NPS]\n")
	for _, g := range []string{clean.NPSPromoter, clean.NPSPassive, clean.NPSDetractor} {
		if n := counts[g]; n > 0 {
			fmt.Fprintf(b, "- %s: %d (%.1f%%)\n", g, n, float64(n)*100/float64(total))
		}
	}
}

func writeSamples(b *strings.Builder, master *table.Table) {
	cols := []string{
		clean.ColTransaction, clean.ColSKU, merge.ColPhantom,
		merge.ColRevenue, merge.ColMargin, merge.ColDeliveryGap,
	}
	b.WriteString("\n[MUESTRA]\n| ")
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString(" |\n|")
	b.WriteString(strings.Repeat(" --- |", len(cols)))
	b.WriteString("\n")
	n := master.Len()
	if n > sampleRows {
		n = sampleRows
	}
	for i := 0; i < n; i++ {
		vals := make([]string, len(cols))
		for j, c := range cols {
			v := master.Cell(i, c)
			if v == table.Missing {
				v = "-"
			}
			vals[j] = strings.ReplaceAll(v, "|", "/")
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(vals, " | "))
	}
}

// Write saves the report atomically: temp file in place, then rename.
func Write(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
