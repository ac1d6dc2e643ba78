package clean

import (
	"github.com/calidata/opsaudit/internal/normalize"
	"github.com/calidata/opsaudit/internal/table"
)

// Feedback column names, raw and derived.
const (
	ColFeedback       = "Feedback_ID"
	ColCustomerAge    = "Edad_Cliente"
	ColProductRating  = "Rating_Producto"
	ColLogisticRating = "Rating_Logistica"
	ColNPS            = "Satisfaccion_NPS"
	ColTicket         = "Ticket_Soporte_Abierto"
	ColRecommends     = "Recomienda_Marca"
	ColComment        = "Comentario_Texto"

	ColNPSGroup = "NPS_Grupo"
)

// NPS group labels, 0-10 scale.
const (
	NPSPromoter  = "Promotor"
	NPSPassive   = "Pasivo"
	NPSDetractor = "Detractor"
)

// FeedbackColumns is the required schema of the customer-feedback upload.
var FeedbackColumns = []string{
	ColFeedback, ColTransaction, ColCustomerAge, ColProductRating,
	ColLogisticRating, ColNPS, ColTicket, ColRecommends, ColComment,
}

// emptyCommentMarker is the placeholder the survey tool writes for a
// skipped comment.
const emptyCommentMarker = "---"

// Feedback cleans the survey upload: deduplication (exact rows, then
// first per feedback id), age bounded to 0-100 and ratings to 1-5 with
// median imputation for the ratings, yes/no normalization of the ticket
// and recommendation flags, NPS coercion with Promotor/Pasivo/Detractor
// grouping, and empty-marker comments to missing.
func Feedback(t *table.Table, pol Policy) (*table.Table, []Correction, error) {
	if err := table.Require(t, DatasetFeedback, FeedbackColumns...); err != nil {
		return nil, nil, err
	}
	log := &corrections{dataset: DatasetFeedback}

	var removed int
	t, removed = dropExactDuplicates(t)
	log.add(ColFeedback, "fila_duplicada", removed, "filas identicas eliminadas")
	t, removed = keepFirstByKey(t, ColFeedback)
	log.add(ColFeedback, "id_duplicado", removed, "se conserva la primera aparicion por id")

	t = boundAndImpute(t, log, ColCustomerAge, 0, 100, "edad_fuera_de_rango")
	t = boundAndImpute(t, log, ColProductRating, 1, 5, "rating_fuera_de_rango")
	t = boundAndImpute(t, log, ColLogisticRating, 1, 5, "rating_fuera_de_rango")
	t = normalizeYesNo(t, log, ColTicket)
	t = normalizeYesNo(t, log, ColRecommends)
	t = groupNPS(t, log)
	t = clearEmptyComments(t, log)

	return t, log.entries, nil
}

// boundAndImpute coerces a numeric column in place: values outside
// [lo, hi] become missing (null-then-impute policy), then the global
// median fills every gap.
func boundAndImpute(t *table.Table, log *corrections, col string, lo, hi float64, rule string) *table.Table {
	vals := t.Col(col)
	out := make([]string, len(vals))
	invalid := 0
	for i, s := range vals {
		if s == table.Missing {
			out[i] = table.Missing
			continue
		}
		v, ok := ParseNumber(s)
		if !ok || v < lo || v > hi {
			out[i] = table.Missing
			invalid++
			continue
		}
		out[i] = FormatNumber(v)
	}
	log.add(col, rule, invalid, "valores fuera de rango pasan a faltante")

	filled, imputed := imputeMedian(out)
	log.add(col, "imputacion_mediana", imputed, "faltantes imputados con mediana global")
	t, _ = t.WithColumn(col, filled)
	return t
}

func normalizeYesNo(t *table.Table, log *corrections, col string) *table.Table {
	vals := t.Col(col)
	changed, unknown := 0, 0
	for i, s := range vals {
		if s == table.Missing {
			continue
		}
		v, ok := normalize.YesNo(s)
		if !ok {
			unknown++
		}
		if v != s {
			changed++
		}
		vals[i] = v
	}
	log.add(col, "normalizar_si_no", changed, "codificaciones variadas llevadas a Sí/No")
	log.add(col, "valor_desconocido", unknown, "literales no reconocidos pasan a faltante")
	t, _ = t.WithColumn(col, vals)
	return t
}

// groupNPS coerces the NPS score (0-10 scale, out-of-range to missing)
// and derives the NPS_Grupo bucket.
func groupNPS(t *table.Table, log *corrections) *table.Table {
	vals := t.Col(ColNPS)
	groups := make([]string, len(vals))
	invalid := 0
	for i, s := range vals {
		if s == table.Missing {
			groups[i] = table.Missing
			continue
		}
		v, ok := ParseNumber(s)
		if !ok || v < 0 || v > 10 {
			vals[i] = table.Missing
			groups[i] = table.Missing
			invalid++
			continue
		}
		vals[i] = FormatNumber(v)
		switch {
		case v >= 9:
			groups[i] = NPSPromoter
		case v >= 7:
			groups[i] = NPSPassive
		default:
			groups[i] = NPSDetractor
		}
	}
	log.add(ColNPS, "nps_invalido", invalid, "valores fuera de la escala 0-10 pasan a faltante")
	t, _ = t.WithColumn(ColNPS, vals)
	t, _ = t.WithColumn(ColNPSGroup, groups)
	return t
}

func clearEmptyComments(t *table.Table, log *corrections) *table.Table {
	vals := t.Col(ColComment)
	cleared := 0
	for i, s := range vals {
		if s == emptyCommentMarker {
			vals[i] = table.Missing
			cleared++
		}
	}
	log.add(ColComment, "comentario_vacio", cleared, "marcador de comentario vacio pasa a faltante")
	t, _ = t.WithColumn(ColComment, vals)
	return t
}
