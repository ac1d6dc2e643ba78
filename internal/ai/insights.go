package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/calidata/opsaudit/internal/health"
	"github.com/calidata/opsaudit/internal/merge"
)

// DefaultModel is a fast instruct model available on the default
// endpoint.
const DefaultModel = "llama-3.1-8b-instant"

const systemPrompt = "Eres un Senior Business Strategy & Data Scientist con 15 años de experiencia. " +
	"Tu enfoque no es descriptivo (decir qué pasó), sino diagnóstico (por qué pasó) " +
	"y prescriptivo (qué debemos hacer). Tienes un tono ejecutivo, directo y crítico."

// Summary is the numeric context handed to the model. Raw rows never
// leave the machine.
type Summary struct {
	FilasAnalizadas    int                `json:"filas_analizadas"`
	IngresosTotalesUSD float64            `json:"ingresos_totales_usd"`
	MargenTotalUSD     float64            `json:"margen_total_usd"`
	MargenPct          float64            `json:"margen_pct"`
	EntregaPromedio    float64            `json:"tiempo_entrega_promedio_dias"`
	PeorEntrega        float64            `json:"peor_tiempo_entrega_dias"`
	RiesgoTicketsPct   float64            `json:"riesgo_tickets_pct"`
	VentasFantasma     int                `json:"ventas_fantasma"`
	IngresoFantasmaUSD float64            `json:"ingreso_fantasma_usd"`
	SaludDatos         map[string]float64 `json:"salud_datos"`
}

// BuildSummary condenses the audit into the numbers the model sees.
func BuildSummary(m merge.Metrics, reports []health.Report) Summary {
	s := Summary{
		FilasAnalizadas:    m.TotalRecords,
		IngresosTotalesUSD: m.TotalRevenue,
		MargenTotalUSD:     m.TotalMargin,
		MargenPct:          m.MarginPct,
		EntregaPromedio:    m.AvgDelivery,
		PeorEntrega:        m.WorstDelivery,
		RiesgoTicketsPct:   m.TicketRatePct,
		VentasFantasma:     m.PhantomSales,
		IngresoFantasmaUSD: m.PhantomRevenue,
		SaludDatos:         make(map[string]float64, len(reports)),
	}
	for _, r := range reports {
		s.SaludDatos[r.Dataset] = r.Score
	}
	return s
}

func userPrompt(s Summary) string {
	payload, _ := json.Marshal(s)
	var b strings.Builder
	b.WriteString("Analiza los siguientes KPIs operativos y financieros:\n")
	b.Write(payload)
	b.WriteString("\n\nTu objetivo es entregar un informe ejecutivo de alto nivel que contenga:\n\n")
	b.WriteString("1. **Diagnóstico de la Situación:** Identifica el problema oculto detrás de estos números. ¿Hay una fuga de margen? ¿Un problema de escalabilidad? ¿La eficiencia operativa está comprometiendo la satisfacción del cliente?\n")
	b.WriteString("2. **Análisis de Impacto:** Explica cómo el estado actual afecta la rentabilidad a largo plazo.\n")
	b.WriteString("3. **Plan de Acción Estratégico:** Propone 3 pasos concretos para mitigar los riesgos detectados.\n\n")
	b.WriteString("REGLAS:\n")
	b.WriteString("- No repitas los datos crudos del resumen.\n")
	b.WriteString("- Usa terminología de negocios (Churn, ROI, Eficiencia Operativa, LTV).\n")
	b.WriteString("- Sé incisivo: si los datos muestran una ineficiencia, señálala claramente.\n")
	b.WriteString("- Formato: Usa Markdown con negritas para enfatizar puntos clave.\n")
	return b.String()
}

// Insights asks the model for an executive narrative over the audit
// summary. An empty dataset short-circuits without a network call.
func Insights(ctx context.Context, c *Client, model string, s Summary) (string, error) {
	if s.FilasAnalizadas == 0 {
		return "", errors.New("no hay registros para analizar")
	}
	if model == "" {
		model = DefaultModel
	}
	resp, err := c.Generate(ctx, GenerateRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(s)},
		},
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("respuesta vacía del modelo")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("respuesta vacía del modelo")
	}
	return text, nil
}
