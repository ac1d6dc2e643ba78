package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/calidata/opsaudit/internal/health"
	"github.com/calidata/opsaudit/internal/merge"
)

func TestBuildSummary(t *testing.T) {
	m := merge.Metrics{
		TotalRecords:  120,
		TotalRevenue:  45000.5,
		TotalMargin:   9000.1,
		MarginPct:     20,
		AvgDelivery:   6.4,
		WorstDelivery: 31,
		TicketRatePct: 12.5,
		PhantomSales:  3,
	}
	reports := []health.Report{
		{Dataset: "inventario", Score: 88.2},
		{Dataset: "transacciones", Score: 95},
	}
	s := BuildSummary(m, reports)
	if s.FilasAnalizadas != 120 || s.VentasFantasma != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.SaludDatos["inventario"] != 88.2 || s.SaludDatos["transacciones"] != 95 {
		t.Fatalf("health scores not carried: %+v", s.SaludDatos)
	}
}

func TestInsightsRejectsEmptyData(t *testing.T) {
	c := NewClient("key", time.Second, 1, 0, 0)
	_, err := Insights(context.Background(), c, "", Summary{})
	if err == nil {
		t.Fatalf("expected error for empty summary")
	}
}

func TestInsightsSendsSummaryAndModel(t *testing.T) {
	var gotReq GenerateRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "**Diagnóstico** listo."}}}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("key", 2*time.Second, 1, 0, 0, srv.URL)
	s := Summary{FilasAnalizadas: 10, IngresosTotalesUSD: 1000}
	out, err := Insights(context.Background(), c, "", s)
	if err != nil {
		t.Fatalf("Insights returned error: %v", err)
	}
	if !strings.Contains(out, "Diagnóstico") {
		t.Fatalf("unexpected narrative: %q", out)
	}
	if gotReq.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", gotReq.Model)
	}
	if gotReq.Temperature != 0.3 || gotReq.MaxTokens != 600 {
		t.Fatalf("unexpected sampling params: %+v", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "filas_analizadas") {
		t.Fatalf("summary not embedded in prompt: %s", gotReq.Messages[1].Content)
	}
}
