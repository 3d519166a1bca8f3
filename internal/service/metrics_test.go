package service

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jjenkins/foirequests/internal/model"
	"github.com/jjenkins/foirequests/internal/refusal"
	"github.com/jjenkins/foirequests/internal/store"
)

func TestMetricsServiceCalculate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	summaries := store.NewSummaryStore(db)
	metrics := NewMetrics()
	reconciler := NewReconciler(summaries)

	for _, src := range []model.Summarisable{
		&model.DraftInfoRequest{ID: 1, Title: "a"},
		&model.DraftInfoRequest{ID: 2, Title: "b"},
		&model.InfoRequestBatch{ID: 1, Title: "c"},
	} {
		if _, err := reconciler.CreateOrUpdateFrom(ctx, src); err != nil {
			t.Fatalf("CreateOrUpdateFrom: %v", err)
		}
	}

	got, err := NewMetricsService(summaries, metrics).Calculate(ctx)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Total != 3 {
		t.Errorf("Total = %d, want 3", got.Total)
	}
	if got.ByKind[model.TypeDraftInfoRequest] != 2 {
		t.Errorf("draft count = %d, want 2", got.ByKind[model.TypeDraftInfoRequest])
	}
	if _, ok := got.ByKind[model.TypeInfoRequest]; !ok {
		t.Error("kinds without summaries should be reported as zero")
	}
	if v := testutil.ToFloat64(metrics.summaries.WithLabelValues(string(model.TypeInfoRequestBatch))); v != 1 {
		t.Errorf("batch gauge = %v, want 1", v)
	}
}

func TestObserveAdviceReload(t *testing.T) {
	s, err := refusal.Build([]refusal.Document{{
		Name: "advice.yml",
		Data: []byte(`
foi:
  questions:
    - id: exemption
      suggestions:
        - id: public-interest
        - id: prejudice
  actions:
    - title: Ask for an internal review
`),
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	metrics := NewMetrics()
	metrics.ObserveAdviceReload(s, nil)
	metrics.ObserveAdviceReload(nil, io.ErrUnexpectedEOF)

	if v := testutil.ToFloat64(metrics.adviceNodes.WithLabelValues("foi", "questions")); v != 3 {
		t.Errorf("foi question nodes = %v, want 3", v)
	}
	if v := testutil.ToFloat64(metrics.adviceNodes.WithLabelValues("foi", "actions")); v != 1 {
		t.Errorf("foi action nodes = %v, want 1", v)
	}
	if v := testutil.ToFloat64(metrics.adviceReloads.WithLabelValues("error")); v != 1 {
		t.Errorf("failed reloads = %v, want 1", v)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "foi_refusal_advice_reloads_total") {
		t.Error("exposition is missing foi_refusal_advice_reloads_total")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.observeReconcile("info_request", outcomeCreated)
	m.ObserveAdviceReload(nil, nil)
}
