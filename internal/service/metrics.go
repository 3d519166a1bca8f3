package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jjenkins/foirequests/internal/model"
	"github.com/jjenkins/foirequests/internal/refusal"
)

const (
	outcomeCreated   = "created"
	outcomeUpdated   = "updated"
	outcomeUnchanged = "unchanged"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors for summaries and advice. A nil
// *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	reconciles    *prometheus.CounterVec
	summaries     *prometheus.GaugeVec
	adviceReloads *prometheus.CounterVec
	adviceNodes   *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foi_summary_reconciles_total",
			Help: "Request summary reconciliations by source kind and outcome.",
		}, []string{"kind", "outcome"}),
		summaries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "foi_request_summaries",
			Help: "Stored request summaries by source kind.",
		}, []string{"kind"}),
		adviceReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foi_refusal_advice_reloads_total",
			Help: "Refusal advice store reloads by result.",
		}, []string{"result"}),
		adviceNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "foi_refusal_advice_nodes",
			Help: "Refusal advice nodes, including nested suggestions, in the current store.",
		}, []string{"legislation", "section"}),
	}

	m.registry.MustRegister(
		m.reconciles,
		m.summaries,
		m.adviceReloads,
		m.adviceNodes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeReconcile(kind, outcome string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(kind, outcome).Inc()
}

// ObserveAdviceReload records the result of loading an advice store and,
// on success, the node counts of the new store
func (m *Metrics) ObserveAdviceReload(s *refusal.Store, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.adviceReloads.WithLabelValues("error").Inc()
		return
	}
	m.adviceReloads.WithLabelValues("ok").Inc()

	m.adviceNodes.Reset()
	for _, key := range s.Legislations() {
		m.adviceNodes.WithLabelValues(key, "questions").Set(float64(countNodes(s.Questions(key))))
		m.adviceNodes.WithLabelValues(key, "actions").Set(float64(countNodes(s.Actions(key))))
	}
}

func countNodes(nodes []refusal.Question) int {
	n := 0
	for _, q := range nodes {
		q.Walk(func(refusal.Question) bool {
			n++
			return true
		})
	}
	return n
}

// SummaryCounter reports stored summaries per source kind
type SummaryCounter interface {
	CountByType(ctx context.Context) (map[model.SummarisableType]int, error)
}

// SummaryMetrics represents the stored summary totals
type SummaryMetrics struct {
	Total  int                            `json:"total"`
	ByKind map[model.SummarisableType]int `json:"by_kind"`
}

// MetricsService calculates summary totals and publishes them as gauges
type MetricsService struct {
	counter SummaryCounter
	metrics *Metrics
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(counter SummaryCounter, metrics *Metrics) *MetricsService {
	return &MetricsService{counter: counter, metrics: metrics}
}

// Calculate counts stored summaries and updates the gauges. Every kind is
// reported, including those with no summaries.
func (s *MetricsService) Calculate(ctx context.Context) (*SummaryMetrics, error) {
	counts, err := s.counter.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate summary metrics: %w", err)
	}

	result := &SummaryMetrics{ByKind: make(map[model.SummarisableType]int, len(model.SummarisableTypes))}
	for _, typ := range model.SummarisableTypes {
		result.ByKind[typ] = counts[typ]
		result.Total += counts[typ]
		if s.metrics != nil {
			s.metrics.summaries.WithLabelValues(string(typ)).Set(float64(counts[typ]))
		}
	}

	return result, nil
}
