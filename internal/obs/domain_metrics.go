package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteComputeTotal counts quote computations by outcome.
	QuoteComputeTotal *prometheus.CounterVec
	// QuoteComputeLatency records quote computation latency in milliseconds.
	QuoteComputeLatency prometheus.Histogram
	// CatalogRefreshTotal counts catalog snapshot loads by source and outcome.
	CatalogRefreshTotal *prometheus.CounterVec
	// SelectionEventsTotal counts selection events applied to sessions.
	SelectionEventsTotal *prometheus.CounterVec
	// QuoteIssuedTotal counts issued quotes by publish outcome.
	QuoteIssuedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteComputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_compute_total",
			Help:      "Count of quote computations by outcome.",
		}, []string{"result"})
		QuoteComputeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_compute_duration_ms",
			Help:      "Latency for quote computations in milliseconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		})
		CatalogRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_total",
			Help:      "Count of catalog snapshot loads by source and outcome.",
		}, []string{"source", "result"})
		SelectionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_events_total",
			Help:      "Count of selection events applied to quote sessions.",
		}, []string{"event"})
		QuoteIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_issued_total",
			Help:      "Count of issued quotes by publish outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, QuoteComputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteComputeTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteComputeLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteComputeLatency = v
			}
		})
		mustRegisterCollector(reg, CatalogRefreshTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogRefreshTotal = v
			}
		})
		mustRegisterCollector(reg, SelectionEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SelectionEventsTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteIssuedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteIssuedTotal = v
			}
		})
	})
}

// RecordCatalogRefresh increments the catalog refresh counter when registered.
func RecordCatalogRefresh(source, result string) {
	if CatalogRefreshTotal == nil {
		return
	}
	CatalogRefreshTotal.WithLabelValues(source, result).Inc()
}

// RecordSelectionEvent increments the selection event counter when registered.
func RecordSelectionEvent(event string) {
	if SelectionEventsTotal == nil {
		return
	}
	SelectionEventsTotal.WithLabelValues(event).Inc()
}

// RecordQuoteCompute records a computation outcome and its latency when registered.
func RecordQuoteCompute(result string, durationMS float64) {
	if QuoteComputeTotal != nil {
		QuoteComputeTotal.WithLabelValues(result).Inc()
	}
	if QuoteComputeLatency != nil {
		QuoteComputeLatency.Observe(durationMS)
	}
}

// RecordQuoteIssued increments the issued quote counter when registered.
func RecordQuoteIssued(result string) {
	if QuoteIssuedTotal == nil {
		return
	}
	QuoteIssuedTotal.WithLabelValues(result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
