// Package metrics provides Prometheus observability metrics for the ROI calculator.
// It covers the business figures of the latest computation and the operational
// health of the parser, the live sessions and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"roi-calculator/models"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// Model label values.
const (
	ModelHumanOnly = "human_only"
	ModelHybrid    = "hybrid"
)

// =============================================================================
// BUSINESS METRICS - latest computed scenario
// =============================================================================

// TotalUnresolvedLeads tracks the aggregated unresolved demand.
var TotalUnresolvedLeads = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "roi",
	Name:      "total_unresolved_leads",
	Help:      "Unresolved leads summed across all channels in the latest computation",
})

// AgentsRequired tracks headcount per staffing model.
var AgentsRequired = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roi",
	Name:      "agents_required",
	Help:      "Human agents required per staffing model",
}, []string{"model"})

// DailyCost tracks the daily operating cost per staffing model.
var DailyCost = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roi",
	Name:      "daily_cost",
	Help:      "Daily operating cost per staffing model",
}, []string{"model"})

// MonthlyCost tracks the 30-day roll-up per staffing model.
var MonthlyCost = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roi",
	Name:      "monthly_cost",
	Help:      "Daily cost multiplied by the fixed 30-day roll-up, per staffing model",
}, []string{"model"})

// DailyCostDifference tracks human-only minus hybrid daily cost.
var DailyCostDifference = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "roi",
	Name:      "daily_cost_difference",
	Help:      "Human-only daily cost minus hybrid daily cost (positive means hybrid is cheaper)",
})

// Recommended is 1 for the recommended model and 0 for the other.
var Recommended = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "roi",
	Name:      "recommended_model",
	Help:      "1 for the currently recommended staffing model, 0 otherwise",
}, []string{"model"})

// ComputationsTotal counts computations by the surface that triggered them.
var ComputationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "roi",
	Name:      "computations_total",
	Help:      "Number of full recomputations by source (cli, http, session)",
}, []string{"source"})

// ComputeDurationSeconds tracks time to compute the results.
var ComputeDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "roi",
	Name:      "compute_duration_seconds",
	Help:      "Time taken to compute the full results of a scenario",
	Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
})

// =============================================================================
// OPERATIONAL METRICS
// =============================================================================

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by error type",
}, []string{"error_type"})

// ParserRecordsTotal tracks total channel records successfully parsed.
var ParserRecordsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total channel records successfully parsed",
})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse a channel CSV or scenario file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
})

// SessionEditsTotal tracks live session edits by operation and outcome.
var SessionEditsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "session",
	Name:      "edits_total",
	Help:      "Configuration edits applied in live sessions",
}, []string{"op", "outcome"})

// SessionsActive tracks open live sessions.
var SessionsActive = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "session",
	Name:      "active",
	Help:      "Number of open live sessions",
})

// HTTPRequestDurationSeconds tracks API latency.
var HTTPRequestDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern and status code",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "status"})

// =============================================================================
// Helper Functions
// =============================================================================

// ObserveResults publishes the figures of a computation and counts it under source.
func ObserveResults(source string, r models.Results) {
	ComputationsTotal.WithLabelValues(source).Inc()

	TotalUnresolvedLeads.Set(float64(r.TotalUnresolved))

	AgentsRequired.WithLabelValues(ModelHumanOnly).Set(float64(r.ModelA.AgentsRequired))
	AgentsRequired.WithLabelValues(ModelHybrid).Set(float64(r.ModelB.AgentsRequired))
	DailyCost.WithLabelValues(ModelHumanOnly).Set(r.ModelA.DailyCost)
	DailyCost.WithLabelValues(ModelHybrid).Set(r.ModelB.DailyCost)
	MonthlyCost.WithLabelValues(ModelHumanOnly).Set(r.ModelA.MonthlyCost)
	MonthlyCost.WithLabelValues(ModelHybrid).Set(r.ModelB.MonthlyCost)
	DailyCostDifference.Set(r.Comparison.DailyDifference)

	if r.Comparison.Recommended == r.ModelA.Name {
		Recommended.WithLabelValues(ModelHumanOnly).Set(1)
		Recommended.WithLabelValues(ModelHybrid).Set(0)
	} else {
		Recommended.WithLabelValues(ModelHumanOnly).Set(0)
		Recommended.WithLabelValues(ModelHybrid).Set(1)
	}
}

// ResetResultGauges clears the business gauges, e.g. before a new batch run.
func ResetResultGauges() {
	TotalUnresolvedLeads.Set(0)
	DailyCostDifference.Set(0)
	AgentsRequired.Reset()
	DailyCost.Reset()
	MonthlyCost.Reset()
	Recommended.Reset()
}
