package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ParseCollector exposes PPL parsing and export metrics. It satisfies
// core.MetricsRecorder.
type ParseCollector struct {
	gatherer prometheus.Gatherer

	Parses         *prometheus.CounterVec
	ParseDuration  prometheus.Histogram
	StageDuration  *prometheus.HistogramVec
	Branches       prometheus.Gauge
	CatalogEntries prometheus.Gauge
	TimeSteps      prometheus.Gauge
	ExportedRows   *prometheus.CounterVec
}

// NewParseCollector registers parse metrics against the provided registerer.
func NewParseCollector(reg prometheus.Registerer) (*ParseCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	parses, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppl_parses_total",
		Help: "PPL parses by result; result is ok or the error kind.",
	}, []string{"result"}), "ppl_parses_total")
	if err != nil {
		return nil, err
	}

	parseHist, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppl_parse_duration_seconds",
		Help:    "Wall time of a full parse, successful or not.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}), "ppl_parse_duration_seconds")
	if err != nil {
		return nil, err
	}

	stageHist, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ppl_stage_duration_seconds",
		Help:    "Wall time of each parse pipeline stage.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"stage"}), "ppl_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	branches, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ppl_last_branches",
		Help: "Branch count of the most recently parsed model.",
	}), "ppl_last_branches")
	if err != nil {
		return nil, err
	}
	entries, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ppl_last_catalog_entries",
		Help: "Catalog length of the most recently parsed model.",
	}), "ppl_last_catalog_entries")
	if err != nil {
		return nil, err
	}
	steps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ppl_last_time_steps",
		Help: "Time step count of the most recently parsed model.",
	}), "ppl_last_time_steps")
	if err != nil {
		return nil, err
	}

	rows, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppl_exported_rows_total",
		Help: "Table rows written to export sinks, by sink.",
	}, []string{"sink"}), "ppl_exported_rows_total")
	if err != nil {
		return nil, err
	}

	return &ParseCollector{
		gatherer:       gatherer,
		Parses:         parses,
		ParseDuration:  parseHist,
		StageDuration:  stageHist,
		Branches:       branches,
		CatalogEntries: entries,
		TimeSteps:      steps,
		ExportedRows:   rows,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ParseCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveStage records a pipeline stage duration.
func (c *ParseCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDuration == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveParse counts a finished parse. errorKind is "none" on success.
func (c *ParseCollector) ObserveParse(errorKind string, d time.Duration) {
	if c == nil {
		return
	}
	result := errorKind
	if result == "none" || result == "" {
		result = "ok"
	}
	if c.Parses != nil {
		c.Parses.WithLabelValues(result).Inc()
	}
	if c.ParseDuration != nil {
		c.ParseDuration.Observe(d.Seconds())
	}
}

// SetModelCounts updates the last-model gauges.
func (c *ParseCollector) SetModelCounts(branches, catalogEntries, timeSteps int) {
	if c == nil {
		return
	}
	if c.Branches != nil {
		c.Branches.Set(float64(branches))
	}
	if c.CatalogEntries != nil {
		c.CatalogEntries.Set(float64(catalogEntries))
	}
	if c.TimeSteps != nil {
		c.TimeSteps.Set(float64(timeSteps))
	}
}

// AddExportedRows counts table rows written to the named sink.
func (c *ParseCollector) AddExportedRows(sink string, rows int) {
	if c == nil || c.ExportedRows == nil || rows <= 0 {
		return
	}
	c.ExportedRows.WithLabelValues(sink).Add(float64(rows))
}
