// Package observability provides Prometheus metrics for monitoring the
// per-lot capture and detection pipelines.
package observability

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registry and all pipeline metric collectors.
type Metrics struct {
	registry *prometheus.Registry
	Lot      *LotMetrics
}

// NewMetrics creates a metrics instance with its own registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	lot, err := NewLotMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("initializing lot metrics: %w", err)
	}

	return &Metrics{registry: registry, Lot: lot}, nil
}

// Registry returns the Prometheus registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LotMetrics contains per-lot pipeline metrics, labeled by lot id.
type LotMetrics struct {
	cyclesProcessed *prometheus.CounterVec
	captureFailures *prometheus.CounterVec
	detectErrors    *prometheus.CounterVec
	occupiedStalls  *prometheus.GaugeVec
	freeStalls      *prometheus.GaugeVec
	cycleDuration   *prometheus.HistogramVec
}

// NewLotMetrics creates and registers the per-lot metric collectors.
func NewLotMetrics(registry *prometheus.Registry) (*LotMetrics, error) {
	m := &LotMetrics{}
	if err := m.initMetrics(registry); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *LotMetrics) initMetrics(registry *prometheus.Registry) error {
	m.cyclesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotection_cycles_processed_total",
		Help: "Total number of completed detection cycles per lot.",
	}, []string{"lot_id"})

	m.captureFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotection_capture_failures_total",
		Help: "Total number of failed frame grabs per lot.",
	}, []string{"lot_id"})

	m.detectErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotection_detect_errors_total",
		Help: "Total number of detection cycles aborted by an error per lot.",
	}, []string{"lot_id"})

	m.occupiedStalls = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spotection_occupied_stalls",
		Help: "Smoothed occupied stall count from the last completed cycle.",
	}, []string{"lot_id"})

	m.freeStalls = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spotection_free_stalls",
		Help: "Smoothed free stall count from the last completed cycle.",
	}, []string{"lot_id"})

	m.cycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spotection_cycle_duration_seconds",
		Help:    "Wall-clock duration of one detection cycle.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"lot_id"})

	collectors := []prometheus.Collector{
		m.cyclesProcessed,
		m.captureFailures,
		m.detectErrors,
		m.occupiedStalls,
		m.freeStalls,
		m.cycleDuration,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return fmt.Errorf("registering collector: %w", err)
		}
	}
	return nil
}

func lotLabel(lotID uint) string {
	return strconv.FormatUint(uint64(lotID), 10)
}

// IncrementCyclesProcessed records one completed detection cycle.
func (m *LotMetrics) IncrementCyclesProcessed(lotID uint) {
	m.cyclesProcessed.WithLabelValues(lotLabel(lotID)).Inc()
}

// IncrementCaptureFailures records one failed frame grab.
func (m *LotMetrics) IncrementCaptureFailures(lotID uint) {
	m.captureFailures.WithLabelValues(lotLabel(lotID)).Inc()
}

// IncrementDetectErrors records one aborted detection cycle.
func (m *LotMetrics) IncrementDetectErrors(lotID uint) {
	m.detectErrors.WithLabelValues(lotLabel(lotID)).Inc()
}

// UpdateStallCounts records the smoothed counts from a completed cycle.
func (m *LotMetrics) UpdateStallCounts(lotID uint, occupied, free int) {
	m.occupiedStalls.WithLabelValues(lotLabel(lotID)).Set(float64(occupied))
	m.freeStalls.WithLabelValues(lotLabel(lotID)).Set(float64(free))
}

// ObserveCycleDuration records the wall-clock time of one cycle.
func (m *LotMetrics) ObserveCycleDuration(lotID uint, seconds float64) {
	m.cycleDuration.WithLabelValues(lotLabel(lotID)).Observe(seconds)
}
