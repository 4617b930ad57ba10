package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlacementMetrics содержит метрики операции размещения заказа.
type PlacementMetrics struct {
	// Счётчики исходов
	placementsStarted  prometheus.Counter
	ordersPlaced       prometheus.Counter
	ordersFailed       prometheus.Counter
	placementsRejected prometheus.Counter

	// Отказы хранилища по классам
	storageFailures *prometheus.CounterVec

	// Гистограммы времени выполнения
	placementDuration prometheus.Histogram
	saveDuration      prometheus.Histogram

	// Gauge для размещений в полёте
	activePlacements prometheus.Gauge
}

// NewPlacementMetrics создаёт новый экземпляр метрик размещения.
func NewPlacementMetrics() *PlacementMetrics {
	return newPlacementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPlacementMetricsWithRegisterer(registerer prometheus.Registerer) *PlacementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PlacementMetrics{
		placementsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "opr_placements_started_total",
			Help: "Total number of placement operations started",
		}),
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "opr_orders_placed_total",
			Help: "Total number of orders placed successfully",
		}),
		ordersFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "opr_orders_failed_total",
			Help: "Total number of orders failed on persistence",
		}),
		placementsRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "opr_placements_rejected_total",
			Help: "Total number of placements rejected on preconditions",
		}),
		storageFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "opr_storage_failures_total",
			Help: "Total number of storage failures by error kind",
		}, []string{"kind"}),
		placementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "opr_placement_duration_seconds",
			Help:    "Duration of placement operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		saveDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "opr_storage_save_duration_seconds",
			Help:    "Duration of repository save calls in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		activePlacements: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "opr_active_placements",
			Help: "Number of currently running placement operations",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordPlacementStarted увеличивает счётчик запущенных размещений.
func (m *PlacementMetrics) RecordPlacementStarted() {
	m.placementsStarted.Inc()
	m.RecordPlacementInFlightStarted()
}

// RecordOrderPlaced увеличивает счётчик успешно размещённых заказов.
func (m *PlacementMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
}

// RecordOrderFailed увеличивает счётчик неудачных размещений и классифицирует отказ хранилища.
func (m *PlacementMetrics) RecordOrderFailed(kind string) {
	m.ordersFailed.Inc()
	m.storageFailures.WithLabelValues(kind).Inc()
}

// RecordPlacementRejected увеличивает счётчик размещений, отклонённых по предусловиям.
func (m *PlacementMetrics) RecordPlacementRejected() {
	m.placementsRejected.Inc()
}

// RecordPlacementInFlightStarted увеличивает количество активных размещений.
func (m *PlacementMetrics) RecordPlacementInFlightStarted() {
	m.activePlacements.Inc()
}

// RecordPlacementInFlightFinished уменьшает количество активных размещений.
func (m *PlacementMetrics) RecordPlacementInFlightFinished() {
	m.activePlacements.Dec()
}

// RecordPlacementDuration записывает время выполнения размещения.
func (m *PlacementMetrics) RecordPlacementDuration(duration time.Duration) {
	m.placementDuration.Observe(duration.Seconds())
}

// RecordSaveDuration записывает время обращения к хранилищу.
func (m *PlacementMetrics) RecordSaveDuration(duration time.Duration) {
	m.saveDuration.Observe(duration.Seconds())
}
