package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterLookups  *prometheus.CounterVec
	CounterCommands *prometheus.CounterVec

	// gauges
	GaugeInflightLookups prometheus.Gauge

	// histograms
	HistLookupDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("ipquery", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("ipquery", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterLookups := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "lookups_total",
		Help:      "The total number of ip lookups, by provider and outcome",
	}, []string{"provider", "outcome"})
	counterCommands := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "commands_total",
		Help:      "The total number of handled chat commands",
	}, []string{"command"})

	gaugeInflight := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "inflight_lookups",
		Help:      "Current number of ip lookups in progress",
	})

	histLookupDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "lookup_duration_seconds",
		Help:      "Duration of ip lookups across the whole provider chain",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	})

	return &Manager{
		CounterLookups:       counterLookups,
		CounterCommands:      counterCommands,
		GaugeInflightLookups: gaugeInflight,
		HistLookupDuration:   histLookupDuration,
	}
}
