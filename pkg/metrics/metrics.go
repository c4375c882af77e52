package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultMetrics is the lazily-initialized singleton bound to the default
// prometheus registry.
var defaultMetrics *Metrics

// Metric holds the data points of one completed update check.
type Metric struct {
	Updates int // Containers with a newly-detected update.
	Failed  bool
}

// Metrics processes and exposes check metrics.
type Metrics struct {
	updates      prometheus.Gauge
	lastCheck    prometheus.Gauge
	checksTotal  prometheus.Counter
	checksFailed prometheus.Counter
}

// NewWithRegistry creates a Metrics handler registered against the given
// prometheus registerer.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		updates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "driftwatch_updates_detected",
			Help: "Number of new updates detected by the last check",
		}),
		lastCheck: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "driftwatch_last_check_timestamp_seconds",
			Help: "Unix timestamp of the last completed update check",
		}),
		checksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_checks_total",
			Help: "Number of update checks since driftwatch started",
		}),
		checksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftwatch_checks_failed_total",
			Help: "Number of update checks that failed since driftwatch started",
		}),
	}

	for _, collector := range []prometheus.Collector{
		m.updates, m.lastCheck, m.checksTotal, m.checksFailed,
	} {
		if err := registry.Register(collector); err != nil {
			alreadyRegistered := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, &alreadyRegistered) {
				continue
			}

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// Default initializes or returns the singleton handler bound to the default
// prometheus registry. It panics on registration failure.
func Default() *Metrics {
	if defaultMetrics != nil {
		return defaultMetrics
	}

	m, err := NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	defaultMetrics = m

	return defaultMetrics
}

// RegisterCheck records the outcome of one update check.
func (m *Metrics) RegisterCheck(metric Metric) {
	m.checksTotal.Inc()

	if metric.Failed {
		m.checksFailed.Inc()

		return
	}

	m.updates.Set(float64(metric.Updates))
	m.lastCheck.SetToCurrentTime()
}
