package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the alert pipeline. A nil
// *Metrics is valid and records nothing, which keeps tests quiet.
type Metrics struct {
	alertsSent      prometheus.Counter
	alertsFailed    prometheus.Counter
	alertsDuplicate prometheus.Counter
	cycleDuration   prometheus.Histogram
	schedulerUp     prometheus.Gauge
}

// New registers the pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		alertsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "skyalert_alerts_sent_total",
			Help: "Alert emails delivered successfully.",
		}),
		alertsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "skyalert_alerts_failed_total",
			Help: "Alert emails that failed after retries.",
		}),
		alertsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Name: "skyalert_alerts_duplicate_total",
			Help: "Alerts suppressed by duplicate detection.",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "skyalert_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		schedulerUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skyalert_scheduler_running",
			Help: "1 while the alert scheduler loop is running.",
		}),
	}
}

func (m *Metrics) AlertSent() {
	if m != nil {
		m.alertsSent.Inc()
	}
}

func (m *Metrics) AlertFailed() {
	if m != nil {
		m.alertsFailed.Inc()
	}
}

func (m *Metrics) AlertDuplicate() {
	if m != nil {
		m.alertsDuplicate.Inc()
	}
}

func (m *Metrics) ObserveCycle(d time.Duration) {
	if m != nil {
		m.cycleDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetSchedulerRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.schedulerUp.Set(1)
	} else {
		m.schedulerUp.Set(0)
	}
}
