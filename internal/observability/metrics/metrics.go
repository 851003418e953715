// Package metrics owns the Prometheus collectors and the HTTP server that
// exposes them (plus optional pprof endpoints).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the poller's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	fetched     *prometheus.CounterVec
	readErrors  *prometheus.CounterVec
	sent        *prometheus.CounterVec
	failed      *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	suppressed  prometheus.Counter
	groups      prometheus.Counter
	merged      prometheus.Counter
	saveErrors  prometheus.Counter
	cyclePanics prometheus.Counter
	cursor      *prometheus.GaugeVec
	cycleDur    prometheus.Histogram
	lastCycle   prometheus.Gauge
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		fetched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "requestbot_events_fetched_total",
			Help: "Rows read from the source, by stream.",
		}, []string{"stream"}),
		readErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "requestbot_read_errors_total",
			Help: "Failed source reads, by stream.",
		}, []string{"stream"}),
		sent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "requestbot_notifications_sent_total",
			Help: "Delivered notifications, by stream and delivery mode.",
		}, []string{"stream", "mode"}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "requestbot_notifications_failed_total",
			Help: "Notifications dropped after the text fallback failed, by stream.",
		}, []string{"stream"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "requestbot_delivery_fallbacks_total",
			Help: "Attachment sends that fell back to text, by mode.",
		}, []string{"mode"}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "requestbot_contact_suppressed_total",
			Help: "Contact requests suppressed as duplicates of a service request.",
		}),
		groups: f.NewCounter(prometheus.CounterOpts{
			Name: "requestbot_service_groups_total",
			Help: "Service request groups processed.",
		}),
		merged: f.NewCounter(prometheus.CounterOpts{
			Name: "requestbot_service_merged_total",
			Help: "Service requests folded into an earlier member of their group.",
		}),
		saveErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "requestbot_state_save_errors_total",
			Help: "Failed cursor saves.",
		}),
		cyclePanics: f.NewCounter(prometheus.CounterOpts{
			Name: "requestbot_cycle_panics_total",
			Help: "Poll cycles aborted by a recovered panic.",
		}),
		cursor: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "requestbot_cursor",
			Help: "Last processed id, by stream.",
		}, []string{"stream"}),
		cycleDur: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "requestbot_cycle_duration_seconds",
			Help:    "Duration of one poll cycle.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		lastCycle: f.NewGauge(prometheus.GaugeOpts{
			Name: "requestbot_last_cycle_timestamp_seconds",
			Help: "Unix time the last poll cycle finished.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Fetched(stream string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fetched.WithLabelValues(stream).Add(float64(n))
}

func (m *Metrics) ReadError(stream string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(stream).Inc()
}

func (m *Metrics) Sent(stream, mode string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(stream, mode).Inc()
}

func (m *Metrics) Failed(stream string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(stream).Inc()
}

func (m *Metrics) Fallback(mode string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(mode).Inc()
}

func (m *Metrics) Suppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

// Group records one processed group of size members.
func (m *Metrics) Group(members int) {
	if m == nil {
		return
	}
	m.groups.Inc()
	if members > 1 {
		m.merged.Add(float64(members - 1))
	}
}

func (m *Metrics) SaveError() {
	if m == nil {
		return
	}
	m.saveErrors.Inc()
}

func (m *Metrics) CyclePanic() {
	if m == nil {
		return
	}
	m.cyclePanics.Inc()
}

func (m *Metrics) Cursor(stream string, id int64) {
	if m == nil {
		return
	}
	m.cursor.WithLabelValues(stream).Set(float64(id))
}

func (m *Metrics) CycleDone(d time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.cycleDur.Observe(d.Seconds())
	m.lastCycle.Set(float64(at.Unix()))
}
