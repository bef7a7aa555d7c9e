package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the agent's Prometheus instruments, registered on their own
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	framesSent    prometheus.Counter
	deliveries    prometheus.Counter
	framesSkipped prometheus.Counter
	fetchFailures *prometheus.CounterVec
	sessions      prometheus.Gauge
	alertActive   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nocturne_frames_sent_total",
			Help: "Snapshots that passed the change gate and were broadcast.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nocturne_frame_deliveries_total",
			Help: "Successful per-client frame writes.",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nocturne_frames_skipped_total",
			Help: "Ticks whose snapshot was suppressed by the change gate.",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nocturne_fetch_failures_total",
			Help: "Source fetches that produced no data.",
		}, []string{"source"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nocturne_sessions",
			Help: "Connected display clients.",
		}),
		alertActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nocturne_alert_active",
			Help: "1 while a critical alert is latched.",
		}),
	}
	m.Registry.MustRegister(
		m.framesSent,
		m.deliveries,
		m.framesSkipped,
		m.fetchFailures,
		m.sessions,
		m.alertActive,
	)
	return m
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
