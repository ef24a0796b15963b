package voicesession

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus instruments of a Coordinator.
type Metrics struct {
	EventsSent      *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	InboundEvents   *prometheus.CounterVec
	MalformedEvents prometheus.Counter
	Turns           prometheus.Counter
	CaptureErrors   prometheus.Counter
	PlaybackBytes   prometheus.Counter
	PlaybackErrors  *prometheus.CounterVec
	ConnectionState prometheus.Gauge
	ResponseLatency prometheus.Histogram
}

// NewMetrics creates the session metrics and registers them on reg. A nil
// reg yields working but unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "languify_session_events_sent_total",
			Help: "Outbound realtime events accepted by the transport",
		}, []string{"type"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "languify_session_events_dropped_total",
			Help: "Outbound realtime events dropped before reaching the wire",
		}, []string{"type", "reason"}),
		InboundEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "languify_session_inbound_events_total",
			Help: "Inbound realtime events by kind",
		}, []string{"kind"}),
		MalformedEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "languify_session_malformed_events_total",
			Help: "Inbound payloads that could not be parsed",
		}),
		Turns: f.NewCounter(prometheus.CounterOpts{
			Name: "languify_session_turns_total",
			Help: "Push-to-talk turns started",
		}),
		CaptureErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "languify_session_capture_errors_total",
			Help: "Capture device failures",
		}),
		PlaybackBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "languify_session_playback_bytes_total",
			Help: "PCM bytes queued for playback",
		}),
		PlaybackErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "languify_session_playback_errors_total",
			Help: "Audio deltas that could not be played",
		}, []string{"kind"}),
		ConnectionState: f.NewGauge(prometheus.GaugeOpts{
			Name: "languify_session_connection_state",
			Help: "Transport state: 0 disconnected, 1 connecting, 2 open, 3 failed",
		}),
		ResponseLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "languify_session_response_latency_seconds",
			Help:    "Time from release to the first audio delta of the response",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}
