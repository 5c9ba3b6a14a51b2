package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chattest",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chattest",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chattest",
			Subsystem: "room",
			Name:      "frames_received_total",
			Help:      "Messages decoded from members, by code.",
		},
		[]string{"code"},
	)
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chattest",
			Subsystem: "room",
			Name:      "deliveries_total",
			Help:      "Messages written to members.",
		},
		[]string{"kind", "success"},
	)
	evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chattest",
			Subsystem: "room",
			Name:      "evictions_total",
			Help:      "Members removed after a disconnect.",
		},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chattest",
			Subsystem: "room",
			Name:      "handshakes_total",
			Help:      "Handshake results.",
		},
		[]string{"outcome"},
	)
	diagnostics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chattest",
			Subsystem: "room",
			Name:      "poll_diagnostics_total",
			Help:      "Non-fatal poll results, by outcome.",
		},
		[]string{"outcome"},
	)
	members = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chattest",
			Subsystem: "room",
			Name:      "members",
			Help:      "Members currently in the room.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			framesReceived,
			deliveries,
			evictions,
			handshakes,
			diagnostics,
			members,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameReceived(code string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(code).Inc()
}

// RecordDelivery counts one write to a member. kind is relay, notice or admin.
func RecordDelivery(kind string, success bool) {
	RegisterMetrics()
	deliveries.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

func RecordEviction() {
	RegisterMetrics()
	evictions.Inc()
}

func RecordHandshake(outcome string) {
	RegisterMetrics()
	handshakes.WithLabelValues(outcome).Inc()
}

func RecordPollDiagnostic(outcome string) {
	RegisterMetrics()
	diagnostics.WithLabelValues(outcome).Inc()
}

func SetMembers(n int) {
	RegisterMetrics()
	members.Set(float64(n))
}
