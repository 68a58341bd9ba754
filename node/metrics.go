package node

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons a relay drops a blob.
const (
	DropMalformed   = "malformed"
	DropDecryption  = "decryption"
	DropUnknownDest = "unknown_destination"
	DropForwarding  = "forwarding"
)

// Metrics are the per-participant prometheus collectors. Each participant
// owns a registry so several can share one process.
type Metrics struct {
	registry      *prometheus.Registry
	sent          prometheus.Counter
	received      prometheus.Counter
	peeled        prometheus.Counter
	forwarded     prometheus.Counter
	dropped       *prometheus.CounterVec
	buildDuration prometheus.Histogram
}

// NewMetrics creates the collectors for participant id of the given role.
func NewMetrics(role string, id uint32) *Metrics {
	labels := prometheus.Labels{"role": role, "node_id": strconv.FormatUint(uint64(id), 10)}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "onionrelay_messages_sent_total",
			Help:        "Number of onions handed to an entry relay",
			ConstLabels: labels,
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "onionrelay_messages_received_total",
			Help:        "Number of messages received",
			ConstLabels: labels,
		}),
		peeled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "onionrelay_messages_peeled_total",
			Help:        "Number of layers peeled",
			ConstLabels: labels,
		}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "onionrelay_messages_forwarded_total",
			Help:        "Number of peeled layers accepted by the next hop",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "onionrelay_messages_dropped_total",
			Help:        "Number of messages dropped",
			ConstLabels: labels,
		}, []string{"reason"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "onionrelay_onion_build_seconds",
			Help:        "Time spent building an onion",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	m.registry.MustRegister(m.sent, m.received, m.peeled, m.forwarded, m.dropped, m.buildDuration)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the participant's registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Sent()      { m.sent.Inc() }
func (m *Metrics) Received()  { m.received.Inc() }
func (m *Metrics) Peeled()    { m.peeled.Inc() }
func (m *Metrics) Forwarded() { m.forwarded.Inc() }

// Dropped counts a dropped message under reason.
func (m *Metrics) Dropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// ObserveBuild records the duration of one onion build in seconds.
func (m *Metrics) ObserveBuild(seconds float64) {
	m.buildDuration.Observe(seconds)
}
