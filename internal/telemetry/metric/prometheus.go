package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatmesh"

// Registry holds the metrics of one node.
type Registry struct {
	registry *prometheus.Registry

	FramesReceived *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec
	DispatchErrors *prometheus.CounterVec
	SendFailures   *prometheus.CounterVec

	RelayForwarded   prometheus.Counter
	RelayDuplicates  prometheus.Counter
	RelayRateLimited prometheus.Counter

	ChatSent      prometheus.Counter
	ChatDelivered prometheus.Counter

	ElectionsStarted prometheus.Counter
	Connections      *prometheus.GaugeVec
}

// NewRegistry creates a registry with the node metrics and the Go runtime
// and process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames decoded, by action.",
		}, []string{"action"}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames queued for sending, by action.",
		}, []string{"action"}),
		DispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Frames rejected by the router, by error code.",
		}, []string{"code"}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Frames that could not be queued, by connection kind.",
		}, []string{"kind"}),

		RelayForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_forwarded_total",
			Help:      "Client messages flooded to neighbors and clients.",
		}),
		RelayDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_duplicates_total",
			Help:      "Client messages dropped as already forwarded.",
		}),
		RelayRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_rate_limited_total",
			Help:      "Client messages held back by the per-client rate limit.",
		}),

		ChatSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_sent_total",
			Help:      "Chat messages sent by this client.",
		}),
		ChatDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_delivered_total",
			Help:      "Chat messages delivered in causal order.",
		}),

		ElectionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elections_started_total",
			Help:      "Elections started by this node as initiator.",
		}),
		Connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open connections, by kind.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.FramesReceived,
		r.FramesSent,
		r.DispatchErrors,
		r.SendFailures,
		r.RelayForwarded,
		r.RelayDuplicates,
		r.RelayRateLimited,
		r.ChatSent,
		r.ChatDelivered,
		r.ElectionsStarted,
		r.Connections,
	)
	return r
}

// Register adds an extra collector to the registry.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for scraping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving the registry in Prometheus format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordReceived counts one decoded frame.
func (r *Registry) RecordReceived(action string) {
	r.FramesReceived.WithLabelValues(action).Inc()
}

// RecordSent counts one queued frame.
func (r *Registry) RecordSent(action string) {
	r.FramesSent.WithLabelValues(action).Inc()
}

// RecordDispatchError counts one rejected frame.
func (r *Registry) RecordDispatchError(code string) {
	if code == "" {
		code = "unknown"
	}
	r.DispatchErrors.WithLabelValues(code).Inc()
}

// RecordSendFailure counts one frame that could not be queued.
func (r *Registry) RecordSendFailure(kind string) {
	r.SendFailures.WithLabelValues(kind).Inc()
}

// ConnectionOpened and ConnectionClosed track open connections per kind.
func (r *Registry) ConnectionOpened(kind string) {
	r.Connections.WithLabelValues(kind).Inc()
}

func (r *Registry) ConnectionClosed(kind string) {
	r.Connections.WithLabelValues(kind).Dec()
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns a process-wide registry, for binaries running one node.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the Global registry.
func Handler() http.Handler {
	return Global().Handler()
}
