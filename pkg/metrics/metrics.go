package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nscrdesigns/houdini-mcp/pkg/lifecycle"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
	"github.com/nscrdesigns/houdini-mcp/pkg/wire"
)

const namespace = "houdinimcp"

// Metrics holds every collector. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	// Host side
	commandsTotal     *prometheus.CounterVec   // command, status
	commandDuration   *prometheus.HistogramVec // command
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge
	disconnectsTotal  *prometheus.CounterVec // reason
	framingErrors     *prometheus.CounterVec // kind
	listenerState     *prometheus.GaugeVec   // state

	// Registry
	registryScans      prometheus.Counter
	liveInstances      prometheus.Gauge
	skippedDescriptors prometheus.Counter
	stalePurged        prometheus.Counter

	// Client side
	clientCalls        *prometheus.CounterVec   // command, outcome
	clientCallDuration *prometheus.HistogramVec // command
	clientDials        *prometheus.CounterVec   // result
}

// New creates the collectors and registers them with reg. A nil reg gets a
// fresh registry that also carries the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: reg,

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "commands_total",
			Help:      "Commands dispatched by the host.",
		}, []string{"command", "status"}),

		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "command_duration_seconds",
			Help:      "Time spent executing a command.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"command"}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),

		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "connections_active",
			Help:      "Client connections currently served (0 or 1).",
		}),

		disconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "disconnects_total",
			Help:      "Client connections closed, by reason.",
		}, []string{"reason"}),

		framingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "framing_errors_total",
			Help:      "Requests that could not be framed, by kind.",
		}, []string{"kind"}),

		listenerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "state",
			Help:      "Listener lifecycle state; the current state is 1.",
		}, []string{"state"}),

		registryScans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "scans_total",
			Help:      "Registry directory scans.",
		}),

		liveInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "live_instances",
			Help:      "Live instances found by the last scan.",
		}),

		skippedDescriptors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "skipped_descriptors_total",
			Help:      "Descriptor files that could not be read or parsed.",
		}),

		stalePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "stale_purged_total",
			Help:      "Descriptors deleted because their process was gone.",
		}),

		clientCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Client calls, by outcome.",
		}, []string{"command", "outcome"}),

		clientCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "Client call round trip time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),

		clientDials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "dials_total",
			Help:      "Connection attempts, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.commandsTotal, m.commandDuration,
		m.connectionsTotal, m.connectionsActive, m.disconnectsTotal,
		m.framingErrors, m.listenerState,
		m.registryScans, m.liveInstances, m.skippedDescriptors, m.stalePurged,
		m.clientCalls, m.clientCallDuration, m.clientDials,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// OnDispatch implements dispatch.Observer.
func (m *Metrics) OnDispatch(command, status string, duration time.Duration) {
	m.commandsTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// OnConnectionOpened implements listener.Observer.
func (m *Metrics) OnConnectionOpened() {
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

// OnConnectionClosed implements listener.Observer.
func (m *Metrics) OnConnectionClosed(reason string) {
	m.connectionsActive.Dec()
	m.disconnectsTotal.WithLabelValues(disconnectReason(reason)).Inc()
}

// OnFramingError implements listener.Observer.
func (m *Metrics) OnFramingError(err error) {
	m.framingErrors.WithLabelValues(framingKind(err)).Inc()
}

// OnStateChange implements lifecycle.EventHandler.
func (m *Metrics) OnStateChange(previous, current lifecycle.State, _ string) {
	m.listenerState.WithLabelValues(previous.String()).Set(0)
	m.listenerState.WithLabelValues(current.String()).Set(1)
}

// OnScan implements registry.Observer.
func (m *Metrics) OnScan(live, skipped int) {
	m.registryScans.Inc()
	m.liveInstances.Set(float64(live))
	m.skippedDescriptors.Add(float64(skipped))
}

// OnStalePurged implements registry.Observer.
func (m *Metrics) OnStalePurged(registry.Descriptor) {
	m.stalePurged.Inc()
}

// OnCall implements client.Observer.
func (m *Metrics) OnCall(command, outcome string, duration time.Duration) {
	m.clientCalls.WithLabelValues(command, outcome).Inc()
	m.clientCallDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// OnDial implements client.Observer.
func (m *Metrics) OnDial(_ int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.clientDials.WithLabelValues(result).Inc()
}

// disconnectReason folds free-form reasons into a bounded label set.
func disconnectReason(reason string) string {
	switch reason {
	case "closed by client", "shutdown", "write failed":
		return reason
	default:
		return "error"
	}
}

func framingKind(err error) string {
	switch {
	case errors.Is(err, wire.ErrTimeout):
		return "timeout"
	case errors.Is(err, wire.ErrIncomplete):
		return "incomplete"
	case errors.Is(err, wire.ErrMalformed):
		return "malformed"
	case errors.Is(err, wire.ErrTooLarge):
		return "too_large"
	default:
		return "io"
	}
}
