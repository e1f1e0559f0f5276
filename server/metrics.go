package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wgnet/clacks/errors"
)

// Metrics holds one Server instance's Prometheus collectors on a
// private registry, grounded on ruaan-deysel-unraid-management-agent's
// daemon/services/api/metrics.go custom-registry pattern — a package-
// level registry there, one-per-Server here so that running more than
// one Server in a process (as the test suite does) never double-registers
// a collector.
type Metrics struct {
	registry *prometheus.Registry

	connectionsOpen  *prometheus.GaugeVec
	connectionsTotal *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	commandsTotal    *prometheus.CounterVec
	commandDuration  prometheus.Histogram
}

// NewMetrics builds a fresh Metrics instance on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clacks_connections_open",
			Help: "Currently open connections, by dialect.",
		}, []string{"dialect"}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clacks_connections_total",
			Help: "Connections accepted since startup, by dialect.",
		}, []string{"dialect"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clacks_queue_depth",
			Help: "Number of packets currently waiting in the dispatch queue.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clacks_commands_total",
			Help: "Commands dispatched since startup, by resulting wire status code.",
		}, []string{"code"}),
		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clacks_command_duration_seconds",
			Help:    "Time spent in the dispatch protocol per command, from dequeue to the end of digest, before the response is encoded.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.connectionsOpen,
		m.connectionsTotal,
		m.queueDepth,
		m.commandsTotal,
		m.commandDuration,
	)
	return m
}

// ConnectionOpened records a newly accepted connection for dialect.
func (m *Metrics) ConnectionOpened(dialect string) {
	m.connectionsOpen.WithLabelValues(dialect).Inc()
	m.connectionsTotal.WithLabelValues(dialect).Inc()
}

// ConnectionClosed records a connection's closure for dialect.
func (m *Metrics) ConnectionClosed(dialect string) {
	m.connectionsOpen.WithLabelValues(dialect).Dec()
}

// QueueDepthSet records the queue's current length.
func (m *Metrics) QueueDepthSet(n int) {
	m.queueDepth.Set(float64(n))
}

// CommandDispatched records one completed dispatch's duration and
// resulting wire status code.
func (m *Metrics) CommandDispatched(d time.Duration, code errors.Code) {
	m.commandsTotal.WithLabelValues(strconv.Itoa(int(code))).Inc()
	m.commandDuration.Observe(d.Seconds())
}
