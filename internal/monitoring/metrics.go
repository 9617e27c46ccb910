package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application metrics. All methods are safe on a nil
// receiver so instrumented code never has to guard for a missing collector.
type Collector struct {
	registry *prometheus.Registry

	sessionsCreated prometheus.Counter
	sessionsClosed  prometheus.Counter
	createRejected  *prometheus.CounterVec
	spawnFailures   *prometheus.CounterVec
	commandsLogged  prometheus.Counter

	bytesIn  prometheus.Counter
	bytesOut prometheus.Counter

	activeSessions    prometheus.Gauge
	activeConnections prometheus.Gauge

	goroutines prometheus.Gauge
	memoryMB   prometheus.Gauge
	openFDs    prometheus.Gauge
}

// NewCollector creates a collector with its own Prometheus registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_sessions_created_total",
			Help: "Number of terminal sessions successfully created.",
		}),
		sessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_sessions_closed_total",
			Help: "Number of terminal sessions closed.",
		}),
		createRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termbridge_session_creates_rejected_total",
			Help: "Number of session creation requests rejected, by cause.",
		}, []string{"cause"}),
		spawnFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termbridge_spawn_failures_total",
			Help: "Number of PTY spawn failures, by reason.",
		}, []string{"reason"}),
		commandsLogged: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_commands_logged_total",
			Help: "Number of completed logical commands recorded.",
		}),

		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_input_bytes_total",
			Help: "Bytes of terminal input forwarded to PTYs.",
		}),
		bytesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_output_bytes_total",
			Help: "Bytes of PTY output delivered to clients.",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_active_sessions",
			Help: "Number of sessions currently live.",
		}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_active_connections",
			Help: "Number of gateway connections currently open.",
		}),

		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_goroutines",
			Help: "Number of goroutines observed by the resource monitor.",
		}),
		memoryMB: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_memory_mb",
			Help: "Allocated heap in MiB observed by the resource monitor.",
		}),
		openFDs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_open_fds",
			Help: "Open file descriptors observed by the resource monitor.",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SessionCreated records a successful session creation
func (c *Collector) SessionCreated() {
	if c == nil {
		return
	}
	c.sessionsCreated.Inc()
	c.activeSessions.Inc()
}

// SessionClosed records a session reaching its terminal state
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsClosed.Inc()
	c.activeSessions.Dec()
}

// CreateRejected records a rejected creation request
func (c *Collector) CreateRejected(cause string) {
	if c == nil {
		return
	}
	c.createRejected.WithLabelValues(cause).Inc()
}

// SpawnFailed records a PTY spawn failure
func (c *Collector) SpawnFailed(reason string) {
	if c == nil {
		return
	}
	c.spawnFailures.WithLabelValues(reason).Inc()
}

// CommandLogged records one completed logical command
func (c *Collector) CommandLogged() {
	if c == nil {
		return
	}
	c.commandsLogged.Inc()
}

// InputBytes records input bytes forwarded to a PTY
func (c *Collector) InputBytes(n int) {
	if c == nil {
		return
	}
	c.bytesIn.Add(float64(n))
}

// OutputBytes records output bytes delivered to a client
func (c *Collector) OutputBytes(n int) {
	if c == nil {
		return
	}
	c.bytesOut.Add(float64(n))
}

// ConnectionOpened records a new gateway connection
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.activeConnections.Inc()
}

// ConnectionClosed records a gateway connection going away
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.activeConnections.Dec()
}

// ObserveResources updates the system resource gauges
func (c *Collector) ObserveResources(goroutines int, memoryMB float64, openFDs int) {
	if c == nil {
		return
	}
	c.goroutines.Set(float64(goroutines))
	c.memoryMB.Set(memoryMB)
	c.openFDs.Set(float64(openFDs))
}
