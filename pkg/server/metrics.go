package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the game server.
type Metrics struct {
	game      *Game
	startTime time.Time

	playersConnected prometheus.Gauge
	objectsTotal     prometheus.Gauge
	sessionsActive   prometheus.Gauge
	uptimeSeconds    prometheus.Gauge
	memoryHeapBytes  prometheus.Gauge
	goroutines       prometheus.Gauge

	Logins           prometheus.Counter
	SessionsOpened   prometheus.Counter
	SessionsAborted  prometheus.Counter
	SessionsEvicted  prometheus.Counter
	CompileSuccesses prometheus.Counter
	CompileFailures  prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for the game.
func NewMetrics(game *Game, startTime time.Time) *Metrics {
	m := &Metrics{
		game:      game,
		startTime: startTime,
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomoo_players_connected",
			Help: "Number of currently connected players.",
		}),
		objectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomoo_objects_total",
			Help: "Total number of objects in the database.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomoo_editor_sessions_active",
			Help: "Number of live verb editor sessions.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomoo_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomoo_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gomoo_goroutines",
			Help: "Number of active goroutines.",
		}),
		Logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomoo_logins_total",
			Help: "Successful logins since server start.",
		}),
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomoo_editor_sessions_opened_total",
			Help: "Verb editor sessions opened since server start.",
		}),
		SessionsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomoo_editor_sessions_aborted_total",
			Help: "Verb editor sessions aborted since server start.",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomoo_editor_sessions_evicted_total",
			Help: "Idle verb editor sessions evicted since server start.",
		}),
		CompileSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomoo_compiles_ok_total",
			Help: "Successful verb compiles since server start.",
		}),
		CompileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gomoo_compiles_failed_total",
			Help: "Verb compiles rejected with diagnostics since server start.",
		}),
	}

	prometheus.MustRegister(
		m.playersConnected,
		m.objectsTotal,
		m.sessionsActive,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
		m.Logins,
		m.SessionsOpened,
		m.SessionsAborted,
		m.SessionsEvicted,
		m.CompileSuccesses,
		m.CompileFailures,
	)

	return m
}

// Update refreshes all gauge metrics from current game state.
func (m *Metrics) Update() {
	m.playersConnected.Set(float64(m.game.Conns.Count()))
	m.objectsTotal.Set(float64(len(m.game.DB.Objects)))
	m.sessionsActive.Set(float64(m.game.Sessions.Count()))
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		promhttp.Handler().ServeHTTP(w, r)
	})
}
