// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/tournament-client/logger"
)

type Metrics struct {
	TxSubmitted         *prometheus.CounterVec
	TxOutcomes          *prometheus.CounterVec
	ConfirmationLatency *prometheus.HistogramVec
	RoleResolutions     *prometheus.CounterVec
	Listeners           prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Tests pass a fresh registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TxSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_submitted_total",
			Help:      "Transactions handed to the wallet, by action",
		}, []string{"action"}),
		TxOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_outcomes_total",
			Help:      "Finished actions, by action and outcome",
		}, []string{"action", "outcome"}),
		ConfirmationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_confirmation_seconds",
			Help:      "Time from submission to a final outcome",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"action"}),
		RoleResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_resolutions_total",
			Help:      "Resolved roles, by kind",
		}, []string{"role"}),
		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_listeners",
			Help:      "Number of connected notification listeners",
		}),
	}

	reg.MustRegister(
		m.TxSubmitted,
		m.TxOutcomes,
		m.ConfirmationLatency,
		m.RoleResolutions,
		m.Listeners,
	)

	return m
}

// Monitor is safe to use as a nil pointer; every method is then a no-op.
type Monitor struct {
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	startTime  time.Time
	flightsRun int64
	mutex      sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return NewMonitorWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewMonitorWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  gatherer,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// Handler serves /metrics plus the expvar counters.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) StartServer(addr string) {
	// expvar names are process-global, publish once
	if expvar.Get("uptime") == nil {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("flights", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.flightsRun
		}))
	}

	go func() {
		if err := http.ListenAndServe(addr, m.Handler()); err != nil {
			logger.Log.Errorf("Metrics server stopped: %v", err)
		}
	}()
}

func (m *Monitor) IncSubmitted(action string) {
	if m == nil {
		return
	}
	m.metrics.TxSubmitted.WithLabelValues(action).Inc()
	m.mutex.Lock()
	m.flightsRun++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveOutcome(action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.metrics.TxOutcomes.WithLabelValues(action, outcome).Inc()
	m.metrics.ConfirmationLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Monitor) IncRoleResolution(role string) {
	if m == nil {
		return
	}
	m.metrics.RoleResolutions.WithLabelValues(role).Inc()
}

func (m *Monitor) IncListeners() {
	if m == nil {
		return
	}
	m.metrics.Listeners.Inc()
}

func (m *Monitor) DecListeners() {
	if m == nil {
		return
	}
	m.metrics.Listeners.Dec()
}
