package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/procwatch/internal/discover"
)

// Metrics are boring counters only, kept on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	external      *prometheus.CounterVec
	tracked       prometheus.Gauge
	phase         *prometheus.GaugeVec
	overruns      *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_events_total",
				Help: "Lifecycle events by notification kind",
			},
			[]string{"kind"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_notifications_total",
				Help: "Notification dispatches by kind and final result",
			},
			[]string{"kind", "result"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_notification_attempts_total",
				Help: "Individual delivery attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		external: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_external_programs_total",
				Help: "External program launches by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "procwatch_tracked_processes",
			Help: "Process instances currently tracked",
		}),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "procwatch_phase",
				Help: "1 for the current session phase, 0 otherwise",
			},
			[]string{"phase"},
		),
		overruns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_tick_overruns_total",
				Help: "Ticks that started late because the previous tick outlasted the interval",
			},
			[]string{"phase"},
		),
	}

	m.registry.MustRegister(m.events, m.notifications, m.attempts, m.external, m.tracked, m.phase, m.overruns)
	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordEvent counts a lifecycle event
func (m *Metrics) RecordEvent(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

// RecordNotification counts a finished dispatch
func (m *Metrics) RecordNotification(kind, result string) {
	m.notifications.WithLabelValues(kind, result).Inc()
}

// RecordAttempt counts one delivery attempt
func (m *Metrics) RecordAttempt(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.attempts.WithLabelValues(kind, outcome).Inc()
}

// RecordExternal counts an external program launch
func (m *Metrics) RecordExternal(trigger string, err error) {
	result := "started"
	if err != nil {
		result = "failed"
	}
	m.external.WithLabelValues(trigger, result).Inc()
}

// SetTracked sets the tracked instance gauge
func (m *Metrics) SetTracked(n int) {
	m.tracked.Set(float64(n))
}

// RecordOverruns counts ticks of phase that started late
func (m *Metrics) RecordOverruns(phase discover.Phase, n int) {
	if n > 0 {
		m.overruns.WithLabelValues(string(phase)).Add(float64(n))
	}
}

// SetPhase marks phase as current
func (m *Metrics) SetPhase(phase discover.Phase) {
	for _, p := range []discover.Phase{discover.PhaseWaiting, discover.PhaseMonitoring, discover.PhaseDone} {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.phase.WithLabelValues(string(p)).Set(v)
	}
}

// WatchScanner exposes a scanner's counters
func (m *Metrics) WatchScanner(sm *discover.ScanMetrics) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "procwatch_scans_total",
			Help: "Process table scans",
		}, func() float64 { return float64(sm.Scans.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "procwatch_scan_list_failures_total",
			Help: "Scans where the process table could not be listed",
		}, func() float64 { return float64(sm.ListFailures.Load()) }),
	)

	skipped := map[string]func() int64{
		discover.ErrorTypeVanished.String():     sm.Vanished.Load,
		discover.ErrorTypeAccessDenied.String(): sm.AccessDenied.Load,
		discover.ErrorTypeUnknown.String():      sm.OtherSkipped.Load,
	}
	for reason, load := range skipped {
		load := load
		m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "procwatch_scan_skipped_total",
			Help:        "Processes skipped mid-scan by reason",
			ConstLabels: prometheus.Labels{"reason": reason},
		}, func() float64 { return float64(load()) }))
	}
}
