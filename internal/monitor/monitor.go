package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/discover"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/notify"
	"github.com/psantana5/procwatch/internal/observe"
	"github.com/psantana5/procwatch/internal/report"
)

// Snapshotter lists the processes matching a name
type Snapshotter interface {
	Snapshot(ctx context.Context, name string) discover.Snapshot
}

// Notifier delivers notification events
type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event) error
}

// Launcher starts external programs
type Launcher interface {
	Launch(path string) error
}

// External program triggers
const (
	TriggerEnd         = "end"
	TriggerTimeout     = "timeout"
	TriggerWaitTimeout = "wait_timeout"
)

// Config configures a monitor
type Config struct {
	Settings *config.Settings
	Scanner  Snapshotter
	Notifier Notifier
	Launcher Launcher

	// Optional
	Clock   observe.Clock
	Metrics *report.Metrics
	Status  *report.StatusBoard
	Logger  *logging.Logger

	// OnStart is called when an instance is first tracked
	OnStart func(p discover.TrackedProcess)
	// OnEnd is called when a tracked instance disappears
	OnEnd func(p discover.TrackedProcess, runTime time.Duration)
}

// Stats represents run statistics
type Stats struct {
	TotalScans       int64
	TotalStarted     int64
	TotalEnded       int64
	TotalWarnings    int64
	TotalLaunches    int64
	TickOverruns     int64
	LastScanDuration time.Duration
}

// Monitor runs the two-phase watch of a single process name. All session
// state is owned by the goroutine calling Run.
type Monitor struct {
	cfg      Config
	settings *config.Settings
	clock    observe.Clock
	tracker  *discover.Tracker
	logger   *logging.Logger
	session  *discover.Session
	stats    Stats
	// kind of the most recent event, for the status board
	lastEvent notify.Kind
}

// New creates a monitor
func New(cfg Config) (*Monitor, error) {
	if cfg.Settings == nil {
		return nil, errors.New("monitor: settings are required")
	}
	if cfg.Scanner == nil || cfg.Notifier == nil || cfg.Launcher == nil {
		return nil, errors.New("monitor: scanner, notifier and launcher are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = observe.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	s := cfg.Settings
	return &Monitor{
		cfg:      cfg,
		settings: s,
		clock:    cfg.Clock,
		tracker:  discover.NewTracker(s.TimeoutWarningInterval, s.External.TimeoutCountThreshold),
		logger:   cfg.Logger,
	}, nil
}

// Run waits for the process to start, then monitors every instance until
// all have ended. It returns nil on a normal end, a *WaitTimeoutError when
// the process never started, a *notify.DeliveryError when a notification
// could not be delivered and the context error on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	m.session = discover.NewSession(m.settings.ProcessName, m.clock.Now())
	m.logger = m.cfg.Logger.WithField("session", m.session.ID.String())
	m.setPhase(discover.PhaseWaiting)
	m.publish()

	m.logger.Info("Waiting for process to start", map[string]interface{}{
		"process":        m.settings.ProcessName,
		"max_wait_time":  m.settings.MaxWaitTime.String(),
		"check_interval": m.settings.WaitProcessCheckInterval.String(),
	})

	if err := m.waitForStart(ctx); err != nil {
		return m.finish(err)
	}

	m.setPhase(discover.PhaseMonitoring)
	m.publish()
	m.logger.Info("Monitoring process", map[string]interface{}{
		"process":          m.settings.ProcessName,
		"instances":        len(m.session.Tracked),
		"warning_interval": m.settings.TimeoutWarningInterval.String(),
		"loop_interval":    m.settings.MonitorLoopInterval.String(),
	})

	return m.finish(m.monitor(ctx))
}

// Stats returns run statistics. Only valid after Run returned or from the
// Run goroutine.
func (m *Monitor) Stats() Stats {
	return m.stats
}

func (m *Monitor) finish(err error) error {
	m.setPhase(discover.PhaseDone)
	m.publish()
	if err != nil && ctxErr(err) {
		m.logger.Info("Monitoring canceled")
	}
	return err
}

func (m *Monitor) waitForStart(ctx context.Context) error {
	pacer := observe.NewPacer(m.clock, m.settings.WaitProcessCheckInterval)
	began := m.clock.Now()

	for {
		if err := m.tick(ctx, pacer, discover.PhaseWaiting); err != nil {
			return err
		}

		snap := m.scan(ctx)
		now := m.clock.Now()

		tracked, started := m.tracker.Observe(m.session.Tracked, snap, now)
		m.session.Tracked = tracked
		m.started(started)
		if len(tracked) > 0 {
			return nil
		}

		waited := now.Sub(began)
		if waited < m.settings.MaxWaitTime {
			continue
		}

		m.logger.Warn("Process did not start in time", map[string]interface{}{
			"process": m.settings.ProcessName,
			"waited":  observe.FormatDuration(waited),
		})
		ev := notify.WaitTimeoutEvent{
			ProcessName:  m.settings.ProcessName,
			WaitTime:     waited,
			OtherRunning: tracked.OtherRunning(0, now),
			Missing:      []string{m.settings.ProcessName},
		}
		if err := m.emit(ctx, ev); err != nil {
			return err
		}
		if _, err := m.runExternal(ctx, TriggerWaitTimeout, m.settings.External.OnWaitTimeout); err != nil {
			return err
		}
		return &WaitTimeoutError{ProcessName: m.settings.ProcessName, Waited: waited}
	}
}

func (m *Monitor) monitor(ctx context.Context) error {
	pacer := observe.NewPacer(m.clock, m.settings.MonitorLoopInterval)

	for {
		if err := m.tick(ctx, pacer, discover.PhaseMonitoring); err != nil {
			return err
		}

		snap := m.scan(ctx)
		now := m.clock.Now()
		res := m.tracker.Step(m.session.Tracked, snap, now)
		m.session.Tracked = res.Next
		m.started(res.Started)

		for _, e := range res.Ended {
			if err := m.ended(ctx, e, res.Next, now); err != nil {
				return err
			}
		}

		for _, w := range res.Warnings {
			stop, err := m.warned(ctx, w, res.Next, now)
			if err != nil {
				return err
			}
			if stop {
				m.logger.Info("Exiting after external program", map[string]interface{}{"pid": w.Process.PID})
				return nil
			}
		}

		m.publish()

		if len(res.Next) == 0 {
			m.logger.Info("All instances ended", map[string]interface{}{"process": m.settings.ProcessName})
			return nil
		}
	}
}

// tick waits for the next scheduled tick and counts late starts
func (m *Monitor) tick(ctx context.Context, pacer *observe.Pacer, phase discover.Phase) error {
	before := pacer.Overruns()
	if err := pacer.Wait(ctx); err != nil {
		return err
	}
	n := pacer.Overruns() - before
	if n == 0 {
		return nil
	}
	m.stats.TickOverruns += int64(n)
	m.logger.Debug("Tick started late", map[string]interface{}{
		"phase":    string(phase),
		"interval": pacer.Interval().String(),
		"scan":     m.stats.LastScanDuration.String(),
	})
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordOverruns(phase, n)
	}
	return nil
}

func (m *Monitor) scan(ctx context.Context) discover.Snapshot {
	start := time.Now()
	// A failed listing comes back empty, so every tracked instance reads as
	// ended on this tick. The scanner's health check reports it.
	snap := m.cfg.Scanner.Snapshot(ctx, m.settings.ProcessName)
	m.stats.TotalScans++
	m.stats.LastScanDuration = time.Since(start)
	return snap
}

func (m *Monitor) started(ps []discover.TrackedProcess) {
	for _, p := range ps {
		m.stats.TotalStarted++
		m.logger.Info("Process instance detected", map[string]interface{}{
			"pid":      p.PID,
			"run_time": observe.FormatDuration(p.RunTime(m.clock.Now())),
		})
		if m.cfg.OnStart != nil {
			m.cfg.OnStart(p)
		}
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.SetTracked(len(m.session.Tracked))
	}
}

func (m *Monitor) ended(ctx context.Context, e discover.Ended, remaining discover.Tracked, now time.Time) error {
	m.stats.TotalEnded++
	m.logger.Info("Process instance ended", map[string]interface{}{
		"pid":      e.Process.PID,
		"run_time": observe.FormatDuration(e.RunTime),
	})
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.SetTracked(len(remaining))
	}
	if m.cfg.OnEnd != nil {
		m.cfg.OnEnd(e.Process, e.RunTime)
	}

	ev := notify.ProcessEndEvent{
		ProcessName:  m.settings.ProcessName,
		PID:          e.Process.PID,
		RunTime:      e.RunTime,
		OtherRunning: remaining.OtherRunning(e.Process.PID, now),
	}
	if err := m.emit(ctx, ev); err != nil {
		return err
	}
	_, err := m.runExternal(ctx, TriggerEnd, m.settings.External.OnEnd)
	return err
}

// warned handles a timeout warning and reports whether the run should stop
func (m *Monitor) warned(ctx context.Context, w discover.Warning, tracked discover.Tracked, now time.Time) (bool, error) {
	m.stats.TotalWarnings++
	m.logger.Warn("Process running longer than expected", map[string]interface{}{
		"pid":           w.Process.PID,
		"run_time":      observe.FormatDuration(w.RunTime),
		"timeout_count": w.Process.TimeoutCount,
	})

	ev := notify.TimeoutWarningEvent{
		ProcessName:  m.settings.ProcessName,
		PID:          w.Process.PID,
		RunTime:      w.RunTime,
		OtherRunning: tracked.OtherRunning(w.Process.PID, now),
	}
	if err := m.emit(ctx, ev); err != nil {
		return false, err
	}
	if !w.ThresholdReached {
		return false, nil
	}

	launched, err := m.runExternal(ctx, TriggerTimeout, m.settings.External.OnTimeout)
	if err != nil {
		return false, err
	}
	return launched && m.settings.External.ExitAfterExternalProgram, nil
}

func (m *Monitor) emit(ctx context.Context, ev notify.Event) error {
	m.lastEvent = ev.Kind()
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordEvent(string(ev.Kind()))
	}
	return m.cfg.Notifier.Dispatch(ctx, ev)
}

// runExternal launches path if set. A failed launch is logged and never
// stops monitoring; only a failed notification about a successful launch
// is returned.
func (m *Monitor) runExternal(ctx context.Context, trigger, path string) (bool, error) {
	if path == "" {
		return false, nil
	}

	err := m.cfg.Launcher.Launch(path)
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordExternal(trigger, err)
	}
	if err != nil {
		m.logger.Error("External program failed", map[string]interface{}{
			"trigger": trigger,
			"error":   err.Error(),
		})
		return false, nil
	}

	m.stats.TotalLaunches++
	ev := notify.ExternalProgramEvent{ProcessName: m.settings.ProcessName, ProgramPath: path}
	if err := m.emit(ctx, ev); err != nil {
		return true, err
	}
	return true, nil
}

func (m *Monitor) setPhase(p discover.Phase) {
	m.session.Phase = p
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.SetPhase(p)
	}
}

func (m *Monitor) publish() {
	if m.cfg.Status != nil {
		m.cfg.Status.Publish(report.NewStatus(m.session, m.clock.Now(), string(m.lastEvent)))
	}
}
