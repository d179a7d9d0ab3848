package discover

import (
	"context"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/psantana5/procwatch/internal/logging"
)

// ProcInfo is one matching process as seen by a single scan
type ProcInfo struct {
	PID        int32
	Name       string
	CreateTime time.Time // wall clock, as reported by the OS
}

// Snapshot maps PID to process info for every match at one instant
type Snapshot map[int32]ProcInfo

// PIDs returns the snapshot PIDs in ascending order
func (s Snapshot) PIDs() []int32 {
	pids := make([]int32, 0, len(s))
	for pid := range s {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// procHandle is the subset of *process.Process the scanner reads
type procHandle interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	CreateTime(ctx context.Context) (int64, error) // milliseconds since the epoch
}

type gopsutilProc struct{ p *process.Process }

func (g gopsutilProc) PID() int32 { return g.p.Pid }

func (g gopsutilProc) Name(ctx context.Context) (string, error) {
	return g.p.NameWithContext(ctx)
}

func (g gopsutilProc) CreateTime(ctx context.Context) (int64, error) {
	return g.p.CreateTimeWithContext(ctx)
}

func listProcesses(ctx context.Context) ([]procHandle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]procHandle, len(procs))
	for i, p := range procs {
		handles[i] = gopsutilProc{p}
	}
	return handles, nil
}

// Scanner finds running processes by executable name
type Scanner struct {
	ownPID     int32
	list       func(ctx context.Context) ([]procHandle, error)
	foldCase   bool
	logger     *logging.Logger
	classifier ErrorClassifier
	metrics    ScanMetrics
	health     *HealthCheck
}

// ScanMetrics counts scans and the processes they had to skip
type ScanMetrics struct {
	Scans        atomic.Int64
	Vanished     atomic.Int64
	AccessDenied atomic.Int64
	OtherSkipped atomic.Int64
	ListFailures atomic.Int64
}

// NewScanner creates a process scanner. Names compare case-insensitively
// on Windows.
func NewScanner(logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scanner{
		ownPID:   int32(os.Getpid()),
		list:     listProcesses,
		foldCase: runtime.GOOS == "windows",
		logger:   logger,
		health:   NewHealthCheck(5),
	}
}

// Snapshot returns every process named name, excluding the scanner's own
// process. Processes that exit or deny access mid-scan are left out, and a
// failed enumeration yields an empty snapshot. It never returns nil.
func (s *Scanner) Snapshot(ctx context.Context, name string) Snapshot {
	s.metrics.Scans.Add(1)
	snap := make(Snapshot)

	procs, err := s.list(ctx)
	if err != nil {
		derr := NewDiscoveryError(ErrorTypeTransient, "scan", 0, "list processes", err)
		s.metrics.ListFailures.Add(1)
		s.health.RecordScanFailure(derr)
		s.logger.Warn("Process enumeration failed", map[string]interface{}{
			"error":  derr.Error(),
			"health": s.health.Status().String(),
		})
		return snap
	}
	s.health.RecordScanSuccess()

	for _, p := range procs {
		if p.PID() == s.ownPID {
			continue
		}

		// Filter on name before reading anything else
		pname, err := p.Name(ctx)
		if err != nil {
			s.skip(p.PID(), err)
			continue
		}
		if !s.matches(pname, name) {
			continue
		}

		created, err := p.CreateTime(ctx)
		if err != nil {
			s.skip(p.PID(), err)
			continue
		}

		snap[p.PID()] = ProcInfo{
			PID:        p.PID(),
			Name:       pname,
			CreateTime: time.UnixMilli(created),
		}
	}

	return snap
}

// Metrics exposes scan counters
func (s *Scanner) Metrics() *ScanMetrics {
	return &s.metrics
}

// Health reports whether enumeration keeps succeeding
func (s *Scanner) Health() *HealthCheck {
	return s.health
}

func (s *Scanner) matches(got, want string) bool {
	if s.foldCase {
		return strings.EqualFold(got, want)
	}
	return got == want
}

func (s *Scanner) skip(pid int32, err error) {
	switch s.classifier.Classify(err) {
	case ErrorTypeVanished:
		s.metrics.Vanished.Add(1)
	case ErrorTypeAccessDenied:
		s.metrics.AccessDenied.Add(1)
	default:
		s.metrics.OtherSkipped.Add(1)
		s.logger.Debug("Skipping unreadable process", map[string]interface{}{
			"pid":   pid,
			"error": err.Error(),
		})
	}
}
