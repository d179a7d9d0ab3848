package discover

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/procwatch/internal/observe"
)

// Phase is the stage of a monitoring session
type Phase string

const (
	PhaseWaiting    Phase = "waiting_for_start"
	PhaseMonitoring Phase = "monitoring"
	PhaseDone       Phase = "done"
)

// TrackedProcess is one tracked process instance. StartTime and
// LastWarningTime are on the monitor's clock, not the OS wall clock.
type TrackedProcess struct {
	PID             int32
	Name            string
	StartTime       time.Time
	LastWarningTime time.Time
	TimeoutCount    int
}

// RunTime returns how long the instance has been running at now
func (p TrackedProcess) RunTime(now time.Time) time.Duration {
	d := now.Sub(p.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Tracked maps PID to tracked instance
type Tracked map[int32]TrackedProcess

// PIDs returns the tracked PIDs in ascending order
func (t Tracked) PIDs() []int32 {
	pids := make([]int32, 0, len(t))
	for pid := range t {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// Clone returns a copy that shares nothing with t
func (t Tracked) Clone() Tracked {
	out := make(Tracked, len(t))
	for pid, p := range t {
		out[pid] = p
	}
	return out
}

// OtherRunning describes every tracked instance except exclude, one per
// line, or "none". Pass exclude = 0 to list them all.
func (t Tracked) OtherRunning(exclude int32, now time.Time) string {
	var lines []string
	for _, pid := range t.PIDs() {
		if pid == exclude {
			continue
		}
		p := t[pid]
		lines = append(lines, fmt.Sprintf("%s (PID: %d, run time: %s)", p.Name, pid, observe.FormatDuration(p.RunTime(now))))
	}
	if len(lines) == 0 {
		return "none"
	}
	return strings.Join(lines, "\n")
}

// Session is the state of one run. It is owned by a single goroutine.
type Session struct {
	ID          uuid.UUID
	ProcessName string
	Phase       Phase
	StartedAt   time.Time
	Tracked     Tracked
}

// NewSession starts a session in the waiting phase
func NewSession(processName string, now time.Time) *Session {
	return &Session{
		ID:          uuid.New(),
		ProcessName: processName,
		Phase:       PhaseWaiting,
		StartedAt:   now,
		Tracked:     make(Tracked),
	}
}
