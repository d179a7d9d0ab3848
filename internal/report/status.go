package report

import (
	"sync"
	"time"

	"github.com/psantana5/procwatch/internal/discover"
	"github.com/psantana5/procwatch/internal/observe"
)

// ProcessStatus describes one tracked instance
type ProcessStatus struct {
	PID          int32  `json:"pid"`
	Name         string `json:"name"`
	RunTime      string `json:"run_time"`
	TimeoutCount int    `json:"timeout_count"`
}

// Status is a point-in-time view of a session
type Status struct {
	SessionID   string          `json:"session_id"`
	ProcessName string          `json:"process_name"`
	Phase       discover.Phase  `json:"phase"`
	StartedAt   time.Time       `json:"started_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Tracked     []ProcessStatus `json:"tracked"`
	LastEvent   string          `json:"last_event,omitempty"`
}

// NewStatus builds a Status from a session at now
func NewStatus(s *discover.Session, now time.Time, lastEvent string) Status {
	st := Status{
		SessionID:   s.ID.String(),
		ProcessName: s.ProcessName,
		Phase:       s.Phase,
		StartedAt:   s.StartedAt,
		UpdatedAt:   now,
		Tracked:     make([]ProcessStatus, 0, len(s.Tracked)),
		LastEvent:   lastEvent,
	}
	for _, pid := range s.Tracked.PIDs() {
		p := s.Tracked[pid]
		st.Tracked = append(st.Tracked, ProcessStatus{
			PID:          pid,
			Name:         p.Name,
			RunTime:      observe.FormatDuration(p.RunTime(now)),
			TimeoutCount: p.TimeoutCount,
		})
	}
	return st
}

// StatusBoard holds the latest published Status. The monitor publishes
// copies; readers never see the session itself.
type StatusBoard struct {
	mu     sync.RWMutex
	status Status
	set    bool
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Publish replaces the current status
func (b *StatusBoard) Publish(st Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = st
	b.set = true
}

// Get returns the current status and whether one was published
func (b *StatusBoard) Get() (Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := b.status
	st.Tracked = append([]ProcessStatus(nil), b.status.Tracked...)
	return st, b.set
}
