package discover

import "time"

// Warning is a timeout warning produced by a step
type Warning struct {
	Process TrackedProcess // state after the warning was counted
	RunTime time.Duration
	// ThresholdReached is set on every threshold-th warning
	ThresholdReached bool
}

// Ended is an instance that disappeared during a step
type Ended struct {
	Process TrackedProcess
	RunTime time.Duration
}

// StepResult is the outcome of one tracker step. Slices are in ascending
// PID order.
type StepResult struct {
	Next     Tracked
	Started  []TrackedProcess
	Ended    []Ended
	Warnings []Warning
}

// Tracker turns successive snapshots into lifecycle events. It keeps no
// state of its own; the caller owns the tracked set.
type Tracker struct {
	WarningInterval time.Duration
	Threshold       int
}

// NewTracker creates a tracker. A threshold below 1 is treated as 1.
func NewTracker(warningInterval time.Duration, threshold int) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{WarningInterval: warningInterval, Threshold: threshold}
}

// Observe adds instances from snap that are not tracked yet without any
// timeout bookkeeping. It is used while waiting for the process to start.
func (t *Tracker) Observe(tracked Tracked, snap Snapshot, now time.Time) (Tracked, []TrackedProcess) {
	next := tracked.Clone()
	var started []TrackedProcess
	for _, pid := range snap.PIDs() {
		if _, ok := next[pid]; ok {
			continue
		}
		p := newTracked(snap[pid], now)
		next[pid] = p
		started = append(started, p)
	}
	return next, started
}

// Step classifies snap against tracked:
// ended = tracked - present, started = present - tracked. Remaining
// instances get the timeout check. tracked is not modified.
func (t *Tracker) Step(tracked Tracked, snap Snapshot, now time.Time) StepResult {
	var res StepResult

	next := make(Tracked, len(snap))
	for _, pid := range tracked.PIDs() {
		p := tracked[pid]
		if _, present := snap[pid]; !present {
			res.Ended = append(res.Ended, Ended{Process: p, RunTime: p.RunTime(now)})
			continue
		}
		next[pid] = p
	}

	for _, pid := range snap.PIDs() {
		if _, ok := next[pid]; ok {
			continue
		}
		p := newTracked(snap[pid], now)
		next[pid] = p
		res.Started = append(res.Started, p)
	}

	for _, pid := range next.PIDs() {
		p := next[pid]
		if now.Sub(p.LastWarningTime) < t.WarningInterval {
			continue
		}
		p.LastWarningTime = now
		p.TimeoutCount++
		next[pid] = p
		res.Warnings = append(res.Warnings, Warning{
			Process:          p,
			RunTime:          p.RunTime(now),
			ThresholdReached: p.TimeoutCount%t.Threshold == 0,
		})
	}

	res.Next = next
	return res
}

// newTracked re-bases the OS creation time onto now's clock. Only the age
// is taken from the wall clock; start keeps now's monotonic reading.
func newTracked(info ProcInfo, now time.Time) TrackedProcess {
	age := now.Round(0).Sub(info.CreateTime)
	if age < 0 || info.CreateTime.IsZero() {
		age = 0
	}
	start := now.Add(-age)
	return TrackedProcess{
		PID:             info.PID,
		Name:            info.Name,
		StartTime:       start,
		LastWarningTime: start,
	}
}
