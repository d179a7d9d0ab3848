package observe

import (
	"context"
	"time"
)

// Pacer produces ticks at a fixed interval measured from the previous
// tick's scheduled time, not from when the work of that tick finished.
//
// When a tick overruns the interval the next Wait returns immediately and
// the schedule re-bases from now, so a slow tick never queues a burst of
// catch-up ticks.
type Pacer struct {
	clock    Clock
	interval time.Duration
	next     time.Time
	started  bool
	overruns int
}

// NewPacer creates a pacer. The first Wait returns immediately.
func NewPacer(clock Clock, interval time.Duration) *Pacer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Pacer{
		clock:    clock,
		interval: interval,
	}
}

// Wait blocks until the next scheduled tick or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.clock.Now()
	if !p.started {
		p.started = true
		p.next = now
	}

	delay := p.next.Sub(now)
	if delay < 0 {
		delay = 0
		p.next = now
		p.overruns++
	}

	if err := p.clock.Sleep(ctx, delay); err != nil {
		return err
	}

	p.next = p.next.Add(p.interval)
	return nil
}

// Interval returns the nominal tick interval
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Overruns reports how many ticks started late
func (p *Pacer) Overruns() int {
	return p.overruns
}
