package game

import "time"

// FrameGate throttles simulation steps to a target rate. Host frames that
// arrive before the interval has elapsed are dropped, not accumulated, so a
// slow host runs the game slower instead of catching up.
type FrameGate struct {
	interval time.Duration
	last     time.Time
	opened   uint64
	dropped  uint64
}

// NewFrameGate creates a gate for targetRate steps per second.
func NewFrameGate(targetRate int) *FrameGate {
	if targetRate <= 0 {
		targetRate = 60
	}
	return &FrameGate{interval: time.Second / time.Duration(targetRate)}
}

// Interval returns the minimum spacing between steps.
func (g *FrameGate) Interval() time.Duration {
	return g.interval
}

// Open reports whether a step may run at now and, if so, records now as the
// last step time. The first call always opens.
func (g *FrameGate) Open(now time.Time) bool {
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		g.dropped++
		return false
	}
	g.last = now
	g.opened++
	return true
}

// Stats returns how many frames opened and how many were dropped.
func (g *FrameGate) Stats() (opened, dropped uint64) {
	return g.opened, g.dropped
}
