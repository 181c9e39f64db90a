package game

import (
	"sync/atomic"

	"pong-arena/internal/game/spatial"
)

// Box is an AABB in wire form.
type Box struct {
	Min [3]float64 `json:"min" msgpack:"min"`
	Max [3]float64 `json:"max" msgpack:"max"`
}

func boxOf(a spatial.AABB) Box {
	return Box{Min: a.Min, Max: a.Max}
}

// BallSnapshot is an immutable copy of ball state.
type BallSnapshot struct {
	Present   bool       `json:"present" msgpack:"present"`
	Position  [3]float64 `json:"position" msgpack:"position"`
	Direction [3]float64 `json:"direction" msgpack:"direction"`
	Bounds    Box        `json:"bounds" msgpack:"bounds"`
}

// PaddleSnapshot is an immutable copy of one paddle.
type PaddleSnapshot struct {
	Present  bool       `json:"present" msgpack:"present"`
	Position [3]float64 `json:"position" msgpack:"position"`
	Intent   Intent     `json:"intent" msgpack:"intent"`
	Bounds   Box        `json:"bounds" msgpack:"bounds"`
	Player   string     `json:"player,omitempty" msgpack:"player,omitempty"`
}

// GoalSnapshot is a goal box with its side.
type GoalSnapshot struct {
	Side   string `json:"side" msgpack:"side"`
	Bounds Box    `json:"bounds" msgpack:"bounds"`
}

// Snapshot is committed game state for readers outside the loop. Published
// snapshots are never mutated; Walls and Goals are shared between snapshots
// of the same scene.
type Snapshot struct {
	Sequence  uint64            `json:"sequence" msgpack:"sequence"`
	Timestamp int64             `json:"timestamp" msgpack:"timestamp"` // Unix millis
	Step      uint64            `json:"step" msgpack:"step"`
	Seed      int64             `json:"seed" msgpack:"seed"`
	Loaded    bool              `json:"loaded" msgpack:"loaded"`
	Ball      BallSnapshot      `json:"ball" msgpack:"ball"`
	Paddles   [2]PaddleSnapshot `json:"paddles" msgpack:"paddles"`
	Walls     []Box             `json:"walls" msgpack:"walls"`
	Goals     []GoalSnapshot    `json:"goals" msgpack:"goals"`
	Score     Score             `json:"score" msgpack:"score"`
}

// staticBoxes converts walls and goals once per scene load.
func staticBoxes(c *BoundsCache) ([]Box, []GoalSnapshot) {
	walls := make([]Box, len(c.Walls))
	for i, w := range c.Walls {
		walls[i] = boxOf(w)
	}
	var goals []GoalSnapshot
	for _, side := range [...]Side{SideLeft, SideRight} {
		if c.Has(goalRole(side)) {
			goals = append(goals, GoalSnapshot{Side: side.String(), Bounds: boxOf(c.Goals[side])})
		}
	}
	return walls, goals
}

// Capture copies the dynamic engine state into s.
func (e *Engine) Capture(s *Snapshot) {
	s.Step = e.steps
	s.Seed = e.seed
	s.Loaded = e.loaded
	s.Score = e.score.Score()

	s.Ball = BallSnapshot{Direction: e.direction}
	if b := e.registry.Ball; b != nil {
		s.Ball.Present = true
		s.Ball.Position = b.Position
		s.Ball.Bounds = boxOf(e.bounds.Ball)
	}

	for _, side := range [...]Side{SideLeft, SideRight} {
		ps := PaddleSnapshot{Intent: e.intents[side]}
		if p := e.registry.Paddles[side]; p != nil {
			ps.Present = true
			ps.Position = p.Position
			ps.Bounds = boxOf(e.bounds.Paddles[side])
		}
		s.Paddles[side] = ps
	}
}

// SnapshotBuffer publishes snapshots from the loop to any number of readers
// without locks.
type SnapshotBuffer struct {
	latest   atomic.Pointer[Snapshot]
	sequence atomic.Uint64
}

// Publish stamps s with the next sequence number and makes it current.
// s must not be modified afterwards.
func (b *SnapshotBuffer) Publish(s *Snapshot) {
	s.Sequence = b.sequence.Add(1)
	b.latest.Store(s)
}

// Latest returns the current snapshot, or nil before the first publish.
func (b *SnapshotBuffer) Latest() *Snapshot {
	return b.latest.Load()
}
