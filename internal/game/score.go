package game

import "strconv"

// Score holds both counters.
type Score struct {
	Left  uint `json:"left" msgpack:"left"`
	Right uint `json:"right" msgpack:"right"`
}

// Of returns the counter for side.
func (s Score) Of(side Side) uint {
	if side == SideLeft {
		return s.Left
	}
	return s.Right
}

// ScoreTracker counts goals and reports every change as a display string.
type ScoreTracker struct {
	score    Score
	onChange func(side Side, value string)
}

// Score returns the current counters.
func (t *ScoreTracker) Score() Score {
	return t.score
}

// RecordGoal credits the player opposite the goal that was entered and
// returns the scoring side.
func (t *ScoreTracker) RecordGoal(goal Side) Side {
	scorer := goal.Opposite()
	if scorer == SideLeft {
		t.score.Left++
	} else {
		t.score.Right++
	}
	t.notify(scorer)
	return scorer
}

// Reset zeroes both counters and reports both.
func (t *ScoreTracker) Reset() {
	t.score = Score{}
	t.notify(SideLeft)
	t.notify(SideRight)
}

func (t *ScoreTracker) notify(side Side) {
	if t.onChange != nil {
		t.onChange(side, strconv.FormatUint(uint64(t.score.Of(side)), 10))
	}
}
