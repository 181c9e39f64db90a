package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeSceneLoad
	EventTypeServe
	EventTypeWallHit
	EventTypePaddleHit
	EventTypeGoal
	EventTypeScoreReset
	EventTypeCommand
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	Step      uint64          `json:"step"`   // Engine step this occurred in
	Source    string          `json:"source"` // Originating user or address, used for rate limiting
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeSceneLoad:
		return "scene_load"
	case EventTypeServe:
		return "serve"
	case EventTypeWallHit:
		return "wall_hit"
	case EventTypePaddleHit:
		return "paddle_hit"
	case EventTypeGoal:
		return "goal"
	case EventTypeScoreReset:
		return "score_reset"
	case EventTypeCommand:
		return "command"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the type by name so the log is readable.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// SceneLoadPayload records what a load resolved.
type SceneLoadPayload struct {
	Walls   int      `json:"walls"`
	Missing []string `json:"missing,omitempty"`
	Seed    int64    `json:"seed"`
}

// ServePayload records a serve direction.
type ServePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// ContactPayload records a wall or paddle hit and the direction after it.
type ContactPayload struct {
	Side string  `json:"side,omitempty"`
	Wall int     `json:"wall,omitempty"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

// GoalPayload records a goal and the resulting score.
type GoalPayload struct {
	Goal   string `json:"goal"`
	Scorer string `json:"scorer"`
	Player string `json:"player,omitempty"`
	Left   uint   `json:"left"`
	Right  uint   `json:"right"`
}

// CommandPayload records a command accepted from outside the loop.
type CommandPayload struct {
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, step uint64, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Step:      step,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
