package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pong-arena/internal/config"
)

func TestEventLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el := NewEventLog(config.DefaultEventLog())
	if err := el.Start(path); err != nil {
		t.Fatal(err)
	}

	el.EmitSimple(EventTypeGoal, 5, "", GoalPayload{Goal: "right", Scorer: "left", Left: 1})
	el.EmitSimple(EventTypeServe, 5, "", ServePayload{DX: 3.6, DY: -4})
	el.Stop()
	el.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			Type     string          `json:"type"`
			Sequence uint64          `json:"sequence"`
			Payload  json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		types = append(types, rec.Type)
	}
	if len(types) != 2 || types[0] != "goal" || types[1] != "serve" {
		t.Errorf("types = %v", types)
	}
}

func TestEventLogRateLimits(t *testing.T) {
	el := NewEventLog(config.EventLogConfig{RateLimit: 1, Burst: 1})
	if err := el.Start(""); err != nil {
		t.Fatal(err)
	}
	defer el.Stop()

	if !el.EmitSimple(EventTypeServe, 0, "", nil) {
		t.Fatal("first event dropped")
	}
	if el.EmitSimple(EventTypeServe, 0, "", nil) {
		t.Error("second event should be rate limited")
	}
	if el.GetDroppedCount() != 1 || el.GetTotalCount() != 1 {
		t.Errorf("stats = %v", el.GetStats())
	}
}

func TestEventLogRejectsBeforeStart(t *testing.T) {
	el := NewEventLog(config.DefaultEventLog())
	if el.EmitSimple(EventTypeServe, 0, "", nil) {
		t.Error("emit before Start should fail")
	}
}
