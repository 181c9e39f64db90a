package chat

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"pong-arena/internal/config"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	cfg := config.ChatConfig{HistorySize: 3, MaxMessageLen: 10, MaxPerWindow: 100, Window: time.Second}
	h := NewHub(cfg)
	t.Cleanup(h.Close)
	return h
}

func TestRoomName(t *testing.T) {
	if RoomName("zoe", "adam") != "adam_zoe" || RoomName("adam", "zoe") != "adam_zoe" {
		t.Error("room name should not depend on argument order")
	}

	tests := []struct {
		room string
		ok   bool
	}{
		{"adam_zoe", true},
		{"adam", false},
		{"_zoe", false},
		{"a_b_c", false},
	}
	for _, tt := range tests {
		if _, _, ok := RoomMembers(tt.room); ok != tt.ok {
			t.Errorf("RoomMembers(%q) ok = %v, want %v", tt.room, ok, tt.ok)
		}
	}
	if !IsMember("adam_zoe", "zoe") || IsMember("adam_zoe", "eve") {
		t.Error("IsMember wrong")
	}
}

func TestPostValidation(t *testing.T) {
	h := testHub(t)

	tests := []struct {
		name    string
		room    string
		sender  string
		content string
		want    error
	}{
		{"ok", "a_b", "a", "hi", nil},
		{"bad room", "ab", "a", "hi", ErrInvalidRoom},
		{"outsider", "a_b", "c", "hi", ErrNotRoomMember},
		{"blank", "a_b", "b", "   ", ErrEmptyMessage},
		{"too long", "a_b", "b", "0123456789x", ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Post(tt.room, tt.sender, tt.content)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHistoryIsBounded(t *testing.T) {
	h := testHub(t)
	for i := 0; i < 5; i++ {
		sender := "a"
		if i%2 == 1 {
			sender = "b"
		}
		if _, err := h.Post("a_b", sender, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	hist := h.History("a_b")
	if len(hist) != 3 {
		t.Fatalf("history len = %d, want 3", len(hist))
	}
	for i, want := range []string{"m2", "m3", "m4"} {
		if hist[i].Content != want {
			t.Errorf("history[%d] = %s, want %s", i, hist[i].Content, want)
		}
	}
	if got := h.History("x_y"); len(got) != 0 {
		t.Errorf("unknown room history = %v", got)
	}
}

func TestFanOutAndSlowConsumer(t *testing.T) {
	h := testHub(t)
	fast, err := h.Subscribe("a_b")
	if err != nil {
		t.Fatal(err)
	}
	slow, _ := h.Subscribe("a_b")
	other, _ := h.Subscribe("a_c")

	for i := 0; i < subscriberBuffer+5; i++ {
		if _, err := h.Post("a_b", "a", fmt.Sprintf("x%d", i)); err != nil {
			t.Fatal(err)
		}
		<-fast.C
	}

	if got := len(slow.C); got != subscriberBuffer {
		t.Errorf("slow buffer = %d, want %d", got, subscriberBuffer)
	}
	if len(other.C) != 0 {
		t.Error("message leaked into another room")
	}
	if s := h.Stats(); s.Dropped != 5 || s.Subscribers != 3 {
		t.Errorf("stats = %+v", s)
	}

	slow.Close()
	slow.Close()
	if _, ok := <-slow.C; !ok {
		t.Error("buffered messages should survive Close")
	}
	if s := h.Stats(); s.Subscribers != 2 {
		t.Errorf("subscribers after Close = %d, want 2", s.Subscribers)
	}
}

func TestRateLimitedPost(t *testing.T) {
	h := NewHub(config.ChatConfig{HistorySize: 10, MaxPerWindow: 1, Window: time.Hour})
	defer h.Close()

	if _, err := h.Post("a_b", "a", "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Post("a_b", "a", "two"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if _, err := h.Post("a_b", "b", "three"); err != nil {
		t.Errorf("limits are per user: %v", err)
	}
}

func TestRoomBudgetIsShared(t *testing.T) {
	h := NewHub(config.ChatConfig{HistorySize: 10, MaxPerWindow: 5, RoomMaxPerWindow: 2, Window: time.Hour})
	defer h.Close()

	if _, err := h.Post("a_b", "a", "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Post("a_b", "b", "two"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Post("a_b", "a", "three"); !errors.Is(err, ErrRoomBusy) {
		t.Errorf("err = %v, want ErrRoomBusy", err)
	}
	if _, err := h.Post("a_c", "a", "four"); err != nil {
		t.Errorf("other rooms keep their own budget: %v", err)
	}
	if got := len(h.History("a_b")); got != 2 {
		t.Errorf("history len = %d, want 2", got)
	}
}
