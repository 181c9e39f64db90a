package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"pong-arena/internal/config"
)

var (
	ErrInvalidRoom    = errors.New("invalid room")
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
	ErrRateLimited    = errors.New("rate limited")
	ErrNotRoomMember  = errors.New("not a member of this room")

	// Flood refusals; all of them match ErrRateLimited.
	ErrTooFast   = fmt.Errorf("%w: slow down", ErrRateLimited)
	ErrDuplicate = fmt.Errorf("%w: same message again", ErrRateLimited)
	ErrRoomBusy  = fmt.Errorf("%w: room is busy", ErrRateLimited)
)

const subscriberBuffer = 32

// Hub holds chat rooms: bounded history plus live subscribers. Delivery to a
// slow subscriber drops the message for that subscriber only.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	cfg     config.ChatConfig
	guard   *FloodGuard

	posted    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	limited   atomic.Uint64
}

type room struct {
	history []Message // ring buffer, len <= cap
	next    int
	subs    map[*Subscription]struct{}
}

// Subscription receives messages posted to one room.
type Subscription struct {
	C    <-chan Message
	ch   chan Message
	room string
	hub  *Hub
	once sync.Once
}

// Stats is a point-in-time view of hub counters.
type Stats struct {
	Rooms       int    `json:"rooms"`
	Subscribers int    `json:"subscribers"`
	Posted      uint64 `json:"posted"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
	RateLimited uint64 `json:"rateLimited"`
}

// NewHub creates a hub.
func NewHub(cfg config.ChatConfig) *Hub {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = config.DefaultChat().HistorySize
	}
	return &Hub{
		rooms: make(map[string]*room),
		cfg:   cfg,
		guard: NewFloodGuard(FloodConfig{
			SenderMax: cfg.MaxPerWindow,
			RoomMax:   cfg.RoomMaxPerWindow,
			Window:    cfg.Window,
			Cooldown:  cfg.Cooldown,
		}),
	}
}

// Close stops background work.
func (h *Hub) Close() {
	h.guard.Stop()
}

func (h *Hub) roomLocked(name string) *room {
	r, ok := h.rooms[name]
	if !ok {
		r = &room{
			history: make([]Message, 0, h.cfg.HistorySize),
			subs:    make(map[*Subscription]struct{}),
		}
		h.rooms[name] = r
	}
	return r
}

// Subscribe starts receiving messages for a room.
func (h *Hub) Subscribe(roomName string) (*Subscription, error) {
	if _, _, ok := RoomMembers(roomName); !ok {
		return nil, ErrInvalidRoom
	}

	ch := make(chan Message, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, room: roomName, hub: h}

	h.mu.Lock()
	h.roomLocked(roomName).subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub, nil
}

// Close stops the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if r, ok := h.rooms[s.room]; ok {
			delete(r.subs, s)
		}
		h.mu.Unlock()
		close(s.ch)
	})
}

// Room returns the subscribed room name.
func (s *Subscription) Room() string { return s.room }

// Post validates and records a message, then fans it out.
func (h *Hub) Post(roomName, sender, content string) (Message, error) {
	if !IsMember(roomName, sender) {
		if _, _, ok := RoomMembers(roomName); !ok {
			return Message{}, ErrInvalidRoom
		}
		return Message{}, ErrNotRoomMember
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyMessage
	}
	if h.cfg.MaxMessageLen > 0 && utf8.RuneCountInString(content) > h.cfg.MaxMessageLen {
		return Message{}, ErrMessageTooLong
	}
	if err := h.guard.Check(roomName, sender, content); err != nil {
		h.limited.Add(1)
		return Message{}, err
	}

	msg := Message{Room: roomName, Sender: sender, Content: content, SentAt: time.Now()}

	h.mu.Lock()
	r := h.roomLocked(roomName)
	if len(r.history) < h.cfg.HistorySize {
		r.history = append(r.history, msg)
	} else {
		r.history[r.next] = msg
		r.next = (r.next + 1) % h.cfg.HistorySize
	}
	// Send under the lock so Close cannot race a send on a closed channel.
	for sub := range r.subs {
		select {
		case sub.ch <- msg:
			h.delivered.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
	h.mu.Unlock()

	h.posted.Add(1)
	return msg, nil
}

// History returns a room's retained messages, oldest first.
func (h *Hub) History(roomName string) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[roomName]
	if !ok {
		return []Message{}
	}
	out := make([]Message, 0, len(r.history))
	out = append(out, r.history[r.next:]...)
	out = append(out, r.history[:r.next]...)
	return out
}

// Stats returns hub counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	rooms := len(h.rooms)
	subs := 0
	for _, r := range h.rooms {
		subs += len(r.subs)
	}
	h.mu.RUnlock()

	return Stats{
		Rooms:       rooms,
		Subscribers: subs,
		Posted:      h.posted.Load(),
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
		RateLimited: h.limited.Load(),
	}
}
