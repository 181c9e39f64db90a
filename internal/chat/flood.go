package chat

import (
	"sync"
	"time"
)

// FloodConfig bounds how fast a conversation can move.
type FloodConfig struct {
	SenderMax int           // posts per sender per window, 0 = unlimited
	RoomMax   int           // posts per room per window from both members, 0 = unlimited
	Window    time.Duration // budget window, also the repeat window
	Cooldown  time.Duration // minimum gap between one sender's posts
}

// FloodGuard admits or refuses posts. A refused post spends no budget.
type FloodGuard struct {
	mu      sync.Mutex
	cfg     FloodConfig
	senders map[string]*senderState
	rooms   map[string]*budget
	now     func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

type budget struct {
	count     int
	windowEnd time.Time
}

// open rolls the window over if it has ended and reports whether one more
// post fits.
func (b *budget) open(now time.Time, window time.Duration, limit int) bool {
	if !now.Before(b.windowEnd) {
		b.count = 0
		b.windowEnd = now.Add(window)
	}
	return limit <= 0 || b.count < limit
}

type senderState struct {
	budget
	last     time.Time
	lastText string
}

// NewFloodGuard creates a guard with a background cleanup goroutine. Call
// Stop to end it.
func NewFloodGuard(cfg FloodConfig) *FloodGuard {
	g := &FloodGuard{
		cfg:      cfg,
		senders:  make(map[string]*senderState),
		rooms:    make(map[string]*budget),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	go g.cleanup()
	return g
}

// Check admits one post of content by sender into room, or says why not:
// ErrTooFast inside the cooldown, ErrDuplicate for the sender's previous
// text repeated inside the window, ErrRateLimited when the sender's budget
// is spent, ErrRoomBusy when the room's is.
func (g *FloodGuard) Check(room, sender, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	s := g.senders[sender]
	if s == nil {
		s = &senderState{}
		g.senders[sender] = s
	}
	r := g.rooms[room]
	if r == nil {
		r = &budget{}
		g.rooms[room] = r
	}

	if !s.last.IsZero() {
		since := now.Sub(s.last)
		if since < g.cfg.Cooldown {
			return ErrTooFast
		}
		if content == s.lastText && since < g.cfg.Window {
			return ErrDuplicate
		}
	}
	if !s.open(now, g.cfg.Window, g.cfg.SenderMax) {
		return ErrRateLimited
	}
	if !r.open(now, g.cfg.Window, g.cfg.RoomMax) {
		return ErrRoomBusy
	}

	s.count++
	r.count++
	s.last = now
	s.lastText = content
	return nil
}

// Stop ends the cleanup goroutine.
func (g *FloodGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stopChan) })
}

func (g *FloodGuard) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.prune(g.now().Add(-5 * time.Minute))
		}
	}
}

// prune forgets senders quiet since cutoff and rooms whose window ended
// before it.
func (g *FloodGuard) prune(cutoff time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for name, s := range g.senders {
		if s.last.Before(cutoff) {
			delete(g.senders, name)
		}
	}
	for name, r := range g.rooms {
		if r.windowEnd.Before(cutoff) {
			delete(g.rooms, name)
		}
	}
}
