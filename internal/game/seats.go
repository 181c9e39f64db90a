package game

import (
	"errors"
	"sync"
)

// ErrSeatTaken is returned when another user already holds the side.
var ErrSeatTaken = errors.New("seat is taken")

// Seats maps court sides to usernames. A held side credits its goals to the
// holder and only the holder may drive its paddle; a free side is open to
// anyone. One user may hold both sides when two paddles share a keyboard.
type Seats struct {
	mu      sync.RWMutex
	holders [2]string
}

// Claim gives side to username. Claiming a seat you already hold is a no-op.
func (s *Seats) Claim(side Side, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h := s.holders[side]; h != "" && h != username {
		return ErrSeatTaken
	}
	s.holders[side] = username
	return nil
}

// Release frees side if username holds it.
func (s *Seats) Release(side Side, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holders[side] != username {
		return false
	}
	s.holders[side] = ""
	return true
}

// ReleaseAll frees every seat held by username.
func (s *Seats) ReleaseAll(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.holders {
		if s.holders[i] == username {
			s.holders[i] = ""
		}
	}
}

// CanDrive reports whether user may move the paddle on side.
func (s *Seats) CanDrive(side Side, user string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.holders[side]
	return h == "" || h == user
}

// Holder returns who sits on side, or "".
func (s *Seats) Holder(side Side) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders[side]
}

// Holders returns both seats.
func (s *Seats) Holders() [2]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders
}
