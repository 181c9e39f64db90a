package game

import (
	"pong-arena/internal/game/spatial"
)

// Leaderboard ranks seated players by goals scored, backed by a skip list.
//
// Operations:
//   - AddGoals: O(log n)
//   - Rank: O(log n)
//   - Top: O(log n + k)
//   - Around: O(log n + k)
type Leaderboard struct {
	skipList *spatial.SkipList
}

// LeaderboardEntry represents a player in the leaderboard
type LeaderboardEntry struct {
	Username string `json:"username" msgpack:"username"`
	Goals    int    `json:"goals" msgpack:"goals"`
	Rank     int    `json:"rank" msgpack:"rank"`
}

// NewLeaderboard creates a new leaderboard
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		skipList: spatial.NewSkipList(),
	}
}

// AddGoals credits a player and returns their new total.
func (lb *Leaderboard) AddGoals(username string, n int) int {
	return int(lb.skipList.Add(username, float64(n)))
}

// Remove drops a player.
func (lb *Leaderboard) Remove(username string) {
	lb.skipList.Remove(username)
}

// Rank returns a player's rank (1 = top), or 0 if unknown.
func (lb *Leaderboard) Rank(username string) int {
	return lb.skipList.Rank(username)
}

// Goals returns a player's total.
func (lb *Leaderboard) Goals(username string) (int, bool) {
	s, ok := lb.skipList.Score(username)
	return int(s), ok
}

// Top returns the first n players.
func (lb *Leaderboard) Top(n int) []LeaderboardEntry {
	return lb.Range(1, n)
}

// Around returns up to above players ranked higher than username, the
// player, and up to below players ranked lower.
func (lb *Leaderboard) Around(username string, above, below int) []LeaderboardEntry {
	rank := lb.skipList.Rank(username)
	if rank == 0 {
		return nil
	}
	start := rank - above
	if start < 1 {
		start = 1
	}
	return lb.Range(start, rank+below)
}

// Range returns players in [start, end] by rank.
func (lb *Leaderboard) Range(start, end int) []LeaderboardEntry {
	if start < 1 {
		start = 1
	}
	entries := lb.skipList.Range(start, end)
	result := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = LeaderboardEntry{
			Username: e.Key,
			Goals:    int(e.Score),
			Rank:     start + i,
		}
	}
	return result
}

// Len returns the number of ranked players.
func (lb *Leaderboard) Len() int {
	return lb.skipList.Len()
}

// Clear removes all players.
func (lb *Leaderboard) Clear() {
	lb.skipList.Clear()
}
