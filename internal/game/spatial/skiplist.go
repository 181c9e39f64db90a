package spatial

// This file implements a skip list with span counts for O(log n) rank
// queries, the same layout Redis uses for sorted sets. Entries are ordered
// by score descending, then key ascending, so ranks are stable on ties.

import (
	"math/rand"
	"sync"
)

const (
	maxLevel         = 32
	levelProbability = 0.25
)

// SkipListEntry is a ranked key/score pair.
type SkipListEntry struct {
	Key   string
	Score float64
}

type skipLevel struct {
	next *skipNode
	span int // nodes skipped by following next
}

type skipNode struct {
	entry  SkipListEntry
	levels []skipLevel
}

// SkipList is a concurrency-safe ranked set keyed by string.
type SkipList struct {
	mu     sync.RWMutex
	head   *skipNode
	level  int
	length int
	scores map[string]float64
	rng    *rand.Rand
}

// NewSkipList creates an empty skip list.
func NewSkipList() *SkipList {
	return &SkipList{
		head:   &skipNode{levels: make([]skipLevel, maxLevel)},
		level:  1,
		scores: make(map[string]float64),
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// ranksBefore reports whether a sorts ahead of b.
func ranksBefore(a, b SkipListEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Key < b.Key
}

func (sl *SkipList) randomLevel() int {
	level := 1
	for level < maxLevel && sl.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// Insert adds key with score, or moves it if it already exists.
func (sl *SkipList) Insert(key string, score float64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if old, ok := sl.scores[key]; ok {
		if old == score {
			return
		}
		sl.remove(SkipListEntry{Key: key, Score: old})
	}
	sl.insert(SkipListEntry{Key: key, Score: score})
	sl.scores[key] = score
}

// Add increments the score of key by delta (starting from 0) and returns the
// new score.
func (sl *SkipList) Add(key string, delta float64) float64 {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	old, ok := sl.scores[key]
	if ok {
		sl.remove(SkipListEntry{Key: key, Score: old})
	}
	score := old + delta
	sl.insert(SkipListEntry{Key: key, Score: score})
	sl.scores[key] = score
	return score
}

func (sl *SkipList) insert(e SkipListEntry) {
	var update [maxLevel]*skipNode
	var rank [maxLevel]int

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i < sl.level-1 {
			rank[i] = rank[i+1]
		}
		for x.levels[i].next != nil && ranksBefore(x.levels[i].next.entry, e) {
			rank[i] += x.levels[i].span
			x = x.levels[i].next
		}
		update[i] = x
	}

	lvl := sl.randomLevel()
	if lvl > sl.level {
		for i := sl.level; i < lvl; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].levels[i].span = sl.length
		}
		sl.level = lvl
	}

	node := &skipNode{entry: e, levels: make([]skipLevel, lvl)}
	for i := 0; i < lvl; i++ {
		node.levels[i].next = update[i].levels[i].next
		update[i].levels[i].next = node

		node.levels[i].span = update[i].levels[i].span - (rank[0] - rank[i])
		update[i].levels[i].span = (rank[0] - rank[i]) + 1
	}
	for i := lvl; i < sl.level; i++ {
		update[i].levels[i].span++
	}
	sl.length++
}

// Remove deletes key. It returns false if the key was not present.
func (sl *SkipList) Remove(key string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	score, ok := sl.scores[key]
	if !ok {
		return false
	}
	delete(sl.scores, key)
	return sl.remove(SkipListEntry{Key: key, Score: score})
}

func (sl *SkipList) remove(e SkipListEntry) bool {
	var update [maxLevel]*skipNode

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.levels[i].next != nil && ranksBefore(x.levels[i].next.entry, e) {
			x = x.levels[i].next
		}
		update[i] = x
	}

	x = x.levels[0].next
	if x == nil || x.entry != e {
		return false
	}

	for i := 0; i < sl.level; i++ {
		if update[i].levels[i].next == x {
			update[i].levels[i].span += x.levels[i].span - 1
			update[i].levels[i].next = x.levels[i].next
		} else {
			update[i].levels[i].span--
		}
	}
	for sl.level > 1 && sl.head.levels[sl.level-1].next == nil {
		sl.level--
	}
	sl.length--
	return true
}

// Rank returns the 1-indexed rank of key, or 0 if it is absent.
func (sl *SkipList) Rank(key string) int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	score, ok := sl.scores[key]
	if !ok {
		return 0
	}
	e := SkipListEntry{Key: key, Score: score}

	rank := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.levels[i].next != nil && !ranksBefore(e, x.levels[i].next.entry) {
			rank += x.levels[i].span
			x = x.levels[i].next
		}
		if x != sl.head && x.entry.Key == key {
			return rank
		}
	}
	return 0
}

// ByRank returns the entry at a 1-indexed rank.
func (sl *SkipList) ByRank(rank int) (SkipListEntry, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if rank <= 0 || rank > sl.length {
		return SkipListEntry{}, false
	}

	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.levels[i].next != nil && traversed+x.levels[i].span <= rank {
			traversed += x.levels[i].span
			x = x.levels[i].next
		}
		if traversed == rank {
			return x.entry, true
		}
	}
	return SkipListEntry{}, false
}

// Range returns entries with ranks in [start, end], 1-indexed and inclusive.
func (sl *SkipList) Range(start, end int) []SkipListEntry {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if start <= 0 {
		start = 1
	}
	if end > sl.length {
		end = sl.length
	}
	if start > end {
		return nil
	}

	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.levels[i].next != nil && traversed+x.levels[i].span < start {
			traversed += x.levels[i].span
			x = x.levels[i].next
		}
	}

	out := make([]SkipListEntry, 0, end-start+1)
	for x = x.levels[0].next; x != nil && traversed < end; x = x.levels[0].next {
		traversed++
		out = append(out, x.entry)
	}
	return out
}

// Score returns the score stored for key.
func (sl *SkipList) Score(key string) (float64, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	s, ok := sl.scores[key]
	return s, ok
}

// Len returns the number of entries.
func (sl *SkipList) Len() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.length
}

// Clear removes every entry.
func (sl *SkipList) Clear() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	for i := range sl.head.levels {
		sl.head.levels[i] = skipLevel{}
	}
	sl.level = 1
	sl.length = 0
	sl.scores = make(map[string]float64)
}

// ForEach visits entries in rank order until fn returns false.
func (sl *SkipList) ForEach(fn func(rank int, entry SkipListEntry) bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	rank := 0
	for x := sl.head.levels[0].next; x != nil; x = x.levels[0].next {
		rank++
		if !fn(rank, x.entry) {
			return
		}
	}
}
