package spatial

import (
	"fmt"
	"testing"
)

func TestSkipListOrdering(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("carol", 3)
	sl.Insert("alice", 5)
	sl.Insert("bob", 5)
	sl.Insert("dave", 1)

	want := []string{"alice", "bob", "carol", "dave"}
	got := sl.Range(1, 10)
	if len(got) != len(want) {
		t.Fatalf("Range returned %d entries, want %d", len(got), len(want))
	}
	for i, e := range got {
		if e.Key != want[i] {
			t.Errorf("rank %d = %s, want %s", i+1, e.Key, want[i])
		}
		if r := sl.Rank(e.Key); r != i+1 {
			t.Errorf("Rank(%s) = %d, want %d", e.Key, r, i+1)
		}
	}
}

func TestSkipListUpdateMovesEntry(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 1)
	sl.Insert("b", 2)
	sl.Insert("c", 3)

	sl.Insert("a", 10)
	if r := sl.Rank("a"); r != 1 {
		t.Errorf("Rank(a) after update = %d, want 1", r)
	}
	if sl.Len() != 3 {
		t.Errorf("Len = %d, want 3", sl.Len())
	}

	if got := sl.Add("c", 8); got != 11 {
		t.Errorf("Add returned %v, want 11", got)
	}
	if r := sl.Rank("c"); r != 1 {
		t.Errorf("Rank(c) after Add = %d, want 1", r)
	}
	if got := sl.Add("new", 1); got != 1 {
		t.Errorf("Add on missing key returned %v, want 1", got)
	}
}

func TestSkipListRemove(t *testing.T) {
	sl := NewSkipList()
	for i := 0; i < 100; i++ {
		sl.Insert(fmt.Sprintf("k%03d", i), float64(i))
	}

	for i := 0; i < 100; i += 2 {
		if !sl.Remove(fmt.Sprintf("k%03d", i)) {
			t.Fatalf("Remove(k%03d) failed", i)
		}
	}
	if sl.Remove("k000") {
		t.Error("second Remove should report false")
	}
	if sl.Len() != 50 {
		t.Fatalf("Len = %d, want 50", sl.Len())
	}

	// Highest remaining odd score ranks first.
	for rank := 1; rank <= 50; rank++ {
		e, ok := sl.ByRank(rank)
		if !ok {
			t.Fatalf("ByRank(%d) missing", rank)
		}
		want := fmt.Sprintf("k%03d", 99-2*(rank-1))
		if e.Key != want {
			t.Errorf("ByRank(%d) = %s, want %s", rank, e.Key, want)
		}
		if r := sl.Rank(e.Key); r != rank {
			t.Errorf("Rank(%s) = %d, want %d", e.Key, r, rank)
		}
	}
}

func TestSkipListRangeBounds(t *testing.T) {
	sl := NewSkipList()
	if got := sl.Range(1, 5); got != nil {
		t.Errorf("Range on empty list = %v, want nil", got)
	}

	sl.Insert("x", 1)
	sl.Insert("y", 2)
	sl.Insert("z", 3)

	tests := []struct {
		name       string
		start, end int
		want       []string
	}{
		{"all", 1, 3, []string{"z", "y", "x"}},
		{"clamped end", 2, 99, []string{"y", "x"}},
		{"zero start", 0, 1, []string{"z"}},
		{"empty", 3, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sl.Range(tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("Range(%d,%d) len = %d, want %d", tt.start, tt.end, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Key != tt.want[i] {
					t.Errorf("Range[%d] = %s, want %s", i, got[i].Key, tt.want[i])
				}
			}
		})
	}
}

func TestSkipListClear(t *testing.T) {
	sl := NewSkipList()
	sl.Insert("a", 1)
	sl.Insert("b", 2)
	sl.Clear()

	if sl.Len() != 0 {
		t.Errorf("Len after Clear = %d", sl.Len())
	}
	if _, ok := sl.Score("a"); ok {
		t.Error("Score should be gone after Clear")
	}
	sl.Insert("c", 1)
	if r := sl.Rank("c"); r != 1 {
		t.Errorf("Rank after reinsert = %d, want 1", r)
	}
}
