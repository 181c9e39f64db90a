package spatial

// Bounded multi-producer single-consumer ring buffer (Vyukov). Each slot
// carries a sequence number so the consumer never observes a slot whose
// producer has claimed it but not yet written it.

import (
	"runtime"
	"sync/atomic"
)

// CacheLineSize is the typical CPU cache line size (64 bytes on x86-64).
const CacheLineSize = 64

// Padding keeps hot counters on separate cache lines.
type Padding [CacheLineSize]byte

type queueSlot[T any] struct {
	seq  atomic.Uint64
	item T
}

// LockFreeQueue is a bounded MPSC queue. Any goroutine may push; exactly one
// goroutine may pop.
type LockFreeQueue[T any] struct {
	_pad0 Padding
	head  atomic.Uint64 // next slot to claim (producers)
	_pad1 Padding
	tail  atomic.Uint64 // next slot to read (consumer)
	_pad2 Padding
	mask  uint64
	slots []queueSlot[T]
}

// NewLockFreeQueue creates a queue. Capacity is rounded up to a power of 2.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}

	q := &LockFreeQueue[T]{
		mask:  uint64(size - 1),
		slots: make([]queueSlot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush enqueues item. It returns false if the queue is full.
func (q *LockFreeQueue[T]) TryPush(item T) bool {
	for {
		pos := q.head.Load()
		slot := &q.slots[pos&q.mask]
		diff := int64(slot.seq.Load()) - int64(pos)

		switch {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				slot.item = item
				slot.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		}
		runtime.Gosched()
	}
}

// TryPop dequeues one item. Consumer only.
func (q *LockFreeQueue[T]) TryPop() (T, bool) {
	var zero T

	pos := q.tail.Load()
	slot := &q.slots[pos&q.mask]
	if int64(slot.seq.Load())-int64(pos+1) < 0 {
		return zero, false
	}

	item := slot.item
	slot.item = zero
	slot.seq.Store(pos + q.mask + 1)
	q.tail.Store(pos + 1)
	return item, true
}

// DrainTo pops up to len(buf) items into buf and returns how many it wrote.
// Consumer only.
func (q *LockFreeQueue[T]) DrainTo(buf []T) int {
	n := 0
	for n < len(buf) {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		buf[n] = item
		n++
	}
	return n
}

// Len returns an approximate item count.
func (q *LockFreeQueue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity.
func (q *LockFreeQueue[T]) Cap() int {
	return int(q.mask + 1)
}
