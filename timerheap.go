package reactor

import "container/heap"

// timerEntry is one slot in the timer heap: a (deadline, id) pair kept
// separately from the watcher record itself, per spec.md §3's "Timer
// index" — "a mapping watcher-id → deadline kept separately... so that
// 'find next expiration' is a minimum-by-value scan (or a priority queue
// in a production implementation; see §9)". This is the priority-queue
// upgrade spec.md §9 invites: a container/heap min-heap ordered by
// deadline ascending, ties broken by id ascending, grounded on the
// teacher's timerHeap in loop.go.
type timerEntry struct {
	id       WatcherID
	deadline float64
}

// timerHeap is an indexed binary min-heap: alongside the usual
// container/heap slice, it keeps a map from id to current slot so that
// cancelling or re-deadlining an arbitrary id is an O(log n) operation
// rather than a linear scan. Plain container/heap has no notion of
// "remove this specific element," hence the index.
type timerHeap struct {
	entries []timerEntry
	index   map[WatcherID]int
}

func newTimerHeap() *timerHeap {
	return &timerHeap{index: make(map[WatcherID]int)}
}

func (h *timerHeap) Len() int { return len(h.entries) }

func (h *timerHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	return a.id < b.id
}

func (h *timerHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.index[h.entries[i].id] = i
	h.index[h.entries[j].id] = j
}

func (h *timerHeap) Push(x any) {
	e := x.(timerEntry)
	h.index[e.id] = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *timerHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	delete(h.index, e.id)
	return e
}

// insert adds id with deadline to the heap.
func (h *timerHeap) insert(id WatcherID, deadline float64) {
	heap.Push(h, timerEntry{id: id, deadline: deadline})
}

// remove deletes id from the heap, if present. No-op otherwise, matching
// spec.md invariant 5 (cancellation is idempotent).
func (h *timerHeap) remove(id WatcherID) {
	i, ok := h.index[id]
	if !ok {
		return
	}
	heap.Remove(h, i)
}

// update changes the deadline of an existing entry and restores heap
// order. No-op if id is not in the heap.
func (h *timerHeap) update(id WatcherID, deadline float64) {
	i, ok := h.index[id]
	if !ok {
		return
	}
	h.entries[i].deadline = deadline
	heap.Fix(h, i)
}

// minDeadline returns the smallest pending deadline and true, or
// (0, false) if the heap is empty.
func (h *timerHeap) minDeadline() (float64, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}
	return h.entries[0].deadline, true
}

// expired pops and returns every entry whose deadline is <= now, in
// ascending (deadline, id) order, removing each from the heap as it goes.
// Callers must re-check presence of an id before firing it (spec.md §4.3:
// "must not fire a timer that was cancelled mid-iteration") because this
// function only drains the index — it is called once per tick, before any
// of the batch's timer callbacks run, and the caller fires them one at a time, re-checking
// the registry's byID map between each.
func (h *timerHeap) expired(now float64) []WatcherID {
	var ids []WatcherID
	for len(h.entries) > 0 && h.entries[0].deadline <= now {
		e := heap.Pop(h).(timerEntry)
		ids = append(ids, e.id)
	}
	return ids
}
