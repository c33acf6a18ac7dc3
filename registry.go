package reactor

// streamBucket is spec.md §3's "Stream bucket": for one distinct stream,
// a mapping watcher-id → callback plus the handle, in FIFO registration
// order. A stream sits in the interest set iff its bucket is non-empty
// (invariant 2); the bucket is garbage-collected the instant it empties.
type streamBucket struct {
	handle StreamHandle
	order  []WatcherID
	cbs    map[WatcherID]IOCallback
}

func newStreamBucket(handle StreamHandle) *streamBucket {
	return &streamBucket{handle: handle, cbs: make(map[WatcherID]IOCallback)}
}

func (b *streamBucket) add(id WatcherID, cb IOCallback) {
	b.order = append(b.order, id)
	b.cbs[id] = cb
}

func (b *streamBucket) remove(id WatcherID) {
	if _, ok := b.cbs[id]; !ok {
		return
	}
	delete(b.cbs, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *streamBucket) empty() bool { return len(b.cbs) == 0 }

// registry is the reactor's watcher bookkeeping: one master table keyed
// by [WatcherID] (every live watcher, disabled or not), plus the active
// index structures spec.md §3 calls the timer index, read/write buckets,
// and immediates queue. A watcher's disabled flag, not a separate table,
// models spec.md's disabled-parking table — disabling removes it from
// its active index but leaves the record (and hence its original kind
// and reconstruction fields) in byID.
type registry struct {
	byID map[WatcherID]*watcher

	timers *timerHeap

	readBuckets  map[int]*streamBucket
	writeBuckets map[int]*streamBucket

	// immediates is the FIFO queue of immediate ids awaiting the next
	// tick's drain (spec.md §4.5).
	immediates []WatcherID
}

func newRegistry() *registry {
	return &registry{
		byID:         make(map[WatcherID]*watcher),
		timers:       newTimerHeap(),
		readBuckets:  make(map[int]*streamBucket),
		writeBuckets: make(map[int]*streamBucket),
	}
}

func (r *registry) get(id WatcherID) (*watcher, bool) {
	w, ok := r.byID[id]
	return w, ok
}

// insertActive places w into the active index matching its kind. For
// timer watchers with an unset deadline, the timer index entry is
// skipped; the caller (run/enable) arms the deadline and inserts the
// timer into the heap itself in that case.
func (r *registry) insertActive(w *watcher) {
	switch w.kind {
	case kindTimer:
		if w.deadline != deadlineUnset {
			r.timers.insert(w.id, w.deadline)
		}
	case kindReadIO:
		r.bucketFor(r.readBuckets, w.stream, true).add(w.id, w.ioCB)
	case kindWriteIO:
		r.bucketFor(r.writeBuckets, w.stream, true).add(w.id, w.ioCB)
	case kindImmediate:
		r.immediates = append(r.immediates, w.id)
	}
}

// removeActive removes w from whichever active index currently holds it.
// Safe to call even if w isn't present in one (e.g. a timer with an
// unset deadline was never inserted into the heap).
func (r *registry) removeActive(w *watcher) {
	switch w.kind {
	case kindTimer:
		r.timers.remove(w.id)
	case kindReadIO:
		r.removeFromBucket(r.readBuckets, w)
	case kindWriteIO:
		r.removeFromBucket(r.writeBuckets, w)
	case kindImmediate:
		for i, id := range r.immediates {
			if id == w.id {
				r.immediates = append(r.immediates[:i], r.immediates[i+1:]...)
				break
			}
		}
	}
}

func (r *registry) removeFromBucket(buckets map[int]*streamBucket, w *watcher) {
	key := w.stream.Key()
	b, ok := buckets[key]
	if !ok {
		return
	}
	b.remove(w.id)
	if b.empty() {
		delete(buckets, key)
	}
}

func (r *registry) bucketFor(buckets map[int]*streamBucket, stream StreamHandle, create bool) *streamBucket {
	key := stream.Key()
	b, ok := buckets[key]
	if !ok {
		if !create {
			return nil
		}
		b = newStreamBucket(stream)
		buckets[key] = b
	}
	return b
}

// register adds a brand-new watcher to byID and, unless parked, to its
// active index.
func (r *registry) register(w *watcher) {
	r.byID[w.id] = w
	if !w.disabled {
		r.insertActive(w)
	}
}

// cancel removes id from wherever it resides, active or parked. No-op if
// id is unknown (invariant 5: cancellation is idempotent).
func (r *registry) cancel(id WatcherID) {
	w, ok := r.byID[id]
	if !ok {
		return
	}
	if !w.disabled {
		r.removeActive(w)
	}
	delete(r.byID, id)
}

// disable moves id from its active index into the parked state. No-op if
// id is unknown or already disabled.
func (r *registry) disable(id WatcherID) {
	w, ok := r.byID[id]
	if !ok || w.disabled {
		return
	}
	r.removeActive(w)
	w.disabled = true
}

// enable reverses disable, reinserting w into its original kind's active
// index. No-op if id is unknown or not parked. Returns the watcher so the
// caller can arm a timer whose deadline is still unset (insertActive left
// such a timer out of the heap).
func (r *registry) enable(id WatcherID) (*watcher, bool) {
	w, ok := r.byID[id]
	if !ok || !w.disabled {
		return nil, false
	}
	w.disabled = false
	r.insertActive(w)
	return w, true
}

// drainImmediates snapshots the pending immediate ids and clears the
// live queue, per spec.md §4.5: new immediates registered during the
// drain must not be visible in the returned slice.
func (r *registry) drainImmediates() []WatcherID {
	if len(r.immediates) == 0 {
		return nil
	}
	snapshot := r.immediates
	r.immediates = nil
	return snapshot
}

// readInterestEmpty and writeInterestEmpty report whether any stream
// currently has a non-empty read/write bucket (invariant 2).
func (r *registry) readInterestEmpty() bool  { return len(r.readBuckets) == 0 }
func (r *registry) writeInterestEmpty() bool { return len(r.writeBuckets) == 0 }
