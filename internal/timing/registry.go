package timing

// registry maps timer ids to live timers while preserving insertion order for
// batch delivery. It is owned exclusively by the scheduler lane and needs no
// locking of its own.
//
// The order slice may hold ids that have since been removed; enumeration
// filters against the live map, and the slice is compacted once it carries
// more dead weight than live entries.
type registry struct {
	entries map[TimerID]*timer
	order   []TimerID
}

func newRegistry() *registry {
	return &registry{entries: map[TimerID]*timer{}}
}

// insert adds or replaces the timer under t.id. Replacing a live id keeps its
// original enumeration position: last write wins on the schedule, not on
// batch order.
func (r *registry) insert(t *timer) {
	if _, ok := r.entries[t.id]; !ok {
		r.order = append(r.order, t.id)
	}
	r.entries[t.id] = t
}

// remove is a no-op if id is absent.
func (r *registry) remove(id TimerID) {
	delete(r.entries, id)
	r.maybeCompact()
}

func (r *registry) get(id TimerID) (*timer, bool) {
	t, ok := r.entries[id]
	return t, ok
}

func (r *registry) len() int { return len(r.entries) }

func (r *registry) empty() bool { return len(r.entries) == 0 }

// snapshot returns the live timers in insertion order. The returned slice is
// detached from the registry: entries may be removed (or inserted) while the
// caller iterates it without skipping or duplicating others.
func (r *registry) snapshot() []*timer {
	if len(r.entries) == 0 {
		return nil
	}
	out := make([]*timer, 0, len(r.entries))
	for _, id := range r.order {
		if t, ok := r.entries[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *registry) maybeCompact() {
	if len(r.order) < 16 || len(r.order) <= 2*len(r.entries) {
		return
	}
	live := r.order[:0]
	for _, id := range r.order {
		if _, ok := r.entries[id]; ok {
			live = append(live, id)
		}
	}
	r.order = live
}
