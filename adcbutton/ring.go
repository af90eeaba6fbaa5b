package adcbutton

// MaxEvents is the fixed capacity of a per-button event ring. Once full,
// the oldest entry is silently overwritten.
const MaxEvents = 8

// Event is one press/release pair. UpMs == 0 iff the button is still
// pressed (the press has no matching release yet).
type Event struct {
	DownMs uint64
	UpMs   uint64
}

// State is the derived, queryable state of a single button, computed from
// its event ring at a point in time.
type State struct {
	IsPressed         bool
	PressDurationMs    uint64
	ReleaseDurationMs  uint64
	ConsecutiveClicks int
}

// Ring is a fixed-capacity, overwrite-oldest-on-full event history for one
// button. The zero value is an empty ring, ready to use.
type Ring struct {
	events [MaxEvents]Event
	head   int // index the next push will write to
	count  int // number of valid entries, 0..MaxEvents
}

// newestIndex returns the index of the most recently pushed event. Callers
// must check count > 0 first.
func (r *Ring) newestIndex() int {
	return (r.head - 1 + MaxEvents) % MaxEvents
}

// atOffset returns the event `back` slots before the newest (0 = newest,
// 1 = one before that, ...). Callers must ensure back < r.count.
func (r *Ring) atOffset(back int) Event {
	idx := (r.newestIndex() - back + MaxEvents) % MaxEvents
	return r.events[idx]
}

// RecordDown pushes a new press at nowMs. If the most recent event is still
// pressed (UpMs == 0), the duplicate down is silently dropped - the ring
// never records two presses without an intervening release.
func (r *Ring) RecordDown(nowMs uint64) {
	if r.count > 0 && r.atOffset(0).UpMs == 0 {
		return
	}
	r.events[r.head] = Event{DownMs: nowMs, UpMs: 0}
	r.head = (r.head + 1) % MaxEvents
	if r.count < MaxEvents {
		r.count++
	}
}

// RecordUp closes out the most recent press at nowMs. If the most recent
// event already has a release (or the ring is empty), the orphan release is
// silently dropped - the ring never records a release without a preceding
// press.
func (r *Ring) RecordUp(nowMs uint64) {
	if r.count == 0 {
		return
	}
	idx := r.newestIndex()
	if r.events[idx].UpMs != 0 {
		return
	}
	r.events[idx].UpMs = nowMs
}

// CalcState computes the derived State at nowMs. clickGapMs bounds how long
// a gap between a release and the next press may be while still counting as
// the same consecutive-click run.
func (r *Ring) CalcState(nowMs uint64, clickGapMs uint64) State {
	if r.count == 0 {
		return State{}
	}

	newest := r.atOffset(0)
	if newest.UpMs == 0 {
		return State{
			IsPressed:       true,
			PressDurationMs: satSub(nowMs, newest.DownMs),
			// Still holding - this isn't a completed click yet.
			ConsecutiveClicks: 0,
		}
	}

	st := State{
		IsPressed:         false,
		PressDurationMs:    satSub(newest.UpMs, newest.DownMs),
		ReleaseDurationMs:  satSub(nowMs, newest.UpMs),
		ConsecutiveClicks: 1,
	}

	cur := newest
	for back := 1; back < r.count; back++ {
		prior := r.atOffset(back)
		if prior.UpMs == 0 {
			break // shouldn't happen for anything but the newest, but be safe
		}
		gap := satSub(cur.DownMs, prior.UpMs)
		if gap > clickGapMs {
			break
		}
		st.ConsecutiveClicks++
		cur = prior
	}

	return st
}

// Len reports how many events are currently stored (0..MaxEvents).
func (r *Ring) Len() int {
	return r.count
}

// At returns the event `back` slots before the newest, and whether that
// offset is valid. At(0) is the newest event.
func (r *Ring) At(back int) (Event, bool) {
	if back < 0 || back >= r.count {
		return Event{}, false
	}
	return r.atOffset(back), true
}

// satSub is saturating subtraction: a-b, floored at 0. Every timestamp
// delta in this package uses it so clock jitter can never underflow an
// unsigned duration.
func satSub(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return 0
}
