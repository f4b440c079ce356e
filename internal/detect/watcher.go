package detect

import (
	"context"
	"sync"
	"time"
)

// Snapshot is one debounced view of the current candidate set.
type Snapshot struct {
	Candidates []ImageCandidate
	At         time.Time
}

// Source returns the current page context and images on demand. The watcher
// calls it once per debounced burst of change notifications.
type Source func() (PageInfo, []ImageRef)

// Watcher coalesces raw document-change notifications into discrete
// "candidate set changed" events. Notifications arriving within the debounce
// window collapse into a single re-detection; an event is emitted only when
// the resulting candidate set differs from the previous one.
type Watcher struct {
	source   Source
	debounce time.Duration

	mu     sync.Mutex
	dirty  chan struct{}
	events chan Snapshot
	last   []ImageCandidate
}

// NewWatcher creates a watcher over the given source. A non-positive debounce
// falls back to one second, matching the page-side rescan delay.
func NewWatcher(source Source, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Watcher{
		source:   source,
		debounce: debounce,
		dirty:    make(chan struct{}, 1),
		events:   make(chan Snapshot, 1),
	}
}

// Events returns the channel of debounced candidate-set snapshots.
func (w *Watcher) Events() <-chan Snapshot {
	return w.events
}

// Notify records a raw change notification. Safe for concurrent use; never blocks.
func (w *Watcher) Notify() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// Run drives the debounce loop until ctx is cancelled. It performs one initial
// detection immediately so consumers see the page's starting state.
func (w *Watcher) Run(ctx context.Context) {
	w.rescan()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.dirty:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.rescan()
		}
	}
}

func (w *Watcher) rescan() {
	page, images := w.source()
	candidates := Detect(page, images)

	w.mu.Lock()
	changed := !equalCandidates(w.last, candidates)
	if changed {
		w.last = candidates
	}
	w.mu.Unlock()

	if !changed {
		return
	}

	snap := Snapshot{Candidates: candidates, At: time.Now()}
	select {
	case w.events <- snap:
	default:
		// Consumer is behind; drop the stale snapshot in favor of this one.
		select {
		case <-w.events:
		default:
		}
		select {
		case w.events <- snap:
		default:
		}
	}
}

func equalCandidates(a, b []ImageCandidate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Image.ID != b[i].Image.ID || a[i].Confidence != b[i].Confidence {
			return false
		}
	}
	return true
}
