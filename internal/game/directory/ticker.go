package directory

import (
	"context"
	"sync"
	"time"
)

// RegenTicker drives periodic stamina regeneration for every connected
// session. Each session registers a callback; callbacks receive the number
// of whole intervals elapsed since their last invocation, so a stalled
// ticker catches up instead of losing regeneration.
//
// Invariant: each callback observes every elapsed interval exactly once.
type RegenTicker struct {
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	callbacks map[string]*tickState
}

type tickState struct {
	fn   func(steps int)
	last time.Time
}

// NewRegenTicker returns a ticker firing every interval. now may be nil to
// use time.Now.
//
// Precondition: interval must be > 0.
func NewRegenTicker(interval time.Duration, now func() time.Time) *RegenTicker {
	if interval <= 0 {
		panic("directory.NewRegenTicker: interval must be > 0")
	}
	if now == nil {
		now = time.Now
	}
	return &RegenTicker{
		interval:  interval,
		now:       now,
		callbacks: make(map[string]*tickState),
	}
}

// Register adds a callback keyed by player name. Replaces any existing
// callback; elapsed time starts counting from now.
func (r *RegenTicker) Register(name string, fn func(steps int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[name] = &tickState{fn: fn, last: r.now()}
}

// Unregister removes the callback for name.
func (r *RegenTicker) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, name)
}

// Fire invokes every callback whose interval has elapsed, passing the
// number of whole intervals since its last invocation. Exposed for the tick
// loop and for tests.
func (r *RegenTicker) Fire() {
	now := r.now()

	type pending struct {
		fn    func(steps int)
		steps int
	}
	r.mu.Lock()
	fires := make([]pending, 0, len(r.callbacks))
	for _, st := range r.callbacks {
		steps := int(now.Sub(st.last) / r.interval)
		if steps <= 0 {
			continue
		}
		st.last = st.last.Add(time.Duration(steps) * r.interval)
		fires = append(fires, pending{fn: st.fn, steps: steps})
	}
	r.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the ticker.
	for _, f := range fires {
		f.fn(f.steps)
	}
}

// Start begins the tick loop in its own goroutine. Runs until ctx is
// cancelled.
func (r *RegenTicker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Fire()
			}
		}
	}()
}
