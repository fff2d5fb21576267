package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RoundTimer counts one round down from its budget, one tick per second.
// Remaining time is read from the clock against a fixed deadline, so it is
// exact even when tick callbacks run late. It expires at most once; a
// cancelled timer ignores callbacks already in flight.
type RoundTimer struct {
	clock    clockwork.Clock
	budget   int
	onTick   func(remaining int)
	onExpire func()

	mu       sync.Mutex
	deadline time.Time
	frozen   int
	ticker   clockwork.Timer
	expiry   clockwork.Timer
	running  bool
	done     bool
	expired  bool
}

// NewRoundTimer prepares a countdown of budget seconds. Callbacks run outside the timer's lock.
func NewRoundTimer(c clockwork.Clock, budget int, onTick func(remaining int), onExpire func()) *RoundTimer {
	if onTick == nil {
		onTick = func(int) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}
	return &RoundTimer{
		clock:    c,
		budget:   budget,
		onTick:   onTick,
		onExpire: onExpire,
		frozen:   budget,
	}
}

// Start arms the countdown. A timer can only be started once.
func (t *RoundTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.done {
		return
	}
	t.running = true
	t.deadline = t.clock.Now().Add(time.Duration(t.budget) * time.Second)
	t.expiry = t.clock.AfterFunc(time.Duration(t.budget)*time.Second, t.expire)
	if t.budget > 1 {
		t.ticker = t.clock.AfterFunc(time.Second, t.tick)
	}
}

// Cancel stops the countdown without expiring it and freezes Remaining.
func (t *RoundTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.frozen = t.remainingLocked()
	}
	t.stopLocked()
	t.running = false
	t.done = true
}

func (t *RoundTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// Elapsed is budget minus remaining, clamped to [0, budget].
func (t *RoundTimer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clampSeconds(t.budget-t.remainingLocked(), t.budget)
}

func (t *RoundTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

func (t *RoundTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// remainingLocked rounds up to whole seconds, so a tick at second k reports budget-k.
func (t *RoundTimer) remainingLocked() int {
	if t.expired {
		return 0
	}
	if !t.running {
		return t.frozen
	}
	left := t.deadline.Sub(t.clock.Now())
	secs := int((left + time.Second - 1) / time.Second)
	return clampSeconds(secs, t.budget)
}

func (t *RoundTimer) tick() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	remaining := t.remainingLocked()
	t.mu.Unlock()
	if remaining <= 0 {
		return
	}
	t.onTick(remaining)

	t.mu.Lock()
	defer t.mu.Unlock()
	// the last second belongs to expire
	if !t.running || remaining <= 1 {
		return
	}
	next := t.deadline.Add(-time.Duration(remaining-1) * time.Second)
	t.ticker = t.clock.AfterFunc(next.Sub(t.clock.Now()), t.tick)
}

func (t *RoundTimer) expire() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
	t.running = false
	t.done = true
	t.expired = true
	t.mu.Unlock()

	t.onTick(0)
	t.onExpire()
}

func (t *RoundTimer) stopLocked() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.expiry != nil {
		t.expiry.Stop()
		t.expiry = nil
	}
}

func clampSeconds(v, budget int) int {
	if v < 0 {
		return 0
	}
	if v > budget {
		return budget
	}
	return v
}
