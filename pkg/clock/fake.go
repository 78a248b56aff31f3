package clock

import (
	"sync"
	"time"
)

// Fake is a manually-driven Clock for tests. Set positions the clock,
// Advance moves it forward, and Tick fires every ticker created from it.
// When Step is non-zero, every Now call auto-advances the clock by that
// amount, which lets tests exhaust wall-clock budgets deterministically.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	Step    time.Duration
	tickers []*fakeTicker
}

// NewFake returns a Fake positioned at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now.UTC()}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	if f.Step > 0 {
		f.now = f.now.Add(f.Step)
	}
	return t
}

// Set repositions the clock.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// Advance moves the clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Fake) NewTicker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	ft := &fakeTicker{ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, ft)
	return ft
}

// Tick fires all live tickers once with the current time.
func (f *Fake) Tick() {
	f.mu.Lock()
	now := f.now
	tickers := append([]*fakeTicker(nil), f.tickers...)
	f.mu.Unlock()
	for _, t := range tickers {
		t.fire(now)
	}
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	select {
	case t.ch <- now:
	default:
	}
}
