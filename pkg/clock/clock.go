// Package clock provides cancellable scheduled callbacks for components that
// run on a single event loop.
//
// Components never call time.AfterFunc directly. They receive a Scheduler and
// keep re-armable work in a Task, so tests can drive time with Manual and the
// session can route timer callbacks back onto its own goroutine with Loop.
package clock

import (
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	// Schedule arranges for fn to run after d. The returned cancel func
	// prevents a pending run; calling it after fn ran is harmless.
	Schedule(d time.Duration, fn func()) (cancel func())

	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}

// Loop schedules with real timers and hands each expired callback to post,
// which is expected to run it on the owner's event loop.
type Loop struct {
	post func(func())
}

// NewLoop creates a real-time scheduler that delivers callbacks through post.
// A nil post runs callbacks on the timer goroutine.
func NewLoop(post func(func())) *Loop {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Loop{post: post}
}

// Schedule implements Scheduler.
func (l *Loop) Schedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() { l.post(fn) })
	return func() { t.Stop() }
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Manual is a Scheduler whose time only moves when Advance is called.
// Callbacks run synchronously inside Advance, in deadline order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	at        time.Time
	seq       uint64
	fn        func()
	cancelled bool
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Schedule implements Scheduler.
func (m *Manual) Schedule(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves time forward by d, firing every timer that comes due,
// including timers scheduled by callbacks fired along the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of timers that are neither fired nor cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (m *Manual) popDueLocked(target time.Time) *manualTimer {
	idx := -1
	for i, t := range m.timers {
		if t.cancelled || t.at.After(target) {
			continue
		}
		if idx < 0 || t.at.Before(m.timers[idx].at) ||
			(t.at.Equal(m.timers[idx].at) && t.seq < m.timers[idx].seq) {
			idx = i
		}
	}

	// Drop cancelled timers while we hold the lock.
	live := m.timers[:0]
	var due *manualTimer
	for i, t := range m.timers {
		if i == idx {
			due = t
			continue
		}
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.timers = live
	return due
}
