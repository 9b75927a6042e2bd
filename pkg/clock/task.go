package clock

import "time"

// Task is a single re-armable scheduled callback.
//
// Arming a pending Task cancels the previous schedule exactly once before
// installing the new one. A callback that was already handed to the event
// loop but belongs to an older generation is discarded when it runs, so at
// most one callback per Task can ever fire for the latest Arm.
//
// Task is not safe for concurrent use; call it from the owning loop.
type Task struct {
	sched   Scheduler
	cancel  func()
	gen     uint64
	pending bool
}

// NewTask creates an idle task bound to sched.
func NewTask(sched Scheduler) *Task {
	return &Task{sched: sched}
}

// Arm schedules fn after d, replacing any pending schedule.
func (t *Task) Arm(d time.Duration, fn func()) {
	t.Cancel()

	t.gen++
	gen := t.gen
	t.pending = true
	t.cancel = t.sched.Schedule(d, func() {
		if gen != t.gen || !t.pending {
			return
		}
		t.pending = false
		t.cancel = nil
		fn()
	})
}

// Cancel stops the pending schedule, if any.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.pending {
		t.pending = false
		t.gen++
	}
}

// Pending reports whether a callback is armed and has not fired.
func (t *Task) Pending() bool {
	return t.pending
}
