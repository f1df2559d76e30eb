package utils

import (
	"sync"
	"time"
)

// Timer is the cancellable handle of a scheduled call
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d, on some goroutine
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallScheduler is backed by time.AfterFunc
var WallScheduler Scheduler = wallScheduler{}

// Task is a coalescing scheduled call: every Schedule() cancels the
// pending run and schedules a new one, so a burst of Schedule()
// calls results in one run. A run that lost the race with a later
// Schedule() or Cancel() does nothing, hence each schedule fires
// at most once. Runs never overlap: a schedule firing while fn is
// running makes fn run once more right after.
type Task struct {
	fn    func()
	sched Scheduler
	delay time.Duration

	lock    sync.Mutex
	gen     uint64
	timer   Timer
	running bool
	rerun   bool
}

func NewTask(sched Scheduler, delay time.Duration, fn func()) *Task {
	if sched == nil {
		sched = WallScheduler
	}
	return &Task{
		fn:    fn,
		sched: sched,
		delay: delay,
	}
}

func (t *Task) Schedule() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.sched.AfterFunc(t.delay, func() {
		t.lock.Lock()
		if gen != t.gen {
			t.lock.Unlock()
			return
		}
		t.timer = nil
		if t.running {
			t.rerun = true
			t.lock.Unlock()
			return
		}
		t.running = true
		t.lock.Unlock()
		t.run()
	})
}

func (t *Task) run() {
	for {
		t.fn()
		t.lock.Lock()
		if !t.rerun {
			t.running = false
			t.lock.Unlock()
			return
		}
		t.rerun = false
		t.lock.Unlock()
	}
}

// Cancel drops the pending run, if any
func (t *Task) Cancel() {
	t.lock.Lock()
	t.gen++
	t.rerun = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.lock.Unlock()
}

// Pending tells whether a run is scheduled
func (t *Task) Pending() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.timer != nil || t.rerun
}
