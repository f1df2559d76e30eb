package testutils

import (
	"sync"
	"time"

	"github.com/drpcorg/swarmdb/utils"
)

// ManualScheduler queues the calls until Flush(), so the tests
// decide when a "turn" ends.
type ManualScheduler struct {
	lock  sync.Mutex
	queue []*manualTimer
}

type manualTimer struct {
	sched   *ManualScheduler
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.sched.lock.Lock()
	defer t.sched.lock.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (m *ManualScheduler) AfterFunc(_ time.Duration, f func()) utils.Timer {
	m.lock.Lock()
	defer m.lock.Unlock()
	t := &manualTimer{sched: m, f: f}
	m.queue = append(m.queue, t)
	return t
}

// Pending is the number of calls neither run nor stopped
func (m *ManualScheduler) Pending() (n int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, t := range m.queue {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return
}

// Flush runs the queued calls, including the ones scheduled while
// flushing, returns the number of calls made
func (m *ManualScheduler) Flush() (runs int) {
	for {
		m.lock.Lock()
		if len(m.queue) == 0 {
			m.lock.Unlock()
			return
		}
		t := m.queue[0]
		m.queue = m.queue[1:]
		run := !t.stopped && !t.fired
		t.fired = true
		m.lock.Unlock()
		if run {
			t.f()
			runs++
		}
	}
}
