package rdx

import (
	"sync"
	"time"
)

// Clock issues event stamps for a replica. Stamps of one clock
// are strictly increasing; See() moves the clock past a remote
// stamp so local events are ordered after everything seen.
type Clock interface {
	See(stamp UUID)
	Time() UUID
	Origin() Base64x64
}

// LogicalClock is a Lamport-like counter, no wall time involved.
type LogicalClock struct {
	Source Base64x64
	last   Base64x64
	lock   sync.Mutex
}

func (llc *LogicalClock) See(stamp UUID) {
	llc.lock.Lock()
	if stamp.Value.Compare(llc.last) > 0 && !stamp.Value.IsNever() {
		llc.last = stamp.Value
	}
	llc.lock.Unlock()
}

func (llc *LogicalClock) Time() UUID {
	llc.lock.Lock()
	defer llc.lock.Unlock()
	next, ok := llc.last.Next(Base64x64Len)
	if !ok {
		return NewStamp(Never, llc.Source)
	}
	llc.last = next
	return NewStamp(next, llc.Source)
}

func (llc *LogicalClock) Origin() Base64x64 {
	return llc.Source
}

// CalendarClock stamps events with calendar numerals (see
// CalendarFromTime), bumping the sequence digits when the wall
// clock stalls or goes back.
type CalendarClock struct {
	Source Base64x64
	Now    func() time.Time
	last   Base64x64
	lock   sync.Mutex
}

func (cc *CalendarClock) See(stamp UUID) {
	cc.lock.Lock()
	if stamp.Value.Compare(cc.last) > 0 && !stamp.Value.IsNever() {
		cc.last = stamp.Value
	}
	cc.lock.Unlock()
}

func (cc *CalendarClock) Time() UUID {
	now := time.Now
	if cc.Now != nil {
		now = cc.Now
	}
	cc.lock.Lock()
	defer cc.lock.Unlock()
	val := CalendarFromTime(now())
	if val.Compare(cc.last) <= 0 {
		next, ok := cc.last.Next(Base64x64Len)
		if !ok {
			return NewStamp(Never, cc.Source)
		}
		val = next
	}
	cc.last = val
	return NewStamp(val, cc.Source)
}

func (cc *CalendarClock) Origin() Base64x64 {
	return cc.Source
}
