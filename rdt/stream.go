package rdt

import (
	"sync"

	"github.com/drpcorg/swarmdb/rdx"
)

// Listener gets every op applied; returning false unsubscribes it.
type Listener func(op rdx.Op) bool

// Stream is a list of op listeners. Listeners are invoked outside
// of the lock, so they may (un)subscribe freely.
type Stream struct {
	lstns []*Listener
	lock  sync.Mutex
}

func (s *Stream) On(lstn *Listener) {
	s.lock.Lock()
	s.lstns = append(s.lstns, lstn)
	s.lock.Unlock()
}

// Off removes the listener, returns false if it was not there
func (s *Stream) Off(lstn *Listener) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i := 0; i < len(s.lstns); i++ {
		if s.lstns[i] == lstn {
			s.lstns = append(s.lstns[:i], s.lstns[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Stream) Listeners() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.lstns)
}

func (s *Stream) Emit(op rdx.Op) {
	s.lock.Lock()
	lstns := make([]*Listener, len(s.lstns))
	copy(lstns, s.lstns)
	s.lock.Unlock()
	for _, lstn := range lstns {
		if !(*lstn)(op) {
			s.Off(lstn)
		}
	}
}
