package rdt

import (
	"sync"

	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/pkg/errors"
)

// Projection rebuilds the derived fields of a view after every op
type Projection interface {
	Rebuild(op rdx.Op)
}

// ProjectionFunc adapts a plain func to Projection
type ProjectionFunc func(op rdx.Op)

func (f ProjectionFunc) Rebuild(op rdx.Op) {
	f(op)
}

// Syncable is a live view of one RDT. Mutations go out through
// Offer, the resulting ops come back through the RDT's stream.
type Syncable struct {
	rdt   *RDT
	proj  Projection
	lstn  *Listener
	close sync.Once
	lock  sync.Mutex
}

// NewSyncable binds a view to the RDT; the projection may be nil
func NewSyncable(r *RDT, proj Projection) *Syncable {
	s := &Syncable{rdt: r, proj: proj}
	lstn := Listener(func(op rdx.Op) bool {
		s.apply(op)
		return true
	})
	s.lstn = &lstn
	r.On(s.lstn)
	return s
}

func (s *Syncable) apply(op rdx.Op) {
	if s.proj != nil {
		s.proj.Rebuild(op)
	}
}

func (s *Syncable) bound() *RDT {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.rdt
}

// Offer makes a new op stamped by the host clock and submits it
func (s *Syncable) Offer(name, value string) error {
	r := s.bound()
	if r == nil {
		return swarm_errors.ErrClosed
	}
	if r.Host() == nil {
		return errors.Wrapf(swarm_errors.ErrClosed, "%s is detached", r.ID())
	}
	stamp := r.Host().Time()
	r.Offer(rdx.NewOp(r.Type(), r.ID(), stamp, name, value))
	return nil
}

// Noop bumps the version, e.g. to mark the object as seen
func (s *Syncable) Noop() error {
	return s.Offer(rdx.MethodNoop, "")
}

func (s *Syncable) ID() rdx.UUID {
	if r := s.bound(); r != nil {
		return r.ID()
	}
	return rdx.ZeroUUID
}

func (s *Syncable) Type() string {
	if r := s.bound(); r != nil {
		return r.Type()
	}
	return ""
}

func (s *Syncable) Version() rdx.UUID {
	if r := s.bound(); r != nil {
		return r.Version()
	}
	return rdx.ZeroUUID
}

func (s *Syncable) HasState() bool {
	return !s.Version().IsZero()
}

// Author is the replica that created the object
func (s *Syncable) Author() rdx.Base64x64 {
	return s.ID().Origin
}

// OnOp listens to the ops of one method; returns the listener for Off
func (s *Syncable) OnOp(method string, cb func(op rdx.Op)) (*Listener, error) {
	return s.listen(func(op rdx.Op) bool {
		if op.Method == method {
			cb(op)
		}
		return true
	})
}

// OnSync listens to every on/off control op
func (s *Syncable) OnSync(cb func(op rdx.Op)) (*Listener, error) {
	return s.listen(func(op rdx.Op) bool {
		if op.IsOnOff() {
			cb(op)
		}
		return true
	})
}

// OnceSync fires on the first on/off op
func (s *Syncable) OnceSync(cb func(op rdx.Op)) (*Listener, error) {
	return s.listen(func(op rdx.Op) bool {
		if !op.IsOnOff() {
			return true
		}
		cb(op)
		return false
	})
}

// OnceSynced fires on the first "on", i.e. once the upstream confirms
// the subscription
func (s *Syncable) OnceSynced(cb func(op rdx.Op)) (*Listener, error) {
	return s.listen(func(op rdx.Op) bool {
		if !op.IsOn() {
			return true
		}
		cb(op)
		return false
	})
}

// OnceStateful calls back as soon as the object has a state. An "off"
// in response means the upstream rejected the object (ErrRejected,
// the reason is in the op value); any other stateless op means the
// object is not known (ErrObjectUnknown).
func (s *Syncable) OnceStateful(cb func(err error, op rdx.Op)) error {
	r := s.bound()
	if r == nil {
		return swarm_errors.ErrClosed
	}
	if s.HasState() {
		cb(nil, r.ToOp())
		return nil
	}
	lstn := Listener(func(op rdx.Op) bool {
		switch {
		case s.HasState():
			cb(nil, op)
		case op.IsOff():
			cb(errors.Wrap(swarm_errors.ErrRejected, op.Value), op)
		default:
			cb(swarm_errors.ErrObjectUnknown, op)
		}
		return false
	})
	r.On(&lstn)
	return nil
}

func (s *Syncable) listen(fn Listener) (*Listener, error) {
	r := s.bound()
	if r == nil {
		return nil, swarm_errors.ErrClosed
	}
	r.On(&fn)
	return &fn, nil
}

// Off removes a listener set by OnOp, OnSync and friends
func (s *Syncable) Off(lstn *Listener) bool {
	r := s.bound()
	if r == nil {
		return false
	}
	return r.Off(lstn)
}

// Close detaches the view; it must not be used afterwards
func (s *Syncable) Close() {
	s.close.Do(func() {
		s.lock.Lock()
		r := s.rdt
		s.rdt = nil
		s.lock.Unlock()
		r.Off(s.lstn)
	})
}
