package rdt

import (
	"sync"

	"github.com/drpcorg/swarmdb/host"
	"github.com/drpcorg/swarmdb/rdx"
)

// Reducer is the type-specific part of a replicated data type:
// a state and a way to fold ops into it. Reducers are passive,
// they never see the host or the listeners.
type Reducer interface {
	// Noop is called on a "0" op, normally nothing to do
	Noop()
	// Reset replaces the state with a serialized one
	Reset(state rdx.Op)
	// Update folds a type-specific mutation into the state
	Update(op rdx.Op)
	// State serializes the state for a "~" op
	State() string
}

// Factory makes a blank Reducer of some type
type Factory func() Reducer

// RDT is a replicated data type instance: the state of an object is
// a fold of its ops, in the order of application. The outer view of
// the object is a Syncable; all the mutations originate there, the
// host disseminates them. Much like MVC: RDT is the model, Syncable
// is the view, the host is the controller.
type RDT struct {
	Stream

	typ     string
	id      rdx.UUID
	version rdx.UUID
	host    host.Host
	factory Factory
	impl    Reducer
	lock    sync.Mutex
}

// New makes an RDT out of its initial (normally, state) op.
// The host may be nil for detached copies.
func New(state rdx.Op, h host.Host, factory Factory) *RDT {
	r := &RDT{
		typ:     state.Type,
		id:      state.Object,
		version: rdx.ZeroUUID,
		host:    h,
		factory: factory,
		impl:    factory(),
	}
	r.Apply(state)
	return r
}

// Offer applies a locally originated op, then hands it to the host
func (r *RDT) Offer(op rdx.Op) {
	r.Apply(op)
	if r.host != nil {
		r.host.Offer(op)
	}
}

// Apply folds the op into the state. Every op gets emitted to the
// listeners afterwards, including noop and on/off.
func (r *RDT) Apply(op rdx.Op) {
	var kickback bool
	r.lock.Lock()
	switch op.Method {
	case rdx.MethodNoop:
		r.impl.Noop()
		r.version = op.Stamp
	case rdx.MethodState:
		r.impl.Reset(op)
		r.version = op.Stamp
	case rdx.MethodOff:
	case rdx.MethodOn:
		// a zero-stamped "on" asks for the state, if we have any
		kickback = op.Stamp.IsZero() && !r.version.IsZero()
	default:
		r.impl.Update(op)
		r.version = op.Stamp
	}
	r.lock.Unlock()
	if kickback && r.host != nil {
		r.host.Offer(r.ToOp())
	}
	r.Emit(op)
}

func (r *RDT) ID() rdx.UUID {
	return r.id
}

func (r *RDT) Type() string {
	return r.typ
}

func (r *RDT) Host() host.Host {
	return r.host
}

// Version is the stamp of the last op applied. Zero for a stateless
// object, Never for a deleted one.
func (r *RDT) Version() rdx.UUID {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.version
}

// ToOp serializes the state as a "~" op
func (r *RDT) ToOp() rdx.Op {
	r.lock.Lock()
	defer r.lock.Unlock()
	return rdx.NewOp(r.typ, r.id, r.version, rdx.MethodState, r.impl.State())
}

// ToOnOff makes a subscription (un)request for this object
func (r *RDT) ToOnOff(on bool) rdx.Op {
	method := rdx.MethodOff
	if on {
		method = rdx.MethodOn
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return rdx.NewOp(r.typ, r.id, r.version, method, "")
}

// Clone replays the state into a new detached instance
func (r *RDT) Clone() *RDT {
	return New(r.ToOp(), nil, r.factory)
}

func (r *RDT) String() string {
	return r.ToOp().String()
}
