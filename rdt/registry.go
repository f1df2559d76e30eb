package rdt

import (
	"sync"

	"github.com/drpcorg/swarmdb/host"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/pkg/errors"
)

// Registry maps type names to reducer factories. A runtime owns its
// registry and passes it around; there is no global type table.
type Registry struct {
	types map[string]Factory
	lock  sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Factory)}
}

func (reg *Registry) Register(name string, factory Factory) {
	reg.lock.Lock()
	reg.types[name] = factory
	reg.lock.Unlock()
}

func (reg *Registry) Factory(name string) (Factory, error) {
	reg.lock.RLock()
	factory, ok := reg.types[name]
	reg.lock.RUnlock()
	if !ok {
		return nil, errors.Wrapf(swarm_errors.ErrTypeUnknown, "type %q", name)
	}
	return factory, nil
}

// New makes an RDT of the type named in the op
func (reg *Registry) New(state rdx.Op, h host.Host) (*RDT, error) {
	factory, err := reg.Factory(state.Type)
	if err != nil {
		return nil, err
	}
	return New(state, h, factory), nil
}

// Replay rebuilds an object from its op log, the first op creates it
func (reg *Registry) Replay(ops []rdx.Op, h host.Host) (*RDT, error) {
	if len(ops) == 0 {
		return nil, swarm_errors.ErrObjectUnknown
	}
	r, err := reg.New(ops[0], h)
	if err != nil {
		return nil, err
	}
	for _, op := range ops[1:] {
		r.Apply(op)
	}
	return r, nil
}

// OpLog is where the ops of objects are kept, e.g. a host.Replica
type OpLog interface {
	Log(id rdx.UUID) ([]rdx.Op, error)
}

// Load replays the logged ops of an object
func (reg *Registry) Load(log OpLog, h host.Host, id rdx.UUID) (*RDT, error) {
	ops, err := log.Log(id)
	if err != nil {
		return nil, err
	}
	return reg.Replay(ops, h)
}
