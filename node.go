package swarmdb

import (
	"github.com/drpcorg/swarmdb/host"
	"github.com/drpcorg/swarmdb/rdt"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/transport"
	"github.com/pkg/errors"
)

// Node is an in-process setup: a replica publishes object states to a
// loopback transport, the queries of the SwarmDB listen to it
type Node struct {
	*SwarmDB
	Replica  *host.Replica
	Loopback *transport.Loopback
	Types    *rdt.Registry
}

func OpenNode(cfg Config, types *rdt.Registry) (*Node, error) {
	cfg.Options.SetDefaults()
	loop := transport.NewLoopback(&transport.LoopbackLoggerOpt{Logger: cfg.Options.Logger})
	cfg.Replica.Publisher = loop
	if cfg.Replica.Logger == nil {
		cfg.Replica.Logger = cfg.Options.Logger
	}
	replica, err := host.Open(cfg.Replica)
	if err != nil {
		return nil, errors.Wrap(err, "replica")
	}
	db, err := New(loop, loop, cfg.Options)
	if err != nil {
		_ = replica.Close()
		return nil, err
	}
	if types == nil {
		types = rdt.NewRegistry()
	}
	return &Node{SwarmDB: db, Replica: replica, Loopback: loop, Types: types}, nil
}

// Create makes a new object of a registered type, logs and
// publishes its state
func (n *Node) Create(typ, state string) (*rdt.RDT, error) {
	id := n.Replica.Time()
	obj, err := n.Types.New(rdx.NewOp(typ, id, id, rdx.MethodState, state), n.Replica)
	if err != nil {
		return nil, err
	}
	n.Replica.Attach(obj)
	n.Replica.Offer(obj.ToOp())
	return obj, nil
}

// Load brings a logged object back to life
func (n *Node) Load(id rdx.UUID) (*rdt.RDT, error) {
	obj, err := n.Types.Load(n.Replica, n.Replica, id)
	if err != nil {
		return nil, err
	}
	n.Replica.Attach(obj)
	return obj, nil
}

func (n *Node) Close() error {
	_ = n.SwarmDB.Close()
	_ = n.Loopback.Close()
	return n.Replica.Close()
}
