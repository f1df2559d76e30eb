package main

import (
	"github.com/drpcorg/swarmdb/rdt"
	"github.com/drpcorg/swarmdb/rdx"
)

// doc keeps a JSON text; "set" replaces it
type doc struct {
	state string
}

func (d *doc) Noop()              {}
func (d *doc) Reset(state rdx.Op) { d.state = state.Value }
func (d *doc) Update(op rdx.Op)   { d.state = op.Value }
func (d *doc) State() string      { return d.state }

// Types the REPL knows
func Types() *rdt.Registry {
	types := rdt.NewRegistry()
	types.Register("doc", func() rdt.Reducer { return &doc{} })
	return types
}
