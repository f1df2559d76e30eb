package gql

import (
	"context"
	"sync"

	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/transport"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/sync/errgroup"
)

// Mutation fields
const (
	MutationSet    = "set"
	MutationAdd    = "add"
	MutationRemove = "remove"
)

type effect func(ctx context.Context) (bool, error)

// dispatch maps a leaf mutation field to its API call; nil means
// the field can not be run and resolves to false
func dispatch(api transport.API, f *ast.Field, args map[string]any) effect {
	if len(f.SelectionSet) > 0 || api == nil {
		return nil
	}
	id := idArg(args["id"])
	if id == "" {
		return nil
	}
	value := args["value"]
	switch f.Name {
	case MutationSet:
		payload, ok := args["payload"]
		if !ok || payload == nil {
			return nil
		}
		return func(ctx context.Context) (bool, error) { return api.Set(ctx, id, payload) }
	case MutationAdd:
		return func(ctx context.Context) (bool, error) { return api.Add(ctx, id, value) }
	case MutationRemove:
		return func(ctx context.Context) (bool, error) { return api.Remove(ctx, id, value) }
	default:
		return nil
	}
}

func idArg(arg any) string {
	switch id := arg.(type) {
	case rdx.UUID:
		return id.String()
	case string:
		return id
	default:
		return ""
	}
}

// RunMutation runs every mutation field concurrently and merges the
// outcomes by response key. Any failure fails the whole mutation.
func RunMutation(ctx context.Context, api transport.API, doc *ast.QueryDocument, vars map[string]any) (map[string]any, error) {
	op, kind, err := Operation(doc)
	if err != nil {
		return nil, err
	}
	if kind != KindMutation {
		return nil, errors.Errorf("not a mutation: %s", kind)
	}
	w := &walker{doc: doc, vars: vars}
	var (
		lock sync.Mutex
		out  = make(map[string]any)
	)
	effects := make(map[string]effect)
	for _, c := range w.collect(op.SelectionSet, nil, make(map[string]bool)) {
		key := responseKey(c.field)
		out[key] = false
		if run := dispatch(api, c.field, arguments(c.field.Arguments, vars)); run != nil {
			effects[key] = run
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for key, run := range effects {
		g.Go(func() error {
			ok, err := run(gctx)
			if err != nil {
				return errors.Wrapf(err, "mutation %s", key)
			}
			lock.Lock()
			out[key] = ok
			lock.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
