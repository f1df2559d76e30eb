package gql

import (
	"github.com/drpcorg/swarmdb/cache"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/transport"
	"github.com/vektah/gqlparser/v2/ast"
)

// Tree is the outcome of one resolution pass
type Tree struct {
	Data any
	// IDs are all the objects the pass referenced
	IDs   map[string]struct{}
	Frame transport.Frame
	// Ready is false if some referenced object is not cached yet, or
	// fails an @ensure
	Ready bool
}

// fieldFunc resolves one field against the parent value
type fieldFunc func(f *ast.Field, dirs directives, root any) any

// walker goes through selection sets the way an executor does:
// fragments are inlined, @skip/@include are honored, results are
// keyed by alias
type walker struct {
	doc  *ast.QueryDocument
	vars map[string]any
}

type collected struct {
	field *ast.Field
	dirs  directives
}

func (w *walker) collect(set ast.SelectionSet, into []collected, seen map[string]bool) []collected {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			dirs := parseDirectives(s.Directives, w.vars)
			if dirs.skipped() {
				continue
			}
			into = append(into, collected{field: s, dirs: dirs})
		case *ast.InlineFragment:
			if parseDirectives(s.Directives, w.vars).skipped() {
				continue
			}
			into = w.collect(s.SelectionSet, into, seen)
		case *ast.FragmentSpread:
			if seen[s.Name] || parseDirectives(s.Directives, w.vars).skipped() {
				continue
			}
			def := s.Definition
			if def == nil && w.doc != nil {
				def = w.doc.Fragments.ForName(s.Name)
			}
			if def == nil {
				continue
			}
			seen[s.Name] = true
			into = w.collect(def.SelectionSet, into, seen)
		}
	}
	return into
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// selection resolves the set against root; sub-selections are
// completed recursively over objects and arrays
func (w *walker) selection(set ast.SelectionSet, root any, fn fieldFunc) map[string]any {
	out := make(map[string]any)
	for _, c := range w.collect(set, nil, make(map[string]bool)) {
		value := fn(c.field, c.dirs, root)
		if len(c.field.SelectionSet) > 0 {
			value = w.complete(c.field.SelectionSet, value, fn)
		}
		out[responseKey(c.field)] = value
	}
	return out
}

func (w *walker) complete(set ast.SelectionSet, value any, fn fieldFunc) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = w.complete(set, el, fn)
		}
		return out
	default:
		return w.selection(set, v, fn)
	}
}

// resolver is one query resolution pass over a cache snapshot
type resolver struct {
	walker
	cache cache.Reader
	ids   map[string]struct{}
	ready bool
}

func (r *resolver) fetch(id string) (any, bool) {
	r.ids[id] = struct{}{}
	return r.cache.Get(id)
}

func (r *resolver) field(f *ast.Field, dirs directives, root any) any {
	name := f.Name
	if name == "__typename" {
		name = "type"
	}
	var value any
	if obj, ok := root.(map[string]any); ok {
		value = obj[name]
	}
	value = dirs.node(value)

	ref, isRef := value.(rdx.UUID)
	if !isRef {
		return dirs.scalar(value)
	}
	if len(f.SelectionSet) == 0 {
		return dirs.scalar(ref.String())
	}

	value, cached := r.fetch(ref.String())
	st := shaping{ready: r.ready && cached}
	value = dirs.shape(value, &st)
	r.ready = st.ready

	arr, ok := value.([]any)
	if !ok {
		return value
	}
	out := make([]any, len(arr))
	for i, el := range arr {
		ref, ok := el.(rdx.UUID)
		if !ok {
			out[i] = el
			continue
		}
		elem, cached := r.fetch(ref.String())
		if !cached {
			r.ready = false
		} else if st.ensure {
			r.ready = r.ready && identified(elem)
		}
		out[i] = elem
	}
	return out
}

// Resolve runs one pass of the query over a cache snapshot
func Resolve(doc *ast.QueryDocument, vars map[string]any, snapshot cache.Reader) Tree {
	r := &resolver{
		walker: walker{doc: doc, vars: vars},
		cache:  snapshot,
		ids:    make(map[string]struct{}),
		ready:  true,
	}
	var data any
	if op, _, err := Operation(doc); err == nil {
		data = r.selection(op.SelectionSet, map[string]any{}, r.field)
	}
	return Tree{
		Data:  data,
		IDs:   r.ids,
		Frame: transport.SetFrame(r.ids),
		Ready: r.ready,
	}
}
