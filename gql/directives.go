package gql

import (
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/vektah/gqlparser/v2/ast"
)

// Directive is one of the field annotations the resolver knows
type Directive int

const (
	// @node(id: ...) makes the field an object reference
	DirNode Directive = iota
	// @ensure holds delivery until the value and its elements are there
	DirEnsure
	// @slice(begin: 0, end: 0) cuts an array, JS style
	DirSlice
	// @reverse reverses an array
	DirReverse
	// @date decodes a timestamp into a time.Time
	DirDate
	// @skip(if: ...) and @include(if: ...) as in any executor
	DirSkip
	DirInclude
)

var directiveNames = map[string]Directive{
	"node":    DirNode,
	"ensure":  DirEnsure,
	"slice":   DirSlice,
	"reverse": DirReverse,
	"date":    DirDate,
	"skip":    DirSkip,
	"include": DirInclude,
}

func (d Directive) String() string {
	for name, dir := range directiveNames {
		if dir == d {
			return name
		}
	}
	return "unknown"
}

// directives of one field, args evaluated; unknown ones are dropped
type directives map[Directive]map[string]any

func parseDirectives(list ast.DirectiveList, vars map[string]any) directives {
	if len(list) == 0 {
		return nil
	}
	dirs := make(directives, len(list))
	for _, d := range list {
		dir, ok := directiveNames[d.Name]
		if !ok {
			continue
		}
		var args map[string]any
		if len(d.Arguments) > 0 {
			args = arguments(d.Arguments, vars)
		}
		dirs[dir] = args
	}
	return dirs
}

func (dirs directives) has(d Directive) bool {
	_, ok := dirs[d]
	return ok
}

// skipped evaluates @skip and @include
func (dirs directives) skipped() bool {
	if args, ok := dirs[DirSkip]; ok && args["if"] == true {
		return true
	}
	if args, ok := dirs[DirInclude]; ok && args["if"] != true {
		return true
	}
	return false
}

// node overrides the value with an explicit reference
func (dirs directives) node(value any) any {
	args, ok := dirs[DirNode]
	if !ok {
		return value
	}
	if args == nil {
		if str, ok := value.(string); ok {
			if id, err := rdx.ParseUUID(str); err == nil {
				return id
			}
		}
		return value
	}
	switch id := args["id"].(type) {
	case rdx.UUID:
		return id
	case string:
		if ref, err := rdx.ParseUUID(id); err == nil {
			return ref
		}
	}
	return value
}

// scalarDirectives are applied to plain values, in this order
var scalarDirectives = []struct {
	dir   Directive
	apply func(value any, args map[string]any) any
}{
	{DirDate, date},
}

func (dirs directives) scalar(value any) any {
	for _, sd := range scalarDirectives {
		if args, ok := dirs[sd.dir]; ok {
			value = sd.apply(value, args)
		}
	}
	return value
}

func date(value any, _ map[string]any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	id, err := rdx.ParseUUID(str)
	if err != nil {
		return value
	}
	t, err := rdx.CalendarTime(id.Value)
	if err != nil {
		return value
	}
	return t
}

// shaping is the state of list shaping for one field
type shaping struct {
	ready  bool
	ensure bool
}

// listDirectives shape an expanded value, in this order
var listDirectives = []struct {
	dir   Directive
	apply func(value any, args map[string]any, st *shaping) any
}{
	{DirEnsure, ensure},
	{DirSlice, slice},
	{DirReverse, reverse},
}

func (dirs directives) shape(value any, st *shaping) any {
	for _, ld := range listDirectives {
		if args, ok := dirs[ld.dir]; ok {
			value = ld.apply(value, args, st)
		}
	}
	return value
}

func ensure(value any, _ map[string]any, st *shaping) any {
	st.ensure = true
	st.ready = st.ready && value != nil
	return value
}

func slice(value any, args map[string]any, st *shaping) any {
	arr, ok := value.([]any)
	if !ok {
		return value
	}
	n := len(arr)
	begin, end := clampIndex(intArg(args, "begin"), n), n
	if e := intArg(args, "end"); e != 0 {
		end = clampIndex(e, n)
	}
	if end < begin {
		end = begin
	}
	return append([]any{}, arr[begin:end]...)
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func reverse(value any, _ map[string]any, _ *shaping) any {
	arr, ok := value.([]any)
	if !ok {
		return value
	}
	out := make([]any, len(arr))
	for i, el := range arr {
		out[len(arr)-1-i] = el
	}
	return out
}

func intArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// identified is true for objects with a non-empty id
func identified(value any) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}
	switch id := obj["id"].(type) {
	case nil:
		return false
	case string:
		return id != ""
	case bool:
		return id
	default:
		return true
	}
}

func arguments(list ast.ArgumentList, vars map[string]any) map[string]any {
	args := make(map[string]any, len(list))
	for _, arg := range list {
		if arg.Value == nil {
			continue
		}
		if arg.Value.Kind == ast.Variable {
			args[arg.Name] = vars[arg.Value.Raw]
			continue
		}
		v, err := arg.Value.Value(vars)
		if err != nil {
			continue
		}
		args[arg.Name] = v
	}
	return args
}
