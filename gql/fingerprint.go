package gql

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Fingerprint hashes the query text, the variables and the callback
// code. Two requests with the same fingerprint get the same results
// delivered the same way, so only one of them may be live.
//
// Callbacks are compared by code, not by receiver or captured state:
// the method value of one method on two different receivers, or two
// closures made by one func literal, give the same fingerprint. To
// run the same query for two subscribers, give them callbacks with
// different code.
func Fingerprint(req Request, cb Callback) uint64 {
	h := xxhash.New()
	if req.Query != nil {
		formatter.NewFormatter(h).FormatQueryDocument(req.Query)
	}
	_, _ = h.Write([]byte{0})
	if len(req.Args) > 0 {
		if vars, err := json.Marshal(req.Args); err == nil {
			_, _ = h.Write(vars)
		} else {
			_, _ = fmt.Fprintf(h, "%#v", req.Args)
		}
	}
	_, _ = h.Write([]byte{0})
	if cb != nil {
		_, _ = fmt.Fprintf(h, "%x", reflect.ValueOf(cb).Pointer())
	}
	return h.Sum64()
}

// Request is a parsed query document with its variables
type Request struct {
	Query *ast.QueryDocument
	Args  map[string]any
}
