package gql

import (
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
)

// Kind is the operation of a query document
type Kind int

const (
	KindQuery Kind = iota
	KindMutation
	KindSubscription
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	case KindSubscription:
		return "subscription"
	default:
		return "unknown"
	}
}

// Operation checks the document has exactly one operation and
// returns it with its kind
func Operation(doc *ast.QueryDocument) (*ast.OperationDefinition, Kind, error) {
	if doc == nil || len(doc.Operations) != 1 {
		n := 0
		if doc != nil {
			n = len(doc.Operations)
		}
		return nil, 0, errors.Wrapf(swarm_errors.ErrMultipleOperations, "%d operations", n)
	}
	op := doc.Operations[0]
	switch op.Operation {
	case ast.Query, "":
		return op, KindQuery, nil
	case ast.Mutation:
		return op, KindMutation, nil
	case ast.Subscription:
		return op, KindSubscription, nil
	default:
		return nil, 0, errors.Wrapf(swarm_errors.ErrUnknownOperation, "%q", op.Operation)
	}
}
