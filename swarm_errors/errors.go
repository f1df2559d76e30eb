// Provides common swarmdb errors definitions.
package swarm_errors

import "errors"

var (
	ErrObjectUnknown = errors.New("swarmdb: unknown object")
	ErrTypeUnknown   = errors.New("swarmdb: unknown object type")
	ErrRejected      = errors.New("swarmdb: subscription rejected")
	ErrClosed        = errors.New("swarmdb: object closed")

	ErrMultipleOperations = errors.New("swarmdb: expected exactly one operation")
	ErrUnknownOperation   = errors.New("swarmdb: unknown operation")
	ErrSessionsExhausted  = errors.New("swarmdb: session ids exhausted")
	ErrReplicaClosed      = errors.New("swarmdb: no replica open")
)
