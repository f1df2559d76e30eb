// Package transport defines what the resolver needs from the network:
// notifications for object ids and a few effectful calls.
package transport

import (
	"context"
)

// Handler receives notifications: the object id as the label and the
// payload, nil if the object is gone.
type Handler interface {
	Notify(label string, payload any)
}

// Transport delivers notifications for the ids in a frame. An empty
// frame on Unsubscribe means every subscription of the handler.
type Transport interface {
	Subscribe(frame Frame, h Handler) bool
	Unsubscribe(frame Frame, h Handler) bool
}

// Connector is implemented by transports that need a live connection
// before subscribing.
type Connector interface {
	Ensure(ctx context.Context) error
}

// API is the effect side: replace an object, add to or remove from
// an array object
type API interface {
	Set(ctx context.Context, id string, payload any) (bool, error)
	Add(ctx context.Context, id string, value any) (bool, error)
	Remove(ctx context.Context, id string, value any) (bool, error)
}
