package protocol

import (
	"context"
	"io"
)

// Feeder reads records from a source. The EOF convention follows
// io.Reader: either `records, EOF` or `records, nil` followed by
// `nil, EOF`.
type Feeder interface {
	Feed(ctx context.Context) (recs Records, err error)
}

type FeedCloser interface {
	Feeder
	io.Closer
}

// Drainer writes records to a destination
type Drainer interface {
	Drain(ctx context.Context, recs Records) error
}

// Relay performs a single feed-drain step
func Relay(ctx context.Context, feeder Feeder, drainer Drainer) error {
	recs, err := feeder.Feed(ctx)
	if len(recs) > 0 {
		if derr := drainer.Drain(ctx, recs); err == nil {
			err = derr
		}
	}
	return err
}

// Pump relays until the feeder (or the drainer) fails, normally with
// io.EOF, or the context is done
func Pump(ctx context.Context, feeder Feeder, drainer Drainer) (err error) {
	for err == nil && ctx.Err() == nil {
		err = Relay(ctx, feeder, drainer)
	}
	if err == nil {
		err = ctx.Err()
	}
	return
}
