package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/drpcorg/swarmdb/cache"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/drpcorg/swarmdb/utils"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

var ErrNotAnArray = errors.New("transport: object is not an array")

type handlerSet = xsync.MapOf[Handler, struct{}]

// Loopback is an in-process transport: whatever gets published is
// delivered to the subscribers of the id, the last state of every id
// is kept and replayed to new subscribers. It also serves the effect
// API over JSON objects and arrays. Handlers are called with no locks
// held.
type Loopback struct {
	log    utils.Logger
	subs   *xsync.MapOf[string, *handlerSet]
	state  *xsync.MapOf[string, json.RawMessage]
	closed atomic.Bool
}

type LoopbackOpt interface {
	Apply(*Loopback)
}

type LoopbackLoggerOpt struct {
	Logger utils.Logger
}

func (opt *LoopbackLoggerOpt) Apply(l *Loopback) {
	l.log = opt.Logger
}

func NewLoopback(opts ...LoopbackOpt) *Loopback {
	l := &Loopback{
		log:   utils.NewDefaultLogger(slog.LevelWarn).With("component", "loopback"),
		subs:  xsync.NewMapOf[string, *handlerSet](),
		state: xsync.NewMapOf[string, json.RawMessage](),
	}
	for _, o := range opts {
		o.Apply(l)
	}
	return l
}

func (l *Loopback) Ensure(ctx context.Context) error {
	if l.closed.Load() {
		return swarm_errors.ErrClosed
	}
	return ctx.Err()
}

func (l *Loopback) Subscribe(frame Frame, h Handler) bool {
	if l.closed.Load() {
		return false
	}
	ids := frame.IDs()
	for _, id := range ids {
		set, _ := l.subs.LoadOrCompute(id, func() *handlerSet {
			return xsync.NewMapOf[Handler, struct{}]()
		})
		set.Store(h, struct{}{})
	}
	l.log.Debug("loopback: subscribe", "frame", frame)
	for _, id := range ids {
		if state, ok := l.state.Load(id); ok {
			h.Notify(id, []byte(state))
		}
	}
	return true
}

func (l *Loopback) Unsubscribe(frame Frame, h Handler) bool {
	found := false
	drop := func(id string, set *handlerSet) {
		if _, ok := set.LoadAndDelete(h); ok {
			found = true
		}
	}
	if frame.IsEmpty() {
		l.subs.Range(func(id string, set *handlerSet) bool {
			drop(id, set)
			return true
		})
	} else {
		for _, id := range frame.IDs() {
			if set, ok := l.subs.Load(id); ok {
				drop(id, set)
			}
		}
	}
	l.log.Debug("loopback: unsubscribe", "frame", frame, "found", found)
	return found
}

// Subscribers is the number of handlers listening to the id
func (l *Loopback) Subscribers(id string) int {
	if set, ok := l.subs.Load(id); ok {
		return set.Size()
	}
	return 0
}

// Publish stores the new state of an object and notifies the
// subscribers. A nil payload deletes the object.
func (l *Loopback) Publish(id string, payload any) error {
	if l.closed.Load() {
		return swarm_errors.ErrClosed
	}
	if payload == nil {
		l.state.Delete(id)
		l.notify(id, nil)
		return nil
	}
	raw, err := encode(payload)
	if err != nil {
		return errors.Wrapf(err, "publish %s", id)
	}
	l.state.Store(id, raw)
	l.notify(id, raw)
	return nil
}

func (l *Loopback) notify(id string, raw json.RawMessage) {
	set, ok := l.subs.Load(id)
	if !ok {
		return
	}
	set.Range(func(h Handler, _ struct{}) bool {
		if raw == nil {
			h.Notify(id, nil)
		} else {
			h.Notify(id, []byte(raw))
		}
		return true
	})
}

// State returns the last published JSON of the object
func (l *Loopback) State(id string) (json.RawMessage, bool) {
	return l.state.Load(id)
}

func (l *Loopback) Set(ctx context.Context, id string, payload any) (bool, error) {
	if err := l.Ensure(ctx); err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}
	return true, l.Publish(id, payload)
}

func (l *Loopback) Add(ctx context.Context, id string, value any) (bool, error) {
	return l.edit(ctx, id, func(arr []json.RawMessage, val json.RawMessage) []json.RawMessage {
		return append(arr, val)
	}, value)
}

func (l *Loopback) Remove(ctx context.Context, id string, value any) (bool, error) {
	return l.edit(ctx, id, func(arr []json.RawMessage, val json.RawMessage) []json.RawMessage {
		kept := arr[:0]
		for _, el := range arr {
			if !bytes.Equal(compact(el), val) {
				kept = append(kept, el)
			}
		}
		return kept
	}, value)
}

func (l *Loopback) edit(ctx context.Context, id string, fn func([]json.RawMessage, json.RawMessage) []json.RawMessage, value any) (bool, error) {
	if err := l.Ensure(ctx); err != nil {
		return false, err
	}
	val, err := encodeValue(value)
	if err != nil {
		return false, err
	}
	var ferr error
	raw, _ := l.state.Compute(id, func(old json.RawMessage, loaded bool) (json.RawMessage, bool) {
		var arr []json.RawMessage
		if loaded {
			if err := json.Unmarshal(old, &arr); err != nil {
				ferr = errors.Wrap(ErrNotAnArray, id)
				return old, false
			}
		}
		arr = fn(arr, compact(val))
		if arr == nil {
			arr = []json.RawMessage{}
		}
		next, err := json.Marshal(arr)
		if err != nil {
			ferr = err
			return old, !loaded
		}
		return next, false
	})
	if ferr != nil {
		return false, ferr
	}
	l.notify(id, raw)
	return true, nil
}

func (l *Loopback) Close() error {
	l.closed.Store(true)
	l.subs.Clear()
	return nil
}

// encode makes JSON of a payload; raw JSON passes as is, ids become
// references
func encode(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return valid(p)
	case []byte:
		return valid(p)
	case string:
		return valid([]byte(p))
	case rdx.UUID:
		return json.Marshal(cache.Ref(p))
	case map[string]any:
		return json.Marshal(refs(p))
	case []any:
		return json.Marshal(refs(p))
	default:
		return json.Marshal(p)
	}
}

// encodeValue makes JSON of an array element; strings are strings
func encodeValue(value any) (json.RawMessage, error) {
	if str, ok := value.(string); ok {
		return json.Marshal(str)
	}
	return encode(value)
}

func valid(raw []byte) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, cache.ErrBadPayload
	}
	return json.RawMessage(raw), nil
}

func refs(value any) any {
	switch v := value.(type) {
	case rdx.UUID:
		return cache.Ref(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = refs(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = refs(val)
		}
		return out
	}
	return value
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
