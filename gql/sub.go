// Package gql resolves GraphQL documents against the object cache and
// keeps the results live: every notification about a referenced object
// re-resolves the query, re-subscribes to the new set of objects and
// delivers the new result once all of it is there.
package gql

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drpcorg/swarmdb/cache"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/transport"
	"github.com/drpcorg/swarmdb/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Response is what a callback gets. Off is set for subscriptions,
// Err for failed mutations.
type Response struct {
	Data any
	Off  func() bool
	Err  error
}

type Callback func(Response)

var ErrNoTransport = errors.New("gql: no transport")

// Env is what subs share
type Env struct {
	Transport transport.Transport
	API       transport.API
	Cache     *cache.Cache
	Scheduler utils.Scheduler
	// Debounce delays re-resolution after a notification
	Debounce time.Duration
	Logger   utils.Logger
}

type state = int32

const (
	stateNew state = iota
	stateActive
	stateInactive
)

// Sub is one live query. The lifecycle is new → active → inactive,
// there is no way back.
type Sub struct {
	env  Env
	req  Request
	cb   Callback
	kind Kind
	fp   uint64
	ctx  context.Context
	task *utils.Task

	state     atomic.Int32
	finalizer func(*Sub)
	finalize  sync.Once

	mu   sync.Mutex
	prev transport.Frame
	keys map[string]struct{}
}

func New(env Env, req Request, cb Callback) (*Sub, error) {
	_, kind, err := Operation(req.Query)
	if err != nil {
		return nil, err
	}
	if env.Cache == nil {
		if env.Cache, err = cache.New(cache.DefaultSize); err != nil {
			return nil, err
		}
	}
	if env.Logger == nil {
		env.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
	trace := ""
	if id, err := uuid.NewV7(); err == nil {
		trace = id.String()
	}
	s := &Sub{
		env:  env,
		req:  req,
		cb:   cb,
		kind: kind,
		fp:   Fingerprint(req, cb),
		ctx:  utils.WithDefaultArgs(context.Background(), "sub", trace, "kind", kind.String()),
	}
	s.task = utils.NewTask(env.Scheduler, env.Debounce, s.rebuild)
	return s, nil
}

func (s *Sub) Fingerprint() uint64 {
	return s.fp
}

func (s *Sub) Is(fp uint64) bool {
	return s.fp == fp
}

func (s *Sub) Kind() Kind {
	return s.kind
}

func (s *Sub) Active() bool {
	return s.state.Load() == stateActive
}

// Finalize sets the call made once the sub goes inactive
func (s *Sub) Finalize(f func(*Sub)) {
	s.finalizer = f
}

// Frame is the set of objects the sub listens to now
func (s *Sub) Frame() transport.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev
}

// IDs are the objects referenced by the last pass
func (s *Sub) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utils.SortedKeys(s.keys)
}

// BuildTree resolves the query over the current cache contents
func (s *Sub) BuildTree() (tree Tree) {
	s.env.Cache.View(func(r cache.Reader) {
		tree = Resolve(s.req.Query, s.req.Args, r)
	})
	return
}

// Start makes the first pass and subscribes to the objects found,
// or runs the mutation. Can be called once.
func (s *Sub) Start(ctx context.Context) (bool, error) {
	if !s.state.CompareAndSwap(stateNew, stateActive) {
		return false, nil
	}
	ActiveSubs.WithLabelValues(s.kind.String()).Inc()
	if s.kind == KindMutation {
		s.env.Logger.DebugCtx(s.ctx, "gql: mutation")
		data, err := RunMutation(ctx, s.env.API, s.req.Query, s.req.Args)
		if err != nil {
			s.env.Logger.WarnCtx(s.ctx, "gql: mutation failed", "err", err)
			s.deliver(Response{Err: err})
		} else {
			s.deliver(Response{Data: data})
		}
		return true, nil
	}
	if s.env.Transport == nil {
		s.state.Store(stateInactive)
		ActiveSubs.WithLabelValues(s.kind.String()).Dec()
		return false, ErrNoTransport
	}
	s.mu.Lock()
	tree := s.BuildTree()
	s.prev, s.keys = tree.Frame, tree.IDs
	s.mu.Unlock()
	Rebuilds.WithLabelValues(s.kind.String()).Inc()
	s.env.Logger.DebugCtx(s.ctx, "gql: start", "frame", tree.Frame, "ready", tree.Ready)
	if !tree.Frame.IsEmpty() {
		s.env.Transport.Subscribe(tree.Frame, s)
	}
	if tree.Ready {
		s.task.Schedule()
	}
	return true, nil
}

// Notify takes a transport notification: caches the object, schedules
// a rebuild. Garbage is dropped; once inactive, the sub asks the
// transport to stop.
func (s *Sub) Notify(label string, payload any) {
	if s.state.Load() == stateInactive {
		DroppedNotifications.WithLabelValues("inactive").Inc()
		s.env.Transport.Unsubscribe("", s)
		return
	}
	id, ok := labelID(label)
	if !ok {
		DroppedNotifications.WithLabelValues("label").Inc()
		s.env.Logger.DebugCtx(s.ctx, "gql: bad label", "label", label)
		return
	}
	value, err := cache.Decode(id, payload)
	if err != nil {
		DroppedNotifications.WithLabelValues("payload").Inc()
		s.env.Logger.WarnCtx(s.ctx, "gql: bad payload", "id", id, "err", err)
		return
	}
	s.env.Cache.Put(id, value)
	s.task.Schedule()
}

// labelID gets the object id out of "id" or "#id..." labels
func labelID(label string) (string, bool) {
	label = strings.TrimPrefix(label, transport.FrameSep)
	if i := strings.Index(label, transport.FrameSep); i >= 0 {
		label = label[:i]
	}
	id, err := rdx.ParseUUID(label)
	if err != nil || id.IsZero() {
		return "", false
	}
	return id.String(), true
}

// rebuild re-resolves, moves the subscription to the new frame and
// delivers once ready
func (s *Sub) rebuild() {
	s.mu.Lock()
	if s.state.Load() != stateActive {
		s.mu.Unlock()
		return
	}
	tree := s.BuildTree()
	if tree.Frame != s.prev {
		if !tree.Frame.IsEmpty() {
			s.env.Transport.Subscribe(tree.Frame, s)
		}
		if off := s.prev.Minus(tree.IDs); !off.IsEmpty() {
			s.env.Transport.Unsubscribe(off, s)
		}
		s.env.Logger.DebugCtx(s.ctx, "gql: frame", "from", s.prev, "to", tree.Frame)
		s.prev, s.keys = tree.Frame, tree.IDs
	}
	s.mu.Unlock()
	Rebuilds.WithLabelValues(s.kind.String()).Inc()

	if !tree.Ready {
		return
	}
	switch s.kind {
	case KindSubscription:
		if s.Active() {
			s.deliver(Response{Data: tree.Data, Off: s.Off})
		}
	default:
		if s.Off() {
			s.deliver(Response{Data: tree.Data})
		}
	}
}

func (s *Sub) deliver(resp Response) {
	Deliveries.WithLabelValues(s.kind.String()).Inc()
	if s.cb != nil {
		s.cb(resp)
	}
}

// Off stops the sub. Only the first call does anything and returns
// true; the finalizer runs then.
func (s *Sub) Off() bool {
	if !s.state.CompareAndSwap(stateActive, stateInactive) {
		return false
	}
	ActiveSubs.WithLabelValues(s.kind.String()).Dec()
	s.task.Cancel()
	if s.kind != KindMutation {
		s.mu.Lock()
		prev := s.prev
		s.mu.Unlock()
		if !prev.IsEmpty() {
			s.env.Transport.Unsubscribe(prev, s)
		}
	}
	s.env.Logger.DebugCtx(s.ctx, "gql: off")
	s.finalize.Do(func() {
		if s.finalizer != nil {
			s.finalizer(s)
		}
	})
	return true
}

var _ transport.Handler = (*Sub)(nil)
