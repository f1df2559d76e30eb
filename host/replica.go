package host

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/drpcorg/swarmdb/protocol"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/drpcorg/swarmdb/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultScheme = "0262"

// Publisher gets the full state of an object after every change
type Publisher interface {
	Publish(id string, payload any) error
}

// Object is a live replicated object attached to the replica, e.g.
// an *rdt.RDT: ops received from peers get applied to it
type Object interface {
	ID() rdx.UUID
	Apply(op rdx.Op)
	ToOp() rdx.Op
}

type Options struct {
	// Dir is the pebble directory, empty for an in-memory replica
	Dir string `yaml:"dir"`
	// Scheme is the replica id formula
	Scheme string `yaml:"scheme"`
	// Origin is the replica id; generated if empty
	Origin    rdx.Base64x64    `yaml:"origin"`
	Publisher Publisher        `yaml:"-"`
	Logger    utils.Logger     `yaml:"-"`
	Now       func() time.Time `yaml:"-"`
}

func (o *Options) SetDefaults() {
	if o.Scheme == "" {
		o.Scheme = DefaultScheme
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn).With("component", "replica")
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

var WriteOptions = pebble.WriteOptions{Sync: false}

var (
	keyLogPrefix = []byte{'O'}
	keySession   = []byte("Msession")
)

// Replica is a Host backed by a pebble op log. Ops are keyed by
// object and stamp, the values are TLV op records.
type Replica struct {
	opts    Options
	db      *pebble.DB
	scheme  rdx.ReplicaIdScheme
	clock   *rdx.CalendarClock
	log     utils.Logger
	objects sync.Map // rdx.UUID -> Object
	idlock  sync.Mutex
	lock    sync.RWMutex
}

func Open(opts Options) (*Replica, error) {
	opts.SetDefaults()
	scheme, err := rdx.ParseReplicaIdScheme(opts.Scheme)
	if err != nil {
		return nil, errors.Wrapf(err, "scheme %q", opts.Scheme)
	}
	if !scheme.IsCorrect() {
		return nil, errors.Wrapf(rdx.ErrInvalidFormula, "scheme %q is too wide", opts.Scheme)
	}
	if opts.Origin.IsZero() {
		opts.Origin = RandomOrigin(scheme)
	}
	popts := pebble.Options{}
	if opts.Dir == "" {
		popts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(opts.Dir, &popts)
	if err != nil {
		return nil, err
	}
	r := &Replica{
		opts:   opts,
		db:     db,
		scheme: scheme,
		clock:  &rdx.CalendarClock{Source: opts.Origin, Now: opts.Now},
		log:    opts.Logger,
	}
	r.log.Info("replica open", "origin", opts.Origin, "scheme", scheme, "dir", opts.Dir)
	return r, nil
}

// RandomOrigin makes a replica id with a random peer+client part and
// a zero session
func RandomOrigin(scheme rdx.ReplicaIdScheme) rdx.Base64x64 {
	id := uuid.New()
	origin := rdx.Base64x64FromUint64(binary.BigEndian.Uint64(id[:8]))
	width := scheme.Primuses() + scheme.Peers() + scheme.Clients()
	if width == 0 {
		width = rdx.Base64x64Len - scheme.Sessions()
	}
	return origin.Round(width)
}

func (r *Replica) Origin() rdx.Base64x64 {
	return r.opts.Origin
}

func (r *Replica) Scheme() rdx.ReplicaIdScheme {
	return r.scheme
}

func (r *Replica) Time() rdx.UUID {
	return r.clock.Time()
}

// Attach makes the replica apply incoming ops to the object and
// publish its state
func (r *Replica) Attach(obj Object) {
	r.objects.Store(obj.ID(), obj)
}

func (r *Replica) Detach(id rdx.UUID) {
	r.objects.Delete(id)
}

// Offer takes a locally originated op, already applied to its object
func (r *Replica) Offer(op rdx.Op) {
	if err := r.append(op); err != nil {
		r.log.Error("replica: offer failed", "op", op.String(), "err", err)
		return
	}
	ReplicaOps.WithLabelValues("local", op.Method).Inc()
	r.publish(op.Object)
}

// Drain takes op records from a peer
func (r *Replica) Drain(ctx context.Context, recs protocol.Records) error {
	ops, err := protocol.ParseOps(recs)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.clock.See(op.Stamp)
		if err := r.append(op); err != nil {
			return err
		}
		ReplicaOps.WithLabelValues("remote", op.Method).Inc()
		if obj, ok := r.objects.Load(op.Object); ok {
			obj.(Object).Apply(op)
		}
		r.publish(op.Object)
	}
	return nil
}

func (r *Replica) publish(id rdx.UUID) {
	if r.opts.Publisher == nil {
		return
	}
	obj, ok := r.objects.Load(id)
	if !ok {
		return
	}
	state := obj.(Object).ToOp()
	if err := r.opts.Publisher.Publish(id.String(), state.Value); err != nil {
		ReplicaPublishErrors.Inc()
		r.log.Warn("replica: publish failed", "id", id, "err", err)
	}
}

func logKey(object, stamp rdx.UUID) []byte {
	key := append([]byte{}, keyLogPrefix...)
	key = append(key, object.String()...)
	key = append(key, 0)
	return append(key, stamp.String()...)
}

func logRange(object rdx.UUID) (from, till []byte) {
	from = append(append([]byte{}, keyLogPrefix...), object.String()...)
	from = append(from, 0)
	till = bytes.Clone(from)
	till[len(till)-1] = 1
	return
}

// append logs an op; control ops and unstamped ops are not logged
func (r *Replica) append(op rdx.Op) error {
	if op.IsOnOff() || op.Stamp.IsZero() {
		return nil
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.db == nil {
		return swarm_errors.ErrReplicaClosed
	}
	return r.db.Set(logKey(op.Object, op.Stamp), protocol.OpRecord(op), &WriteOptions)
}

// Log lists the logged ops of an object, in stamp order
func (r *Replica) Log(id rdx.UUID) (ops []rdx.Op, err error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.db == nil {
		return nil, swarm_errors.ErrReplicaClosed
	}
	from, till := logRange(id)
	it, err := r.db.NewIter(&pebble.IterOptions{LowerBound: from, UpperBound: till})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		op, _, err := protocol.TakeOp(it.Value())
		if err != nil {
			return ops, errors.Wrapf(err, "bad log record %q", it.Key())
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, errors.Wrap(swarm_errors.ErrObjectUnknown, id.String())
	}
	return ops, nil
}

// Feeder feeds the op log of an object, e.g. to Drain it into
// another replica
func (r *Replica) Feeder(id rdx.UUID) protocol.Feeder {
	return &logFeeder{replica: r, id: id}
}

type logFeeder struct {
	replica *Replica
	id      rdx.UUID
	done    bool
}

func (f *logFeeder) Feed(ctx context.Context) (protocol.Records, error) {
	if f.done {
		return nil, io.EOF
	}
	f.done = true
	ops, err := f.replica.Log(f.id)
	if err != nil {
		return nil, err
	}
	recs := make(protocol.Records, 0, len(ops))
	for _, op := range ops {
		recs = append(recs, protocol.OpRecord(op))
	}
	return recs, io.EOF
}

// NextSession allocates a new session id under this replica's origin.
// The last allocated session persists.
func (r *Replica) NextSession() (rdx.Base64x64, error) {
	r.idlock.Lock()
	defer r.idlock.Unlock()
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.db == nil {
		return rdx.Zero, swarm_errors.ErrReplicaClosed
	}
	last := r.opts.Origin
	val, closer, err := r.db.Get(keySession)
	switch {
	case err == nil:
		last, err = rdx.ParseBase64x64(string(val))
		_ = closer.Close()
		if err != nil {
			return rdx.Zero, err
		}
	case !errors.Is(err, pebble.ErrNotFound):
		return rdx.Zero, err
	}
	session := r.scheme.NextPartValue(last, rdx.Session)
	if session.IsZero() {
		return rdx.Zero, swarm_errors.ErrSessionsExhausted
	}
	next := r.scheme.Compose(r.opts.Origin, session, rdx.Session)
	if err := r.db.Set(keySession, []byte(next), &WriteOptions); err != nil {
		return rdx.Zero, err
	}
	return next, nil
}

// Collector exposes pebble metrics, nil once closed
func (r *Replica) Collector() *PebbleCollector {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.db == nil {
		return nil
	}
	return NewPebbleCollector(r.db)
}

func (r *Replica) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.db == nil {
		return swarm_errors.ErrReplicaClosed
	}
	err := r.db.Close()
	r.db = nil
	return err
}
