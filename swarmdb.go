// Package swarmdb runs GraphQL queries against replicated objects.
// Identical live queries are deduplicated; every query stays
// subscribed to exactly the objects its result references.
package swarmdb

import (
	"context"
	"sync/atomic"

	"github.com/drpcorg/swarmdb/cache"
	"github.com/drpcorg/swarmdb/gql"
	"github.com/drpcorg/swarmdb/host"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/drpcorg/swarmdb/transport"
	"github.com/drpcorg/swarmdb/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// Result of Execute: OK is false if an identical query is live
type Result struct {
	OK  bool
	Off func() bool
}

// SwarmDB owns the object cache and the live subs, keyed by their
// fingerprints
type SwarmDB struct {
	opts      Options
	transport transport.Transport
	api       transport.API
	cache     *cache.Cache
	subs      *xsync.MapOf[uint64, *gql.Sub]
	log       utils.Logger
	closed    atomic.Bool
}

func New(t transport.Transport, api transport.API, opts Options) (*SwarmDB, error) {
	opts.SetDefaults()
	c, err := cache.New(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &SwarmDB{
		opts:      opts,
		transport: t,
		api:       api,
		cache:     c,
		subs:      xsync.NewMapOf[uint64, *gql.Sub](),
		log:       opts.Logger,
	}, nil
}

func (db *SwarmDB) Cache() *cache.Cache {
	return db.cache
}

// Execute starts a query, a subscription or a mutation. The callback
// gets the results; Off stops it early.
func (db *SwarmDB) Execute(ctx context.Context, req gql.Request, cb gql.Callback) (Result, error) {
	if db.closed.Load() {
		return Result{}, swarm_errors.ErrClosed
	}
	fp := gql.Fingerprint(req, cb)
	if _, ok := db.subs.Load(fp); ok {
		return Result{}, nil
	}
	if _, _, err := gql.Operation(req.Query); err != nil {
		return Result{}, err
	}
	if conn, ok := db.transport.(transport.Connector); ok {
		if err := conn.Ensure(ctx); err != nil {
			return Result{}, errors.Wrap(err, "connection")
		}
	}
	sub, err := gql.New(gql.Env{
		Transport: db.transport,
		API:       db.api,
		Cache:     db.cache,
		Scheduler: db.opts.Scheduler,
		Debounce:  db.opts.Debounce,
		Logger:    db.log,
	}, req, cb)
	if err != nil {
		return Result{}, err
	}
	sub.Finalize(db.remove)
	if _, loaded := db.subs.LoadOrStore(fp, sub); loaded {
		return Result{}, nil
	}
	ok, err := sub.Start(ctx)
	if err != nil || !ok {
		db.remove(sub)
		return Result{}, err
	}
	db.log.Debug("execute", "kind", sub.Kind().String(), "subs", db.subs.Size())
	return Result{OK: true, Off: sub.Off}, nil
}

// remove drops the sub, unless another one took its place
func (db *SwarmDB) remove(sub *gql.Sub) {
	db.subs.Compute(sub.Fingerprint(), func(old *gql.Sub, loaded bool) (*gql.Sub, bool) {
		return old, !loaded || old == sub
	})
}

// Len is the number of live subs
func (db *SwarmDB) Len() int {
	return db.subs.Size()
}

func (db *SwarmDB) Subs() (subs []*gql.Sub) {
	db.subs.Range(func(_ uint64, sub *gql.Sub) bool {
		subs = append(subs, sub)
		return true
	})
	return
}

// Close stops all the subs
func (db *SwarmDB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return swarm_errors.ErrClosed
	}
	for _, sub := range db.Subs() {
		if !sub.Off() {
			db.remove(sub)
		}
	}
	return nil
}

// Collectors are all the metrics of the package and its parts
func Collectors() []prometheus.Collector {
	return append(gql.Collectors(), host.Collectors()...)
}
