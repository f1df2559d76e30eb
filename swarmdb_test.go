package swarmdb

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/drpcorg/swarmdb/gql"
	"github.com/drpcorg/swarmdb/rdt"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	testutils "github.com/drpcorg/swarmdb/test_utils"
	"github.com/drpcorg/swarmdb/transport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func parse(t *testing.T, query string) *ast.QueryDocument {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

type collector struct {
	lock sync.Mutex
	got  []gql.Response
}

func (c *collector) callback(resp gql.Response) {
	c.lock.Lock()
	c.got = append(c.got, resp)
	c.lock.Unlock()
}

func (c *collector) All() []gql.Response {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]gql.Response(nil), c.got...)
}

// jsonDoc is a toy type: the state is a JSON text, "set" replaces it
type jsonDoc struct{ state string }

func (d *jsonDoc) Noop()              {}
func (d *jsonDoc) Reset(state rdx.Op) { d.state = state.Value }
func (d *jsonDoc) Update(op rdx.Op)   { d.state = op.Value }
func (d *jsonDoc) State() string      { return d.state }

func newDB(t *testing.T) (*SwarmDB, *transport.Loopback, *testutils.ManualScheduler) {
	sched := &testutils.ManualScheduler{}
	loop := transport.NewLoopback()
	db, err := New(loop, loop, Options{Scheduler: sched})
	require.NoError(t, err)
	return db, loop, sched
}

func TestExecute_Dedup(t *testing.T) {
	db, _, _ := newDB(t)
	var c collector
	req := gql.Request{
		Query: parse(t, `subscription { a @node(id: $id) { id } }`),
		Args:  map[string]any{"id": "1+a"},
	}
	first, err := db.Execute(context.Background(), req, c.callback)
	require.NoError(t, err)
	assert.True(t, first.OK)
	assert.Equal(t, 1, db.Len())

	second, err := db.Execute(context.Background(), req, c.callback)
	require.NoError(t, err)
	assert.False(t, second.OK)
	assert.Equal(t, 1, db.Len())

	other := gql.Request{Query: req.Query, Args: map[string]any{"id": "2+a"}}
	third, err := db.Execute(context.Background(), other, c.callback)
	require.NoError(t, err)
	assert.True(t, third.OK)
	assert.Equal(t, 2, db.Len())

	assert.True(t, first.Off())
	assert.False(t, first.Off())
	assert.Equal(t, 1, db.Len())

	again, err := db.Execute(context.Background(), req, c.callback)
	require.NoError(t, err)
	assert.True(t, again.OK, "the finalized sub is gone")

	require.NoError(t, db.Close())
	assert.Equal(t, 0, db.Len())
	_, err = db.Execute(context.Background(), req, c.callback)
	assert.ErrorIs(t, err, swarm_errors.ErrClosed)
}

func TestExecute_Errors(t *testing.T) {
	db, loop, _ := newDB(t)
	_, err := db.Execute(context.Background(), gql.Request{
		Query: parse(t, `query a { x } query b { y }`),
	}, nil)
	assert.ErrorIs(t, err, swarm_errors.ErrMultipleOperations)

	bogus := &ast.QueryDocument{Operations: ast.OperationList{&ast.OperationDefinition{Operation: "bogus"}}}
	_, err = db.Execute(context.Background(), gql.Request{Query: bogus}, nil)
	assert.ErrorIs(t, err, swarm_errors.ErrUnknownOperation)
	assert.Equal(t, 0, db.Len())

	require.NoError(t, loop.Close())
	_, err = db.Execute(context.Background(), gql.Request{Query: parse(t, `{ x }`)}, nil)
	assert.ErrorIs(t, err, swarm_errors.ErrClosed)
	assert.Equal(t, 0, db.Len())
}

func TestExecute_QueryAndSubscription(t *testing.T) {
	db, loop, sched := newDB(t)
	var query, live collector
	doc := gql.Request{Query: parse(t, `query { user @node(id: "1+a") { name } }`)}
	res, err := db.Execute(context.Background(), doc, query.callback)
	require.NoError(t, err)
	assert.True(t, res.OK)
	res, err = db.Execute(context.Background(), gql.Request{
		Query: parse(t, `subscription { user @node(id: "1+a") { name } }`),
	}, live.callback)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 2, loop.Subscribers("1+a"))

	require.NoError(t, loop.Publish("1+a", map[string]any{"id": "1+a", "name": "Alice"}))
	sched.Flush()
	assert.Len(t, query.All(), 1)
	assert.Len(t, live.All(), 1)
	assert.Equal(t, 1, db.Len(), "the query is done")
	assert.Equal(t, 1, loop.Subscribers("1+a"))

	require.NoError(t, loop.Publish("1+a", map[string]any{"id": "1+a", "name": "Alicia"}))
	sched.Flush()
	assert.Len(t, query.All(), 1)
	got := live.All()
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"user": map[string]any{"name": "Alicia"}}, got[1].Data)
}

func TestExecute_Mutation(t *testing.T) {
	db, loop, _ := newDB(t)
	var c collector
	res, err := db.Execute(context.Background(), gql.Request{
		Query: parse(t, `mutation { set(id: "1+a", payload: {id: "1+a", name: "Alice"}) add(id: "1+l", value: ">1+a") }`),
	}, c.callback)
	require.NoError(t, err)
	assert.True(t, res.OK)
	got := c.All()
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"set": true, "add": true}, got[0].Data)

	state, ok := loop.State("1+a")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"1+a","name":"Alice"}`, string(state))
	state, _ = loop.State("1+l")
	assert.JSONEq(t, `[">1+a"]`, string(state))
}

type failingConnector struct {
	*transport.Loopback
}

func (failingConnector) Ensure(ctx context.Context) error {
	return errors.New("offline")
}

func TestExecute_Ensure(t *testing.T) {
	loop := transport.NewLoopback()
	db, err := New(failingConnector{loop}, loop, Options{})
	require.NoError(t, err)
	_, err = db.Execute(context.Background(), gql.Request{Query: parse(t, `{ x }`)}, nil)
	assert.ErrorContains(t, err, "offline")
	assert.Equal(t, 0, db.Len())
}

func TestNode(t *testing.T) {
	types := rdt.NewRegistry()
	types.Register("doc", func() rdt.Reducer { return &jsonDoc{} })
	sched := &testutils.ManualScheduler{}
	node, err := OpenNode(Config{Options: Options{Scheduler: sched}}, types)
	require.NoError(t, err)
	defer node.Close()

	friend, err := node.Create("doc", `{"name":"Bob"}`)
	require.NoError(t, err)
	user, err := node.Create("doc", `{"name":"Alice","friend":">`+friend.ID().String()+`"}`)
	require.NoError(t, err)

	var c collector
	res, err := node.Execute(context.Background(), gql.Request{
		Query: parse(t, `subscription { user @node(id: $id) { name friend { name } } }`),
		Args:  map[string]any{"id": user.ID()},
	}, c.callback)
	require.NoError(t, err)
	assert.True(t, res.OK)
	sched.Flush()
	got := c.All()
	require.Len(t, got, 1, "the frame moves to the friend before the one delivery")
	assert.Equal(t, map[string]any{
		"user": map[string]any{"name": "Alice", "friend": map[string]any{"name": "Bob"}},
	}, got[0].Data)

	view := rdt.NewSyncable(friend, nil)
	require.NoError(t, view.Offer("set", `{"name":"Robert"}`))
	sched.Flush()
	got = c.All()
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{
		"user": map[string]any{"name": "Alice", "friend": map[string]any{"name": "Robert"}},
	}, got[1].Data)

	loaded, err := node.Load(friend.ID())
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Robert"}`, loaded.ToOp().Value)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swarmdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
swarmdb:
  cache_size: 100
  debounce: 5ms
  log_level: debug
replica:
  scheme: "0253"
  origin: alice
`), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Options.CacheSize)
	assert.Equal(t, 5*time.Millisecond, cfg.Options.Debounce)
	assert.Equal(t, "debug", cfg.Options.LogLevel)
	assert.Equal(t, "0253", cfg.Replica.Scheme)
	assert.Equal(t, rdx.Base64x64("alice"), cfg.Replica.Origin)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
