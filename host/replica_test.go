package host_test

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/drpcorg/swarmdb/host"
	"github.com/drpcorg/swarmdb/protocol"
	"github.com/drpcorg/swarmdb/rdt"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ sum int }

func (c *counter) Noop()              {}
func (c *counter) Reset(state rdx.Op) { c.sum, _ = strconv.Atoi(state.Value) }
func (c *counter) State() string      { return strconv.Itoa(c.sum) }

func (c *counter) Update(op rdx.Op) {
	n, _ := strconv.Atoi(op.Value)
	c.sum += n
}

func types() *rdt.Registry {
	reg := rdt.NewRegistry()
	reg.Register("counter", func() rdt.Reducer { return &counter{} })
	return reg
}

type publisher struct {
	lock sync.Mutex
	last map[string]any
}

func (p *publisher) Publish(id string, payload any) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.last == nil {
		p.last = make(map[string]any)
	}
	p.last[id] = payload
	return nil
}

func (p *publisher) Get(id string) any {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.last[id]
}

func open(t *testing.T, opts host.Options) *host.Replica {
	r, err := host.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestReplica_OfferAndReplay(t *testing.T) {
	pub := &publisher{}
	r := open(t, host.Options{Origin: "alice", Publisher: pub})
	reg := types()

	id := r.Time()
	obj, err := reg.New(rdx.NewOp("counter", id, id, rdx.MethodState, "1"), r)
	require.NoError(t, err)
	r.Attach(obj)
	r.Offer(obj.ToOp())

	view := rdt.NewSyncable(obj, nil)
	require.NoError(t, view.Offer("inc", "2"))
	require.NoError(t, view.Offer("inc", "3"))
	assert.Equal(t, "6", pub.Get(id.String()))
	assert.Equal(t, rdx.Base64x64("alice"), view.Author())

	ops, err := r.Log(id)
	require.NoError(t, err)
	assert.Len(t, ops, 3)
	assert.True(t, ops[0].IsState())

	replayed, err := reg.Load(r, nil, id)
	require.NoError(t, err)
	assert.Equal(t, obj.ToOp(), replayed.ToOp())

	_, err = r.Log(rdx.MustParseUUID("1+nobody"))
	assert.ErrorIs(t, err, swarm_errors.ErrObjectUnknown)
}

func TestReplica_Sync(t *testing.T) {
	ctx := context.Background()
	alice := open(t, host.Options{Origin: "alice"})
	bob := open(t, host.Options{Origin: "bob"})
	reg := types()

	id := alice.Time()
	obj, err := reg.New(rdx.NewOp("counter", id, id, rdx.MethodState, "5"), alice)
	require.NoError(t, err)
	alice.Offer(obj.ToOp())
	require.NoError(t, rdt.NewSyncable(obj, nil).Offer("inc", "1"))

	copied, err := reg.New(rdx.NewOp("counter", id, rdx.ZeroUUID, rdx.MethodOn, ""), bob)
	require.NoError(t, err)
	bob.Attach(copied)
	err = protocol.Relay(ctx, alice.Feeder(id), bob)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "6", copied.ToOp().Value)

	stamp := bob.Time()
	assert.Equal(t, 1, stamp.Compare(obj.Version()), "bob's clock has seen alice's ops")
}

func TestReplica_Sessions(t *testing.T) {
	r := open(t, host.Options{Origin: "abc", Scheme: "0261"})
	first, err := r.NextSession()
	require.NoError(t, err)
	assert.Equal(t, rdx.Base64x64("abc000001"), first)
	second, err := r.NextSession()
	require.NoError(t, err)
	assert.Equal(t, rdx.Base64x64("abc000002"), second)

	for i := 2; i < 63; i++ {
		_, err = r.NextSession()
		require.NoError(t, err)
	}
	_, err = r.NextSession()
	assert.ErrorIs(t, err, swarm_errors.ErrSessionsExhausted)
}

func TestReplica_Options(t *testing.T) {
	_, err := host.Open(host.Options{Scheme: "55555"})
	assert.ErrorIs(t, err, rdx.ErrInvalidFormula)
	_, err = host.Open(host.Options{Scheme: "5555"})
	assert.ErrorIs(t, err, rdx.ErrInvalidFormula)

	r := open(t, host.Options{})
	assert.False(t, r.Origin().IsZero())
	assert.Equal(t, host.DefaultScheme, r.Scheme().String())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(r.Collector()))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), swarm_errors.ErrReplicaClosed)
	_, err = r.NextSession()
	assert.ErrorIs(t, err, swarm_errors.ErrReplicaClosed)
}
