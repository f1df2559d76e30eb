package rdt

import (
	"strconv"
	"sync"
	"testing"

	"github.com/drpcorg/swarmdb/rdx"
	"github.com/drpcorg/swarmdb/swarm_errors"
	"github.com/stretchr/testify/assert"
)

// counter is a toy type: "inc" adds the value, state is the sum
type counter struct {
	sum   int
	noops int
}

func (c *counter) Noop() { c.noops++ }

func (c *counter) Reset(state rdx.Op) {
	c.sum, _ = strconv.Atoi(state.Value)
}

func (c *counter) Update(op rdx.Op) {
	if op.Method == "inc" {
		n, _ := strconv.Atoi(op.Value)
		c.sum += n
	}
}

func (c *counter) State() string {
	return strconv.Itoa(c.sum)
}

func newCounter() Reducer {
	return &counter{}
}

type testHost struct {
	clock  rdx.LogicalClock
	offers []rdx.Op
	lock   sync.Mutex
}

func newTestHost() *testHost {
	return &testHost{clock: rdx.LogicalClock{Source: "test"}}
}

func (h *testHost) Time() rdx.UUID {
	return h.clock.Time()
}

func (h *testHost) Offer(op rdx.Op) {
	h.lock.Lock()
	h.offers = append(h.offers, op)
	h.lock.Unlock()
}

func (h *testHost) Offers() []rdx.Op {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]rdx.Op(nil), h.offers...)
}

var (
	objID = rdx.MustParseUUID("1+test")
	stamp = func(s string) rdx.UUID { return rdx.MustParseUUID(s + "+test") }
)

func TestRDT_ApplyTable(t *testing.T) {
	h := newTestHost()
	r := New(rdx.NewOp("counter", objID, stamp("1"), rdx.MethodState, "5"), h, newCounter)
	assert.Equal(t, "5", r.ToOp().Value)
	assert.Equal(t, stamp("1"), r.Version())

	var seen []string
	lstn := Listener(func(op rdx.Op) bool {
		seen = append(seen, op.Method)
		return true
	})
	r.On(&lstn)

	r.Apply(rdx.NewOp("counter", objID, stamp("2"), "inc", "3"))
	assert.Equal(t, "8", r.ToOp().Value)
	assert.Equal(t, stamp("2"), r.Version())

	r.Apply(rdx.NewOp("counter", objID, stamp("3"), rdx.MethodNoop, ""))
	assert.Equal(t, "8", r.ToOp().Value)
	assert.Equal(t, stamp("3"), r.Version())
	assert.Equal(t, 1, r.impl.(*counter).noops)

	r.Apply(rdx.NewOp("counter", objID, stamp("4"), rdx.MethodOff, ""))
	assert.Equal(t, stamp("3"), r.Version())
	r.Apply(rdx.NewOp("counter", objID, stamp("5"), rdx.MethodOn, ""))
	assert.Equal(t, stamp("3"), r.Version())
	assert.Empty(t, h.Offers())

	r.Apply(rdx.NewOp("counter", objID, stamp("6"), rdx.MethodState, "1"))
	assert.Equal(t, "1", r.ToOp().Value)

	assert.Equal(t, []string{"inc", "0", "off", "on", "~"}, seen)
}

func TestRDT_OnRequestKickback(t *testing.T) {
	h := newTestHost()
	r := New(rdx.NewOp("counter", objID, rdx.ZeroUUID, rdx.MethodOn, ""), h, newCounter)
	assert.True(t, r.Version().IsZero())
	assert.Empty(t, h.Offers(), "a stateless object has nothing to give")

	r.Apply(rdx.NewOp("counter", objID, stamp("2"), rdx.MethodState, "7"))
	r.Apply(rdx.NewOp("counter", objID, rdx.ZeroUUID, rdx.MethodOn, ""))
	offers := h.Offers()
	if assert.Len(t, offers, 1) {
		assert.True(t, offers[0].IsState())
		assert.Equal(t, "7", offers[0].Value)
		assert.Equal(t, stamp("2"), offers[0].Stamp)
	}
}

func TestRDT_OfferGoesToHost(t *testing.T) {
	h := newTestHost()
	r := New(rdx.NewOp("counter", objID, stamp("1"), rdx.MethodState, "0"), h, newCounter)
	op := rdx.NewOp("counter", objID, stamp("2"), "inc", "2")
	r.Offer(op)
	assert.Equal(t, "2", r.ToOp().Value)
	assert.Equal(t, []rdx.Op{op}, h.Offers())
}

func TestRDT_CloneAndOnOff(t *testing.T) {
	h := newTestHost()
	r := New(rdx.NewOp("counter", objID, stamp("1"), rdx.MethodState, "4"), h, newCounter)
	c := r.Clone()
	c.Apply(rdx.NewOp("counter", objID, stamp("2"), "inc", "1"))
	assert.Equal(t, "5", c.ToOp().Value)
	assert.Equal(t, "4", r.ToOp().Value)
	assert.Nil(t, c.Host())

	on := r.ToOnOff(true)
	assert.Equal(t, rdx.MethodOn, on.Method)
	assert.Equal(t, stamp("1"), on.Stamp)
	assert.Equal(t, rdx.MethodOff, r.ToOnOff(false).Method)
}

func TestStream_Enough(t *testing.T) {
	var s Stream
	calls := 0
	once := Listener(func(op rdx.Op) bool {
		calls++
		return false
	})
	s.On(&once)
	s.Emit(rdx.Op{})
	s.Emit(rdx.Op{})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Listeners())
	assert.False(t, s.Off(&once))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("counter", newCounter)
	h := newTestHost()

	_, err := reg.New(rdx.NewOp("nope", objID, stamp("1"), rdx.MethodState, ""), h)
	assert.ErrorIs(t, err, swarm_errors.ErrTypeUnknown)

	r, err := reg.Replay([]rdx.Op{
		rdx.NewOp("counter", objID, stamp("1"), rdx.MethodState, "1"),
		rdx.NewOp("counter", objID, stamp("2"), "inc", "2"),
		rdx.NewOp("counter", objID, stamp("3"), "inc", "3"),
	}, h)
	assert.NoError(t, err)
	assert.Equal(t, "6", r.ToOp().Value)
	assert.Equal(t, stamp("3"), r.Version())

	_, err = reg.Replay(nil, h)
	assert.ErrorIs(t, err, swarm_errors.ErrObjectUnknown)
}
