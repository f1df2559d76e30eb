package protocol

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/drpcorg/swarmdb/rdx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpRecord(t *testing.T) {
	op := rdx.NewOp("lww", rdx.MustParseUUID("1Cq2+alice"), rdx.MustParseUUID("1Cq3+bob"),
		"set", `{"name":"Alice"}`)
	rec := OpRecord(op)
	assert.Equal(t, byte(OpLit), Lit(rec))

	parsed, rest, err := TakeOp(rec)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, op, parsed)

	_, _, err = TakeOp(rec[:len(rec)-1])
	assert.ErrorIs(t, err, ErrIncomplete)
	_, _, err = TakeOp(Record('P', []byte("junk")))
	assert.ErrorIs(t, err, ErrBadRecord)
}

func TestParseOps(t *testing.T) {
	a := rdx.NewOp("lww", rdx.MustParseUUID("1+a"), rdx.MustParseUUID("1+a"), rdx.MethodState, "{}")
	b := rdx.NewOp("lww", rdx.MustParseUUID("1+a"), rdx.MustParseUUID("2+a"), rdx.MethodNoop, "")
	var buf []byte
	buf = AppendOp(buf, a)
	buf = AppendOp(buf, b)

	recs, err := Split(bytes.NewBuffer(buf))
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, int64(len(buf)), recs.TotalLen())

	ops, err := ParseOps(Records{buf})
	require.NoError(t, err)
	assert.Equal(t, []rdx.Op{a, b}, ops)
}

type sliceFeeder struct {
	batches []Records
}

func (f *sliceFeeder) Feed(ctx context.Context) (Records, error) {
	if len(f.batches) == 0 {
		return nil, io.EOF
	}
	recs := f.batches[0]
	f.batches = f.batches[1:]
	return recs, nil
}

type sliceDrainer struct {
	got Records
}

func (d *sliceDrainer) Drain(ctx context.Context, recs Records) error {
	d.got = append(d.got, recs...)
	return nil
}

func TestPump(t *testing.T) {
	feeder := &sliceFeeder{batches: []Records{{[]byte("1a")}, {[]byte("1b"), []byte("1c")}}}
	drainer := &sliceDrainer{}
	err := Pump(context.Background(), feeder, drainer)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, Records{[]byte("1a"), []byte("1b"), []byte("1c")}, drainer.got)
}
