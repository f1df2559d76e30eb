package protocol

import (
	"github.com/drpcorg/swarmdb/rdx"
)

// Op records: an 'P' envelope holding 'T'ype, 'O'bject, 'S'tamp,
// 'M'ethod and 'V'alue. Short fields go in the tiny form.
const (
	OpLit     = 'P'
	typeLit   = 't'
	objectLit = 'o'
	stampLit  = 's'
	methodLit = 'm'
	valueLit  = 'v'
)

// AppendOp appends the op record to the buffer
func AppendOp(into []byte, op rdx.Op) []byte {
	return Append(into, OpLit,
		Record(typeLit, []byte(op.Type)),
		Record(objectLit, []byte(op.Object.String())),
		Record(stampLit, []byte(op.Stamp.String())),
		Record(methodLit, []byte(op.Method)),
		Record(valueLit, []byte(op.Value)),
	)
}

func OpRecord(op rdx.Op) []byte {
	return AppendOp(nil, op)
}

// TakeOp parses an op record off the data
func TakeOp(data []byte) (op rdx.Op, rest []byte, err error) {
	body, rest, err := TakeWary(OpLit, data)
	if err != nil {
		return op, rest, err
	}
	var fields [5][]byte
	for i, lit := range []byte{typeLit, objectLit, stampLit, methodLit, valueLit} {
		fields[i], body, err = TakeWary(lit&^CaseBit, body)
		if err != nil {
			return op, rest, ErrBadRecord
		}
	}
	if len(body) != 0 {
		return op, rest, ErrBadRecord
	}
	op.Type = string(fields[0])
	op.Method = string(fields[3])
	op.Value = string(fields[4])
	if op.Object, err = rdx.ParseUUID(string(fields[1])); err != nil {
		return op, rest, err
	}
	if op.Stamp, err = rdx.ParseUUID(string(fields[2])); err != nil {
		return op, rest, err
	}
	return op, rest, nil
}

// ParseOps parses a batch of op records
func ParseOps(recs Records) (ops []rdx.Op, err error) {
	for _, rec := range recs {
		for len(rec) > 0 {
			var op rdx.Op
			if op, rec, err = TakeOp(rec); err != nil {
				return ops, err
			}
			ops = append(ops, op)
		}
	}
	return ops, nil
}
