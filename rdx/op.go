package rdx

import "fmt"

// Reserved op names. Anything else is a type-specific mutation.
const (
	MethodNoop  = "0"
	MethodState = "~"
	MethodOn    = "on"
	MethodOff   = "off"
)

// Op is an immutable unit of change. Stamps order the ops of an
// object; an object's id is normally the stamp of its first op.
type Op struct {
	Type   string
	Object UUID
	Stamp  UUID
	Method string
	Value  string
}

func NewOp(typ string, object, stamp UUID, method, value string) Op {
	return Op{
		Type:   typ,
		Object: object,
		Stamp:  stamp,
		Method: method,
		Value:  value,
	}
}

func (op Op) IsOn() bool {
	return op.Method == MethodOn
}

func (op Op) IsOff() bool {
	return op.Method == MethodOff
}

func (op Op) IsOnOff() bool {
	return op.IsOn() || op.IsOff()
}

func (op Op) IsState() bool {
	return op.Method == MethodState
}

func (op Op) IsNoop() bool {
	return op.Method == MethodNoop
}

// String renders the op spec, e.g. `/lww#1Cq2Lbl+a!1Cq2Lbm+a.set	{...}`
func (op Op) String() string {
	return fmt.Sprintf("/%s#%s!%s.%s\t%s", op.Type, op.Object, op.Stamp, op.Method, op.Value)
}
