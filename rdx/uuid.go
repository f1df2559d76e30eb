package rdx

import (
	"errors"
	"strings"
)

/*
UUID is a 128-bit identifier: a Base64x64 value and a Base64x64
origin joined by a separator char:

	1Cq2Lbl+gritzko    an event stamp: time + replica id
	lww                a name (zero origin, separator omitted)
	0                  zero, "no value"
	~                  never, the tombstone

The separator tells the kind: '+' event, '-' derived event,
'$' name, '%' hash. Zero-origin UUIDs are printed without the
separator, hence parse back identically.
*/
type UUID struct {
	Value  Base64x64
	Origin Base64x64
	Sep    byte
}

const UUIDSeparators = "+-$%"

var (
	ZeroUUID  = UUID{Value: Zero, Origin: Zero}
	NeverUUID = UUID{Value: Never, Origin: Zero}
)

var ErrBadUUID = errors.New("rdx: bad UUID")

// NewStamp makes an event timestamp
func NewStamp(value, origin Base64x64) UUID {
	return normal(UUID{Value: value, Origin: origin, Sep: '+'})
}

// NewName makes a transcendent name (zero origin)
func NewName(value Base64x64) UUID {
	return normal(UUID{Value: value})
}

func normal(u UUID) UUID {
	u.Value = canonical([]byte(u.Value))
	u.Origin = canonical([]byte(u.Origin))
	if u.Origin.IsZero() {
		u.Sep = 0
	} else if u.Sep == 0 {
		u.Sep = '$'
	}
	return u
}

func ParseUUID(str string) (u UUID, err error) {
	if len(str) == 0 {
		return ZeroUUID, ErrBadUUID
	}
	val, org := str, ""
	if i := strings.IndexAny(str, UUIDSeparators); i >= 0 {
		u.Sep = str[i]
		val, org = str[:i], str[i+1:]
		if len(val) == 0 || len(org) == 0 {
			return ZeroUUID, ErrBadUUID
		}
	}
	u.Value, err = ParseBase64x64(val)
	if err == nil {
		u.Origin, err = ParseBase64x64(org)
	}
	if err != nil {
		return ZeroUUID, ErrBadUUID
	}
	return normal(u), nil
}

// MustParseUUID is for literals in code and tests
func MustParseUUID(str string) UUID {
	u, err := ParseUUID(str)
	if err != nil {
		panic(err)
	}
	return u
}

func (u UUID) IsZero() bool {
	return u.Value.IsZero() && u.Origin.IsZero()
}

func (u UUID) IsNever() bool {
	return u.Value.IsNever() && u.Origin.IsZero()
}

func (u UUID) String() string {
	if u.Origin.IsZero() {
		return u.Value.String()
	}
	sep := u.Sep
	if sep == 0 {
		sep = '$'
	}
	return u.Value.String() + string(sep) + u.Origin.String()
}

func (u UUID) Compare(other UUID) int {
	return strings.Compare(u.String(), other.String())
}

func (u UUID) Less(other UUID) bool {
	return u.Compare(other) < 0
}
