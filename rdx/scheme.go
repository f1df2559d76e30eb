package rdx

import (
	"errors"
	"regexp"
	"strconv"
)

// Replica id parts, from the root of the replica tree down
const (
	Primus = iota
	Peer
	Client
	Session
)

var ErrInvalidFormula = errors.New("rdx: invalid replica id scheme formula")

var formulaRE = regexp.MustCompile(`^(\d)(\d)(\d)(\d)$`)

// ReplicaIdScheme tells how a replica id (an origin, up to ten
// Base64x64 digits) is split into primus, peer, client and session
// parts. The formula "0262" reads as: no primus, 2 digits of peer
// id, 6 digits of client id, 2 digits of session id. Every replica
// allocates ids within its own part, so ids never collide.
type ReplicaIdScheme struct {
	formula string
	parts   [4]int
}

// ParseReplicaIdScheme accepts a 4-digit formula; 3-digit ones get
// a zero primus part
func ParseReplicaIdScheme(formula string) (scheme ReplicaIdScheme, err error) {
	if len(formula) == 3 {
		formula = "0" + formula
	}
	m := formulaRE.FindStringSubmatch(formula)
	if m == nil {
		return scheme, ErrInvalidFormula
	}
	scheme.formula = formula
	for i := range scheme.parts {
		scheme.parts[i] = int(m[i+1][0] - '0')
	}
	return
}

// NewReplicaIdScheme takes the numeric form, e.g. 262 for "0262"
func NewReplicaIdScheme(formula int) (ReplicaIdScheme, error) {
	if formula < 0 {
		return ReplicaIdScheme{}, ErrInvalidFormula
	}
	return ParseReplicaIdScheme(strconv.Itoa(formula))
}

func (s ReplicaIdScheme) Primuses() int { return s.parts[Primus] }
func (s ReplicaIdScheme) Peers() int    { return s.parts[Peer] }
func (s ReplicaIdScheme) Clients() int  { return s.parts[Client] }
func (s ReplicaIdScheme) Sessions() int { return s.parts[Session] }

// PartLength is the width of the part, in digits
func (s ReplicaIdScheme) PartLength(part int) int {
	if part < Primus || part > Session {
		return 0
	}
	return s.parts[part]
}

func (s ReplicaIdScheme) IsPrimusless() bool {
	return s.parts[Primus] == 0
}

func (s ReplicaIdScheme) IsCorrect() bool {
	return s.parts[0]+s.parts[1]+s.parts[2]+s.parts[3] <= Base64x64Len
}

func (s ReplicaIdScheme) String() string {
	return s.formula
}

// window returns the digit range [from, till) of the part
func (s ReplicaIdScheme) window(part int) (from, till int) {
	for i := 0; i < part; i++ {
		from += s.parts[i]
	}
	return from, from + s.PartLength(part)
}

// NextPartValue increments the part of id, e.g. the session number.
// Digits outside of the part are zeroed. Returns Zero if the part is
// exhausted (the increment overflows) or has no digits at all.
func (s ReplicaIdScheme) NextPartValue(id Base64x64, part int) Base64x64 {
	from, till := s.window(part)
	if till == from || till > Base64x64Len {
		return Zero
	}
	digits := id.digits()
	for i := 0; i < from; i++ {
		digits[i] = '0'
	}
	next, ok := canonical(digits[:till]).Next(till)
	if !ok || !next.Round(from).IsZero() {
		return Zero
	}
	return next
}

// Compose replaces the part of id with the same part of value, e.g.
// puts a freshly allocated session number into a replica origin
func (s ReplicaIdScheme) Compose(id, value Base64x64, part int) Base64x64 {
	from, till := s.window(part)
	if till > Base64x64Len {
		return id
	}
	digits, vals := id.digits(), value.digits()
	copy(digits[from:till], vals[from:till])
	return canonical(digits[:])
}
