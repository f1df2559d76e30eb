package rdx

import (
	"errors"
	"strings"
)

/*
Base64x64 is a 60-bit fixed-point numeral written in up to ten chars
of an ordered base-64 alphabet. Digits are read left to right, so
"1" is the same number as "1000000000"; the canonical form drops the
trailing zeros. As the alphabet follows ASCII order, comparing two
canonical forms as strings compares the numbers.

	0.........9A........................Z_a........................z~
	|   10    |          26              |1|          26            |1|
*/
type Base64x64 string

const Base64Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz~"

// Base64x64Len is the max length of a numeral, in chars
const Base64x64Len = 10

const (
	// Zero is "no value"; a stateless object has version Zero
	Zero Base64x64 = "0"
	// Never is the tombstone; no further writes are possible
	Never Base64x64 = "~"
)

var ErrBadBase64 = errors.New("rdx: bad base64x64 numeral")

var base64Codes [128]int8

func init() {
	for i := range base64Codes {
		base64Codes[i] = -1
	}
	for i := 0; i < len(Base64Digits); i++ {
		base64Codes[Base64Digits[i]] = int8(i)
	}
}

// Base64Code returns the digit value of a char, -1 if not a digit
func Base64Code(c byte) int {
	if c >= 128 {
		return -1
	}
	return int(base64Codes[c])
}

func canonical(digits []byte) Base64x64 {
	n := len(digits)
	for n > 0 && digits[n-1] == '0' {
		n--
	}
	if n == 0 {
		return Zero
	}
	return Base64x64(digits[:n])
}

func ParseBase64x64(str string) (Base64x64, error) {
	if len(str) > Base64x64Len {
		return Zero, ErrBadBase64
	}
	for i := 0; i < len(str); i++ {
		if Base64Code(str[i]) < 0 {
			return Zero, ErrBadBase64
		}
	}
	return canonical([]byte(str)), nil
}

func (b Base64x64) IsZero() bool {
	return b == "" || b == Zero
}

func (b Base64x64) IsNever() bool {
	return b == Never
}

func (b Base64x64) String() string {
	if b == "" {
		return string(Zero)
	}
	return string(b)
}

func (b Base64x64) digits() (ret [Base64x64Len]byte) {
	for i := range ret {
		ret[i] = '0'
	}
	copy(ret[:], b)
	return
}

// Round keeps the first `precision` digits, zeroes the rest
func (b Base64x64) Round(precision int) Base64x64 {
	if precision >= len(b) {
		return canonical([]byte(b))
	}
	if precision <= 0 {
		return Zero
	}
	return canonical([]byte(b[:precision]))
}

// Next increments the numeral at digit `till-1`, dropping all the
// digits past `till`. Returns false if the carry runs past the
// first digit.
func (b Base64x64) Next(till int) (next Base64x64, ok bool) {
	if till > Base64x64Len {
		till = Base64x64Len
	}
	digits := b.digits()
	for i := till - 1; i >= 0; i-- {
		code := Base64Code(digits[i])
		if code == 63 {
			digits[i] = '0'
			continue
		}
		digits[i] = Base64Digits[code+1]
		return canonical(digits[:till]), true
	}
	return Zero, false
}

func (b Base64x64) Compare(other Base64x64) int {
	return strings.Compare(b.String(), other.String())
}

// Uint64 returns the 60 bits of the numeral
func (b Base64x64) Uint64() (u uint64) {
	digits := b.digits()
	for _, c := range digits {
		u = (u << 6) | uint64(Base64Code(c)&63)
	}
	return
}

func Base64x64FromUint64(u uint64) Base64x64 {
	var digits [Base64x64Len]byte
	for i := Base64x64Len - 1; i >= 0; i-- {
		digits[i] = Base64Digits[u&63]
		u >>= 6
	}
	return canonical(digits[:])
}
