package rdx

import (
	"errors"
	"time"
)

// Calendar-friendly timestamps: MMDHmSssnn, i.e. months since
// 2010-01 (two digits), day of month, hour, minute, second,
// milliseconds (two digits) and a two-digit sequence number.
// Every digit but the sequence maps to a calendar component,
// so the numerals sort in time order and read in hex dumps.

var Epoch = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

var ErrBadDate = errors.New("rdx: not a calendar timestamp")

func CalendarFromTime(t time.Time) Base64x64 {
	t = t.UTC()
	months := (t.Year()-Epoch.Year())*12 + int(t.Month()) - 1
	if months < 0 {
		return Zero
	}
	if months >= 64*64 {
		return Never
	}
	ms := t.Nanosecond() / int(time.Millisecond)
	ints := [8]int{
		months >> 6, months & 63,
		t.Day() - 1,
		t.Hour(),
		t.Minute(),
		t.Second(),
		ms >> 6, ms & 63,
	}
	var digits [Base64x64Len]byte
	for i := range digits {
		digits[i] = '0'
	}
	for i, v := range ints {
		digits[i] = Base64Digits[v]
	}
	return canonical(digits[:])
}

// CalendarTime decodes a calendar numeral back to UTC time;
// the sequence digits are ignored
func CalendarTime(b Base64x64) (t time.Time, err error) {
	if b.IsNever() {
		return t, ErrBadDate
	}
	digits := b.digits()
	var ints [8]int
	for i := range ints {
		ints[i] = Base64Code(digits[i])
		if ints[i] < 0 {
			return t, ErrBadDate
		}
	}
	months := ints[0]<<6 | ints[1]
	day, hour, minute, sec := ints[2]+1, ints[3], ints[4], ints[5]
	ms := ints[6]<<6 | ints[7]
	if day > 31 || hour > 23 || minute > 59 || sec > 59 || ms > 999 {
		return t, ErrBadDate
	}
	t = time.Date(
		Epoch.Year()+months/12, time.Month(months%12+1), day,
		hour, minute, sec, ms*int(time.Millisecond), time.UTC)
	if t.Day() != day {
		return time.Time{}, ErrBadDate
	}
	return t, nil
}
