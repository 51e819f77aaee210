package logicaltime

import (
	"fmt"
	"math"
	"strconv"
)

// Integer64Time is a logical time backed by a non-negative int64.
// math.MaxInt64 is the final time.
type Integer64Time int64

// Integer64Interval is a logical time interval backed by a non-negative int64.
type Integer64Interval int64

func (t Integer64Time) Compare(other Time) int {
	o, ok := other.(Integer64Time)
	if !ok {
		panic(mismatch(t, other))
	}
	switch {
	case t < o:
		return -1
	case t > o:
		return 1
	default:
		return 0
	}
}

func (t Integer64Time) Add(d Interval) (Time, error) {
	di, ok := d.(Integer64Interval)
	if !ok {
		panic(mismatch(t, d))
	}
	if di < 0 {
		return nil, fmt.Errorf("%w: negative interval %d", ErrIllegalTimeArithmetic, di)
	}
	if int64(t) > math.MaxInt64-int64(di) {
		return nil, fmt.Errorf("%w: %d + %d overflows", ErrIllegalTimeArithmetic, t, di)
	}
	return t + Integer64Time(di), nil
}

func (t Integer64Time) Sub(d Interval) (Time, error) {
	di, ok := d.(Integer64Interval)
	if !ok {
		panic(mismatch(t, d))
	}
	if di < 0 {
		return nil, fmt.Errorf("%w: negative interval %d", ErrIllegalTimeArithmetic, di)
	}
	if int64(t) < int64(di) {
		return nil, fmt.Errorf("%w: %d - %d is negative", ErrIllegalTimeArithmetic, t, di)
	}
	return t - Integer64Time(di), nil
}

func (t Integer64Time) IsInitial() bool { return t == 0 }
func (t Integer64Time) IsFinal() bool   { return t == math.MaxInt64 }
func (t Integer64Time) String() string  { return strconv.FormatInt(int64(t), 10) }

func (d Integer64Interval) Compare(other Interval) int {
	o, ok := other.(Integer64Interval)
	if !ok {
		panic(mismatch(d, other))
	}
	switch {
	case d < o:
		return -1
	case d > o:
		return 1
	default:
		return 0
	}
}

func (d Integer64Interval) IsZero() bool   { return d == 0 }
func (d Integer64Interval) String() string { return strconv.FormatInt(int64(d), 10) }

// Integer64Factory builds Integer64Time values.
type Integer64Factory struct{}

func (Integer64Factory) Domain() string    { return DomainInteger64 }
func (Integer64Factory) Initial() Time     { return Integer64Time(0) }
func (Integer64Factory) Final() Time       { return Integer64Time(math.MaxInt64) }
func (Integer64Factory) Zero() Interval    { return Integer64Interval(0) }
func (Integer64Factory) Epsilon() Interval { return Integer64Interval(1) }

func (Integer64Factory) ParseTime(s string) (Time, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Integer64Time(v), nil
}

func (Integer64Factory) ParseInterval(s string) (Interval, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Integer64Interval(v), nil
}

// MarshalText renders the time in decimal so it survives JSON and structpb round trips.
func (t Integer64Time) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// MarshalText renders the interval in decimal.
func (d Integer64Interval) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
