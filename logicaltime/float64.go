package logicaltime

import (
	"fmt"
	"math"
	"strconv"
)

// Float64Time is a logical time backed by a non-negative float64.
// +Inf is the final time; NaN is never a valid value.
type Float64Time float64

// Float64Interval is a logical time interval backed by a non-negative float64.
type Float64Interval float64

// Compare is a true three-way comparison. Differences are never cast to an
// integer, so very distant times still order correctly.
func (t Float64Time) Compare(other Time) int {
	o, ok := other.(Float64Time)
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

func (t Float64Time) Add(d Interval) (Time, error) {
	df, ok := d.(Float64Interval)
	if !ok {
		panic(mismatch(t, d))
	}
	return checkFloat(float64(t) + float64(df))
}

func (t Float64Time) Sub(d Interval) (Time, error) {
	df, ok := d.(Float64Interval)
	if !ok {
		panic(mismatch(t, d))
	}
	return checkFloat(float64(t) - float64(df))
}

func checkFloat(r float64) (Time, error) {
	switch {
	case math.IsNaN(r):
		return nil, fmt.Errorf("%w: result is NaN", ErrIllegalTimeArithmetic)
	case math.IsInf(r, 0):
		return nil, fmt.Errorf("%w: result overflows", ErrIllegalTimeArithmetic)
	case r < 0:
		return nil, fmt.Errorf("%w: result %g is negative", ErrIllegalTimeArithmetic, r)
	}
	return Float64Time(r), nil
}

func (t Float64Time) IsInitial() bool { return t == 0 }
func (t Float64Time) IsFinal() bool   { return math.IsInf(float64(t), 1) }
func (t Float64Time) String() string  { return strconv.FormatFloat(float64(t), 'g', -1, 64) }

func (d Float64Interval) Compare(other Interval) int {
	o, ok := other.(Float64Interval)
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

func (d Float64Interval) IsZero() bool   { return d == 0 }
func (d Float64Interval) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }

// Float64Factory builds Float64Time values.
type Float64Factory struct{}

func (Float64Factory) Domain() string    { return DomainFloat64 }
func (Float64Factory) Initial() Time     { return Float64Time(0) }
func (Float64Factory) Final() Time       { return Float64Time(math.Inf(1)) }
func (Float64Factory) Zero() Interval    { return Float64Interval(0) }
func (Float64Factory) Epsilon() Interval { return Float64Interval(math.SmallestNonzeroFloat64) }

func (Float64Factory) ParseTime(s string) (Time, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || math.IsInf(v, -1) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Float64Time(v), nil
}

func (Float64Factory) ParseInterval(s string) (Interval, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Float64Interval(v), nil
}

// MarshalText renders the time with strconv 'g' formatting; the final time becomes "+Inf".
func (t Float64Time) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// MarshalText renders the interval with strconv 'g' formatting.
func (d Float64Interval) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
