// Package logicaltime defines the logical time values a federation execution
// advances through. The concrete representation (64-bit integer or 64-bit
// float) is chosen once, when the federation is created, through a Factory.
package logicaltime

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTimeArithmetic is returned when adding or subtracting an interval
	// would overflow, produce NaN, or produce a negative time.
	ErrIllegalTimeArithmetic = errors.New("logicaltime: illegal time arithmetic")

	// ErrInvalidTime is returned when a textual time or interval cannot be parsed.
	ErrInvalidTime = errors.New("logicaltime: invalid time value")

	// ErrUnknownDomain is returned by NewFactory for an unsupported domain name.
	ErrUnknownDomain = errors.New("logicaltime: unknown time domain")
)

// Time is a point on a federation's logical time axis.
//
// Values from different domains must never be compared or combined; doing so
// is a programming error and panics.
type Time interface {
	// Compare returns -1, 0 or +1 as the receiver is before, equal to or after other.
	Compare(other Time) int

	// Add returns the receiver advanced by d.
	Add(d Interval) (Time, error)

	// Sub returns the receiver moved back by d.
	Sub(d Interval) (Time, error)

	IsInitial() bool
	IsFinal() bool

	String() string
}

// Interval is a non-negative distance on the logical time axis.
type Interval interface {
	// Compare returns -1, 0 or +1 as the receiver is shorter than, equal to or longer than other.
	Compare(other Interval) int

	IsZero() bool

	String() string
}

// Factory creates and parses the values of a single time domain.
type Factory interface {
	// Domain returns the registered name of the domain ("integer64", "float64").
	Domain() string

	Initial() Time
	Final() Time
	Zero() Interval

	// Epsilon is the smallest positive interval of the domain.
	Epsilon() Interval

	ParseTime(s string) (Time, error)
	ParseInterval(s string) (Interval, error)
}

const (
	// DomainInteger64 selects Integer64Time / Integer64Interval.
	DomainInteger64 = "integer64"

	// DomainFloat64 selects Float64Time / Float64Interval.
	DomainFloat64 = "float64"
)

// NewFactory returns the factory registered for domain.
func NewFactory(domain string) (Factory, error) {
	switch domain {
	case DomainInteger64, "":
		return Integer64Factory{}, nil
	case DomainFloat64:
		return Float64Factory{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
}

// Min returns the earlier of a and b, preferring a on ties.
func Min(a, b Time) Time {
	if a.Compare(b) <= 0 {
		return a
	}
	return b
}

// Max returns the later of a and b, preferring a on ties.
func Max(a, b Time) Time {
	if a.Compare(b) >= 0 {
		return a
	}
	return b
}

// Before reports whether a is strictly before b.
func Before(a, b Time) bool { return a.Compare(b) < 0 }

// AtOrBefore reports whether a is before or equal to b.
func AtOrBefore(a, b Time) bool { return a.Compare(b) <= 0 }

// IsPositive reports whether d is strictly longer than the zero interval.
func IsPositive(d Interval) bool { return d != nil && !d.IsZero() }

// AddOrFinal adds d to t, saturating at final instead of failing when the
// result would overflow.
func AddOrFinal(t Time, d Interval, final Time) Time {
	if t.IsFinal() {
		return final
	}
	r, err := t.Add(d)
	if err != nil {
		return final
	}
	return r
}

func mismatch(a, b any) string {
	return fmt.Sprintf("logicaltime: mixed time domains %T and %T", a, b)
}
