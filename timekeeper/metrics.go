package timekeeper

import "github.com/jathurchan/rtiexec/logicaltime"

// Metrics records time-management activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// IncrAdvanceRequest counts RequestAdvance calls by mode and outcome.
	IncrAdvanceRequest(mode AdvanceMode, success bool)

	// IncrGrant counts TimeAdvanceGrants issued.
	IncrGrant(mode AdvanceMode)

	// ObserveGALT records every GALT change.
	ObserveGALT(galt logicaltime.Time)

	// SetRegulating and SetConstrained track the size of each role set.
	SetRegulating(n int)
	SetConstrained(n int)

	// IncrHeldMessages counts messages held for constrained recipients, and
	// IncrReleasedMessages those released from the hold.
	IncrHeldMessages(n int)
	IncrReleasedMessages(n int)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrAdvanceRequest(AdvanceMode, bool) {}
func (NoOpMetrics) IncrGrant(AdvanceMode)                {}
func (NoOpMetrics) ObserveGALT(logicaltime.Time)         {}
func (NoOpMetrics) SetRegulating(int)                    {}
func (NoOpMetrics) SetConstrained(int)                   {}
func (NoOpMetrics) IncrHeldMessages(int)                 {}
func (NoOpMetrics) IncrReleasedMessages(int)             {}
