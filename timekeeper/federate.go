package timekeeper

import (
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/types"
)

// advanceRequest is an outstanding RequestAdvance.
type advanceRequest struct {
	requested logicaltime.Time
	// target is the time the grant will carry. It equals requested except for
	// next-message modes, where an earlier held message lowers it.
	target logicaltime.Time
	mode   AdvanceMode
}

// federateClock is the per-federate time state kept for every joined federate.
type federateClock struct {
	handle types.FederateHandle
	time   logicaltime.Time

	pending *advanceRequest

	// enablingConstrained is set while EnableTimeConstrained waits for GALT
	// to reach the federate's time.
	enablingConstrained bool

	held heldQueue
}

func (f *federateClock) advancing() bool { return f.pending != nil }

// base is the time the federate is committed to reaching: its pending target
// while advancing, its current time otherwise.
func (f *federateClock) base() logicaltime.Time {
	if f.pending != nil {
		return f.pending.target
	}
	return f.time
}

// regulatingFederate is a federate whose timestamped messages bound GALT.
type regulatingFederate struct {
	clock     *federateClock
	lookahead logicaltime.Interval
	lits      logicaltime.Time
}

// refresh recomputes LITS from the federate's base time. Overflow saturates
// at the final time.
func (r *regulatingFederate) refresh(final logicaltime.Time) {
	r.lits = logicaltime.AddOrFinal(r.clock.base(), r.lookahead, final)
}

// constrainedFederate is a federate that may not advance past GALT.
type constrainedFederate struct {
	clock *federateClock
}
