package federation

import (
	"fmt"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

func (e *Execution) EnableTimeRegulation(h types.FederateHandle, lookahead logicaltime.Interval) error {
	return e.do("EnableTimeRegulation", h, func() error {
		return e.time.EnableTimeRegulation(h, lookahead)
	})
}

func (e *Execution) DisableTimeRegulation(h types.FederateHandle) error {
	return e.do("DisableTimeRegulation", h, func() error {
		return e.time.DisableTimeRegulation(h)
	})
}

func (e *Execution) EnableTimeConstrained(h types.FederateHandle) error {
	return e.do("EnableTimeConstrained", h, func() error {
		return e.time.EnableTimeConstrained(h)
	})
}

func (e *Execution) DisableTimeConstrained(h types.FederateHandle) error {
	return e.do("DisableTimeConstrained", h, func() error {
		return e.time.DisableTimeConstrained(h)
	})
}

func (e *Execution) ModifyLookahead(h types.FederateHandle, lookahead logicaltime.Interval) error {
	return e.do("ModifyLookahead", h, func() error {
		return e.time.ModifyLookahead(h, lookahead)
	})
}

// RequestAdvance asks for a TimeAdvanceGrant to t using mode.
func (e *Execution) RequestAdvance(h types.FederateHandle, t logicaltime.Time, mode timekeeper.AdvanceMode) error {
	return e.do("RequestAdvance", h, func() error {
		return e.time.RequestAdvance(h, t, mode)
	})
}

// QueryGALT returns the greatest available logical time, final when no
// federate regulates.
func (e *Execution) QueryGALT() logicaltime.Time { return e.time.GALT() }

func (e *Execution) QueryLogicalTime(h types.FederateHandle) (logicaltime.Time, error) {
	if err := e.requireMember(h); err != nil {
		return nil, requestError("QueryLogicalTime", h, err)
	}
	return e.time.FederateTime(h)
}

func (e *Execution) QueryLITS(h types.FederateHandle) (logicaltime.Time, error) {
	if err := e.requireMember(h); err != nil {
		return nil, requestError("QueryLITS", h, err)
	}
	return e.time.LITS(h)
}

func (e *Execution) QueryLookahead(h types.FederateHandle) (logicaltime.Interval, error) {
	if err := e.requireMember(h); err != nil {
		return nil, requestError("QueryLookahead", h, err)
	}
	return e.time.Lookahead(h)
}

// TimeState returns a snapshot of a federate's time state.
func (e *Execution) TimeState(h types.FederateHandle) (timekeeper.FederateState, error) {
	if err := e.requireMember(h); err != nil {
		return timekeeper.FederateState{}, requestError("TimeState", h, err)
	}
	return e.time.State(h)
}

// checkTimestamp rejects a timestamp a regulating sender may no longer send.
func (e *Execution) checkTimestamp(sender types.FederateHandle, ts logicaltime.Time) error {
	if ts == nil || !e.time.IsRegulating(sender) {
		return nil
	}
	lits, err := e.time.LITS(sender)
	if err != nil {
		return err
	}
	if ts.Compare(lits) < 0 {
		return fmt.Errorf("%w: %v is before LITS %v", timekeeper.ErrInvalidLogicalTime, ts, lits)
	}
	return nil
}
