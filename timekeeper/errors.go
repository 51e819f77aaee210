package timekeeper

import "errors"

// Usage errors. They are reported to the calling federate only and never
// modify coordinator state.
var (
	// ErrFederateNotJoined indicates the federate handle is unknown to the coordinator.
	ErrFederateNotJoined = errors.New("timekeeper: federate is not joined")

	// ErrTimeRegulationAlreadyEnabled indicates a second EnableTimeRegulation.
	ErrTimeRegulationAlreadyEnabled = errors.New("timekeeper: time regulation already enabled")

	// ErrTimeRegulationNotEnabled indicates an operation that requires a regulating federate.
	ErrTimeRegulationNotEnabled = errors.New("timekeeper: time regulation not enabled")

	// ErrTimeConstrainedAlreadyEnabled indicates a second EnableTimeConstrained.
	ErrTimeConstrainedAlreadyEnabled = errors.New("timekeeper: time constrained already enabled")

	// ErrTimeConstrainedNotEnabled indicates DisableTimeConstrained on an unconstrained federate.
	ErrTimeConstrainedNotEnabled = errors.New("timekeeper: time constrained not enabled")

	// ErrRequestInProgress indicates a request while an enable is still pending.
	// Sessions treat it as a fatal protocol-sequence error.
	ErrRequestInProgress = errors.New("timekeeper: request already in progress")

	// ErrInTimeAdvancingState indicates a request while an advance is outstanding.
	ErrInTimeAdvancingState = errors.New("timekeeper: federate is already advancing")

	// ErrInvalidLookahead indicates a lookahead that is not a positive interval,
	// or a reduction that would move GALT backwards.
	ErrInvalidLookahead = errors.New("timekeeper: invalid lookahead")

	// ErrLogicalTimeAlreadyPassed indicates a requested time at or before the federate's time.
	ErrLogicalTimeAlreadyPassed = errors.New("timekeeper: logical time already passed")

	// ErrInvalidLogicalTime indicates a timestamp below the sender's LITS.
	ErrInvalidLogicalTime = errors.New("timekeeper: invalid logical time")

	// ErrInvalidAdvanceMode indicates an AdvanceMode outside the defined set.
	ErrInvalidAdvanceMode = errors.New("timekeeper: invalid advance mode")
)
