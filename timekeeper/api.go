// Package timekeeper coordinates logical time across the federates of one
// federation execution.
//
// Regulating federates bound how far others may advance: each one promises
// never to send a timestamped message earlier than its LITS (least incoming
// time stamp), and GALT (greatest available logical time) is the minimum LITS
// over all of them. Constrained federates are only granted times at or before
// GALT and receive timestamped messages in timestamp order at their grants.
package timekeeper

import (
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// MessageBuilder produces the notification for a dispatched message given the
// order it is delivered in. It is called at most once per order.
type MessageBuilder func(order types.OrderType) notify.Notification

// TimeCoordinator is the time-management state machine of a federation.
//
// Every method is safe for concurrent use. Mutating methods decide their
// callbacks (grants, enables, released messages) under the coordinator's lock
// and deliver them through the coordinator's outbox after unlocking, so each
// federate observes them in decision order.
type TimeCoordinator interface {
	// AddFederate registers a federate at the initial time. Adding a known
	// federate is a no-op.
	AddFederate(h types.FederateHandle)

	// RemoveFederate forgets everything about the federate: its roles, its
	// pending requests and its held messages. GALT is recomputed and any
	// advances this unblocks are granted. Removing an unknown federate is a no-op.
	RemoveFederate(h types.FederateHandle)

	// EnableTimeRegulation makes the federate regulating with the given
	// lookahead and sends TimeRegulationEnabled.
	//
	// Returns ErrFederateNotJoined, ErrTimeRegulationAlreadyEnabled,
	// ErrRequestInProgress, ErrInTimeAdvancingState or ErrInvalidLookahead.
	EnableTimeRegulation(h types.FederateHandle, lookahead logicaltime.Interval) error

	// DisableTimeRegulation removes the federate from the regulating set.
	DisableTimeRegulation(h types.FederateHandle) error

	// EnableTimeConstrained makes the federate constrained. The enable
	// completes immediately when the federate's time is at or before GALT and
	// otherwise waits until GALT reaches it; TimeConstrainedEnabled is sent
	// on completion.
	EnableTimeConstrained(h types.FederateHandle) error

	// DisableTimeConstrained removes the constraint, releases held messages in
	// arrival order and grants any pending advance.
	DisableTimeConstrained(h types.FederateHandle) error

	// ModifyLookahead changes a regulating federate's lookahead.
	ModifyLookahead(h types.FederateHandle, lookahead logicaltime.Interval) error

	// RequestAdvance asks for a grant to t using the given mode. The grant is
	// delivered asynchronously as TimeAdvanceGrant.
	//
	// Returns ErrFederateNotJoined, ErrRequestInProgress,
	// ErrInTimeAdvancingState, ErrLogicalTimeAlreadyPassed or ErrInvalidAdvanceMode.
	RequestAdvance(h types.FederateHandle, t logicaltime.Time, mode AdvanceMode) error

	// Dispatch delivers a message from sender to recipients. A nil ts sends in
	// receive order. A timestamped message from a regulating sender must not
	// be earlier than the sender's LITS (ErrInvalidLogicalTime); it is held
	// for constrained recipients until their grants and delivered immediately
	// to everyone else. Timestamped messages from non-regulating senders are
	// delivered in receive order.
	Dispatch(sender types.FederateHandle, recipients []types.FederateHandle, ts logicaltime.Time, build MessageBuilder) error

	// GALT returns the current GALT, the final time when no federate regulates.
	GALT() logicaltime.Time

	FederateTime(h types.FederateHandle) (logicaltime.Time, error)
	LITS(h types.FederateHandle) (logicaltime.Time, error)
	Lookahead(h types.FederateHandle) (logicaltime.Interval, error)
	IsRegulating(h types.FederateHandle) bool
	IsConstrained(h types.FederateHandle) bool
	IsAdvancing(h types.FederateHandle) bool
}

var _ TimeCoordinator = (*Coordinator)(nil)
