// Package notify holds the callbacks the executor sends to federates and the
// ordered outbox coordinators use to hand them to the session layer.
//
// Notifications are opaque structured values to the coordinators: their byte
// encoding belongs to the transport (see server/wire.go).
package notify

import (
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/types"
)

// Notification is a callback addressed to one federate.
type Notification interface {
	// Kind is the stable name of the callback, used on the wire and in the journal.
	Kind() string
}

// Time management

type TimeRegulationEnabled struct {
	Time logicaltime.Time `json:"time"`
}

type TimeConstrainedEnabled struct {
	Time logicaltime.Time `json:"time"`
}

type TimeAdvanceGrant struct {
	Time logicaltime.Time `json:"time"`
}

// GALTAdvanced is broadcast to every joined federate whenever GALT moves forward.
type GALTAdvanced struct {
	GALT logicaltime.Time `json:"galt"`
}

// Object management

type DiscoverObjectInstance struct {
	Object types.ObjectInstanceHandle `json:"object"`
	Class  types.ObjectClassHandle    `json:"class"`
	Name   string                     `json:"name"`
}

type RemoveObjectInstance struct {
	Object types.ObjectInstanceHandle `json:"object"`
	Tag    []byte                     `json:"tag,omitempty"`
}

// ReflectAttributeValues carries an attribute update. Time is nil for
// receive-order delivery.
type ReflectAttributeValues struct {
	Object types.ObjectInstanceHandle `json:"object"`
	Values []types.AttributeValue     `json:"values"`
	Tag    []byte                     `json:"tag,omitempty"`
	Time   logicaltime.Time           `json:"time,omitempty"`
	Order  types.OrderType            `json:"order"`
	Sender types.FederateHandle       `json:"sender"`
}

// ReceiveInteraction carries an interaction. Time is nil for receive-order delivery.
type ReceiveInteraction struct {
	Class  types.InteractionClassHandle `json:"class"`
	Values []types.ParameterValue       `json:"values"`
	Tag    []byte                       `json:"tag,omitempty"`
	Time   logicaltime.Time             `json:"time,omitempty"`
	Order  types.OrderType              `json:"order"`
	Sender types.FederateHandle         `json:"sender"`
}

// Ownership management

type AttributeOwnershipAcquisitionNotification struct {
	Object     types.ObjectInstanceHandle `json:"object"`
	Attributes []types.AttributeHandle    `json:"attributes"`
	Tag        []byte                     `json:"tag,omitempty"`
}

type RequestDivestitureConfirmation struct {
	Object     types.ObjectInstanceHandle `json:"object"`
	Attributes []types.AttributeHandle    `json:"attributes"`
}

type RequestAttributeOwnershipRelease struct {
	Object     types.ObjectInstanceHandle `json:"object"`
	Attributes []types.AttributeHandle    `json:"attributes"`
	Tag        []byte                     `json:"tag,omitempty"`
}

type AttributeOwnershipUnavailable struct {
	Object     types.ObjectInstanceHandle `json:"object"`
	Attributes []types.AttributeHandle    `json:"attributes"`
}

type ConfirmAttributeOwnershipAcquisitionCancellation struct {
	Object     types.ObjectInstanceHandle `json:"object"`
	Attributes []types.AttributeHandle    `json:"attributes"`
}

type InformAttributeOwnership struct {
	Object    types.ObjectInstanceHandle `json:"object"`
	Attribute types.AttributeHandle      `json:"attribute"`
	Owner     types.FederateHandle       `json:"owner"`
}

type AttributeIsNotOwned struct {
	Object    types.ObjectInstanceHandle `json:"object"`
	Attribute types.AttributeHandle      `json:"attribute"`
}

func (TimeRegulationEnabled) Kind() string  { return "TimeRegulationEnabled" }
func (TimeConstrainedEnabled) Kind() string { return "TimeConstrainedEnabled" }
func (TimeAdvanceGrant) Kind() string       { return "TimeAdvanceGrant" }
func (GALTAdvanced) Kind() string           { return "GALTAdvanced" }
func (DiscoverObjectInstance) Kind() string { return "DiscoverObjectInstance" }
func (RemoveObjectInstance) Kind() string   { return "RemoveObjectInstance" }
func (ReflectAttributeValues) Kind() string { return "ReflectAttributeValues" }
func (ReceiveInteraction) Kind() string     { return "ReceiveInteraction" }

func (AttributeOwnershipAcquisitionNotification) Kind() string {
	return "AttributeOwnershipAcquisitionNotification"
}
func (RequestDivestitureConfirmation) Kind() string   { return "RequestDivestitureConfirmation" }
func (RequestAttributeOwnershipRelease) Kind() string { return "RequestAttributeOwnershipRelease" }
func (AttributeOwnershipUnavailable) Kind() string    { return "AttributeOwnershipUnavailable" }
func (ConfirmAttributeOwnershipAcquisitionCancellation) Kind() string {
	return "ConfirmAttributeOwnershipAcquisitionCancellation"
}
func (InformAttributeOwnership) Kind() string { return "InformAttributeOwnership" }
func (AttributeIsNotOwned) Kind() string      { return "AttributeIsNotOwned" }
