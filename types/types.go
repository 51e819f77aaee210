package types

// FederationID uniquely identifies a federation execution hosted by an executor.
// It is generated when the execution is created and never reused.
type FederationID string

// FederateHandle identifies a joined federate within one federation execution.
// Handles are assigned in join order starting at 1; the zero value means "no federate".
type FederateHandle uint64

// ObjectClassHandle identifies an object class of the federation object model.
type ObjectClassHandle uint64

// AttributeHandle identifies an attribute of an object class.
type AttributeHandle uint64

// InteractionClassHandle identifies an interaction class of the federation object model.
type InteractionClassHandle uint64

// ParameterHandle identifies a parameter of an interaction class.
type ParameterHandle uint64

// ObjectInstanceHandle identifies a registered object instance.
// Handles are assigned in registration order starting at 1.
type ObjectInstanceHandle uint64

// NoFederate is the FederateHandle of an unowned attribute.
const NoFederate FederateHandle = 0

// PrivilegeToDeleteAttribute is the attribute every object class carries implicitly.
// Its owner is the only federate allowed to delete the instance.
const PrivilegeToDeleteAttribute AttributeHandle = 1

// OrderType selects how a message is ordered on delivery.
type OrderType int

const (
	// OrderReceive delivers a message as soon as it arrives.
	OrderReceive OrderType = iota

	// OrderTimestamp holds a message for time-constrained federates until
	// their logical time allows it to be delivered in timestamp order.
	OrderTimestamp
)

// TransportationType selects the delivery guarantee requested for a message.
type TransportationType int

const (
	TransportReliable TransportationType = iota
	TransportBestEffort
)

// ResignAction controls what happens to a federate's objects and ownership
// when it leaves the federation execution.
type ResignAction int

const (
	// ResignNoAction leaves owned attributes owned; the resign fails if any are.
	ResignNoAction ResignAction = iota

	// ResignDivestAttributes unconditionally divests every owned attribute.
	ResignDivestAttributes

	// ResignDeleteObjects deletes every object the federate may delete.
	ResignDeleteObjects

	// ResignCancelPendingAcquisitions removes the federate from every acquisition line.
	ResignCancelPendingAcquisitions

	// ResignDeleteObjectsThenDivest deletes deletable objects, then divests the rest.
	ResignDeleteObjectsThenDivest

	// ResignCancelThenDeleteThenDivest cancels acquisitions, deletes deletable
	// objects, then divests the remaining attributes. This is also the action
	// applied when a federate's session is lost.
	ResignCancelThenDeleteThenDivest
)

// AttributeValue is one attribute of an update. Values are opaque to the executor.
type AttributeValue struct {
	Attribute AttributeHandle `json:"attribute"`
	Value     []byte          `json:"value"`
}

// ParameterValue is one parameter of an interaction. Values are opaque to the executor.
type ParameterValue struct {
	Parameter ParameterHandle `json:"parameter"`
	Value     []byte          `json:"value"`
}
