package ownership

import "errors"

var (
	// ErrObjectInstanceNotKnown indicates an unknown or deleted object instance.
	ErrObjectInstanceNotKnown = errors.New("ownership: object instance not known")

	// ErrObjectClassNotDefined indicates a class the object model does not define.
	ErrObjectClassNotDefined = errors.New("ownership: object class not defined")

	// ErrAttributeNotDefined indicates an attribute outside the object's class.
	ErrAttributeNotDefined = errors.New("ownership: attribute not defined")

	// ErrAttributeNotOwned indicates the caller does not own an attribute it must own.
	ErrAttributeNotOwned = errors.New("ownership: attribute not owned")

	// ErrAttributeAlreadyBeingDivested indicates a second negotiated divestiture.
	ErrAttributeAlreadyBeingDivested = errors.New("ownership: attribute already being divested")

	// ErrAttributeDivestitureWasNotRequested indicates ConfirmDivest without a
	// preceding negotiated divestiture.
	ErrAttributeDivestitureWasNotRequested = errors.New("ownership: attribute divestiture was not requested")

	// ErrFederateOwnsAttributes indicates an acquisition of an attribute the
	// requester already owns, or a resignation that would leave owned attributes.
	ErrFederateOwnsAttributes = errors.New("ownership: federate owns attributes")

	// ErrOwnershipAcquisitionPending indicates a resignation that leaves the
	// federate waiting in an acquisition line.
	ErrOwnershipAcquisitionPending = errors.New("ownership: ownership acquisition pending")

	// ErrObjectInstanceNameInUse indicates a duplicate object instance name.
	ErrObjectInstanceNameInUse = errors.New("ownership: object instance name in use")

	// ErrDeletePrivilegeNotHeld indicates a delete by a federate that does not
	// own the privilege-to-delete attribute.
	ErrDeletePrivilegeNotHeld = errors.New("ownership: delete privilege not held")

	// ErrInvalidResignAction indicates a resign action outside the defined set.
	ErrInvalidResignAction = errors.New("ownership: invalid resign action")
)

// ErrIllegalName indicates an object instance name using the reserved "HLA" prefix.
var ErrIllegalName = errors.New("ownership: illegal object instance name")
