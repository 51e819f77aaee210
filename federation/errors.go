package federation

import (
	"errors"
	"fmt"

	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

var (
	// ErrFederateNotExecutionMember is returned for requests from a federate
	// that never joined or already resigned.
	ErrFederateNotExecutionMember = errors.New("federation: federate is not an execution member")

	// ErrFederateNameAlreadyInUse is returned when joining under a name another
	// joined federate uses.
	ErrFederateNameAlreadyInUse = errors.New("federation: federate name already in use")

	ErrObjectClassNotPublished        = errors.New("federation: object class not published")
	ErrAttributeNotPublished          = errors.New("federation: attribute not published")
	ErrInteractionClassNotDefined     = errors.New("federation: interaction class not defined")
	ErrInteractionClassNotPublished   = errors.New("federation: interaction class not published")
	ErrInteractionParameterNotDefined = errors.New("federation: interaction parameter not defined")

	// ErrFederatesCurrentlyJoined is returned when destroying an execution
	// that still has members.
	ErrFederatesCurrentlyJoined = errors.New("federation: federates currently joined")

	ErrFederationExecutionAlreadyExists = errors.New("federation: federation execution already exists")
	ErrFederationExecutionDoesNotExist  = errors.New("federation: federation execution does not exist")
)

// RequestError reports a failed federate request together with the
// operation and the federate that issued it.
type RequestError struct {
	Op       string
	Federate types.FederateHandle
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("federation: %s from %v: %v", e.Op, e.Federate, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Fatal reports whether the failure is a protocol-sequence error: enabling a
// time role while another enable or an advance is still in flight. Sessions
// end on fatal errors.
func (e *RequestError) Fatal() bool {
	switch e.Op {
	case "EnableTimeRegulation", "EnableTimeConstrained":
		return errors.Is(e.Err, timekeeper.ErrRequestInProgress)
	}
	return false
}

func requestError(op string, h types.FederateHandle, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{Op: op, Federate: h, Err: err}
}
