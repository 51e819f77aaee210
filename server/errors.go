package server

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/timekeeper"
)

var (
	// ErrServerNotStarted indicates the server has not been started or is not yet ready.
	ErrServerNotStarted = errors.New("server: server not started or not ready")

	// ErrServerAlreadyStarted indicates an attempt to start an already running server.
	ErrServerAlreadyStarted = errors.New("server: server already started")

	// ErrServerStopped indicates the server has been stopped and cannot accept sessions.
	ErrServerStopped = errors.New("server: server stopped")

	// ErrRateLimited indicates the request was rejected by the session's rate limiter.
	ErrRateLimited = errors.New("server: request rate limited")

	// ErrShutdownTimeout indicates the server's graceful shutdown process timed out.
	ErrShutdownTimeout = errors.New("server: shutdown timed out")

	// ErrInvalidRequest indicates a frame that is not a well-formed request.
	ErrInvalidRequest = errors.New("server: invalid request")

	// ErrUnknownOperation indicates a request naming an operation the server does not serve.
	ErrUnknownOperation = errors.New("server: unknown operation")

	// ErrNotJoined indicates a federate request on a session that has not joined.
	ErrNotJoined = errors.New("server: session has not joined a federation")

	// ErrAlreadyJoined indicates a join on a session that already joined.
	ErrAlreadyJoined = errors.New("server: session already joined a federation")

	// ErrSessionClosed indicates a send on a session whose stream has ended.
	ErrSessionClosed = errors.New("server: session closed")
)

// ValidationError represents a request validation error with details about the specific field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("server: validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// ServerError represents an internal server error, potentially wrapping an underlying cause.
type ServerError struct {
	Operation string
	Cause     error
	Message   string
}

func NewServerError(operation string, cause error, message string) *ServerError {
	return &ServerError{Operation: operation, Cause: cause, Message: message}
}

func (e *ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server: error during %s: %s (cause: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("server: error during %s: %s", e.Operation, e.Message)
}

func (e *ServerError) Unwrap() error { return e.Cause }

var sentinelCodes = []struct {
	err  error
	code codes.Code
}{
	{ErrInvalidRequest, codes.InvalidArgument},
	{ErrUnknownOperation, codes.Unimplemented},
	{ErrRateLimited, codes.ResourceExhausted},
	{ErrServerNotStarted, codes.Unavailable},
	{ErrServerStopped, codes.Unavailable},
	{ErrSessionClosed, codes.Unavailable},
	{ErrNotJoined, codes.FailedPrecondition},
	{ErrAlreadyJoined, codes.AlreadyExists},
	{ErrShutdownTimeout, codes.DeadlineExceeded},

	{federation.ErrFederateNotExecutionMember, codes.NotFound},
	{federation.ErrFederationExecutionDoesNotExist, codes.NotFound},
	{timekeeper.ErrFederateNotJoined, codes.NotFound},
	{ownership.ErrObjectInstanceNotKnown, codes.NotFound},

	{federation.ErrFederateNameAlreadyInUse, codes.AlreadyExists},
	{federation.ErrFederationExecutionAlreadyExists, codes.AlreadyExists},
	{ownership.ErrObjectInstanceNameInUse, codes.AlreadyExists},

	{ownership.ErrObjectClassNotDefined, codes.InvalidArgument},
	{ownership.ErrAttributeNotDefined, codes.InvalidArgument},
	{ownership.ErrInvalidResignAction, codes.InvalidArgument},
	{ownership.ErrIllegalName, codes.InvalidArgument},
	{federation.ErrInteractionClassNotDefined, codes.InvalidArgument},
	{federation.ErrInteractionParameterNotDefined, codes.InvalidArgument},
	{timekeeper.ErrInvalidLookahead, codes.InvalidArgument},
	{timekeeper.ErrInvalidLogicalTime, codes.InvalidArgument},
	{timekeeper.ErrInvalidAdvanceMode, codes.InvalidArgument},
	{logicaltime.ErrInvalidTime, codes.InvalidArgument},
	{fom.ErrInvalidCatalog, codes.InvalidArgument},

	{logicaltime.ErrIllegalTimeArithmetic, codes.OutOfRange},
}

// StatusCode maps an error to the gRPC code reported to the federate.
// Usage errors that depend on federation state map to FailedPrecondition.
func StatusCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}

	var validationErr *ValidationError
	var serverErr *ServerError
	if errors.As(err, &validationErr) {
		return codes.InvalidArgument
	}
	if errors.As(err, &serverErr) {
		return codes.Internal
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}

	var reqErr *federation.RequestError
	if errors.As(err, &reqErr) {
		return codes.FailedPrecondition
	}
	return codes.Internal
}

// ErrorToStatus converts an error into the status that ends a session.
func ErrorToStatus(err error) *status.Status {
	if err == nil {
		return nil
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		// Internal causes stay in the server log.
		return status.New(codes.Internal, serverErr.Message)
	}
	return status.New(StatusCode(err), err.Error())
}

// errorDetails returns the structured fields attached to a failed reply.
func errorDetails(err error) map[string]any {
	details := map[string]any{}
	var validationErr *ValidationError
	var reqErr *federation.RequestError
	switch {
	case errors.As(err, &validationErr):
		details["field"] = validationErr.Field
		details["value"] = fmt.Sprintf("%v", validationErr.Value)
	case errors.As(err, &reqErr):
		details["operation"] = reqErr.Op
		details["federate"] = float64(reqErr.Federate)
	}
	return details
}
