package server

import "time"

const (
	// --- Default server configuration values ---

	// DefaultListenAddress is the default address federates connect to.
	DefaultListenAddress = "0.0.0.0:8680"

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultServerStartTimeout bounds how long Start waits for the gRPC server to begin serving.
	DefaultServerStartTimeout = 5 * time.Second

	// --- Rate limiting defaults ---

	// DefaultRateLimit is the default number of requests per second per session.
	DefaultRateLimit = 1000

	// DefaultRateLimitBurst is the default burst size for rate limiting.
	DefaultRateLimitBurst = 2000

	// DefaultRateLimitWindow is the default time window for rate limiting calculations.
	DefaultRateLimitWindow = time.Second

	// --- gRPC transport defaults ---

	// DefaultGRPCMaxRecvMsgSize is the default maximum size of an incoming frame (16MB).
	DefaultGRPCMaxRecvMsgSize = 16 * 1024 * 1024

	// DefaultGRPCMaxSendMsgSize is the default maximum size of an outgoing frame (16MB).
	DefaultGRPCMaxSendMsgSize = 16 * 1024 * 1024

	// DefaultGRPCKeepaliveTime is the interval between keepalive pings on idle sessions.
	DefaultGRPCKeepaliveTime = 30 * time.Second

	// DefaultGRPCKeepaliveTimeout is how long to wait for a keepalive acknowledgment.
	// A session whose peer misses it is treated as lost.
	DefaultGRPCKeepaliveTimeout = 5 * time.Second

	// --- Validation limits for federate-provided data ---

	// MaxNameLength bounds federate, federate type and object instance names.
	MaxNameLength = 256

	// MaxTagLength bounds user-supplied tags.
	MaxTagLength = 64 * 1024

	// MaxHandlesPerRequest bounds attribute and parameter lists.
	MaxHandlesPerRequest = 1024

	// MaxValueLength bounds a single attribute or parameter value.
	MaxValueLength = 1024 * 1024

	// --- Error message templates for validation ---

	ErrMsgNameTooLong     = "must be at most %d characters"
	ErrMsgTagTooLong      = "tag cannot exceed %d bytes"
	ErrMsgTooManyHandles  = "cannot list more than %d handles"
	ErrMsgValueTooLong    = "value cannot exceed %d bytes"
	ErrMsgHandleRequired  = "must be a positive handle"
	ErrMsgDuplicateHandle = "handle %d listed twice"
)

// ServerOperationalState defines the possible operational states of the server.
type ServerOperationalState string

const (
	ServerStateStarting ServerOperationalState = "starting"
	ServerStateRunning  ServerOperationalState = "running"
	ServerStateStopping ServerOperationalState = "stopping"
	ServerStateStopped  ServerOperationalState = "stopped"
)

// Request operations carried in the "op" field of a request frame.
const (
	OpJoin            = "join"
	OpResign          = "resign"
	OpListFederations = "list_federations"

	OpEnableTimeRegulation   = "enable_time_regulation"
	OpDisableTimeRegulation  = "disable_time_regulation"
	OpEnableTimeConstrained  = "enable_time_constrained"
	OpDisableTimeConstrained = "disable_time_constrained"
	OpModifyLookahead        = "modify_lookahead"
	OpRequestAdvance         = "request_advance"
	OpQueryGALT              = "query_galt"
	OpQueryLogicalTime       = "query_logical_time"
	OpQueryLITS              = "query_lits"
	OpQueryLookahead         = "query_lookahead"

	OpPublishObjectClass          = "publish_object_class"
	OpUnpublishObjectClass        = "unpublish_object_class"
	OpSubscribeObjectClass        = "subscribe_object_class"
	OpUnsubscribeObjectClass      = "unsubscribe_object_class"
	OpPublishInteractionClass     = "publish_interaction_class"
	OpUnpublishInteractionClass   = "unpublish_interaction_class"
	OpSubscribeInteractionClass   = "subscribe_interaction_class"
	OpUnsubscribeInteractionClass = "unsubscribe_interaction_class"

	OpRegisterObjectInstance = "register_object_instance"
	OpDeleteObjectInstance   = "delete_object_instance"
	OpUpdateAttributeValues  = "update_attribute_values"
	OpSendInteraction        = "send_interaction"

	OpUnconditionalDivest    = "unconditional_divest"
	OpNegotiatedDivest       = "negotiated_divest"
	OpConfirmDivest          = "confirm_divest"
	OpAcquire                = "acquire"
	OpAcquireIfAvailable     = "acquire_if_available"
	OpCancelAcquire          = "cancel_acquire"
	OpCancelNegotiatedDivest = "cancel_negotiated_divest"
	OpDivestIfWanted         = "divest_if_wanted"
	OpQueryOwnership         = "query_ownership"
	OpIsOwnedBy              = "is_owned_by"
)

// Queue types for metrics and logging
const (
	QueueTypeOutbound = "session_outbound"
)

// Error types for metrics and logging (used with ServerMetrics.IncrValidationError/IncrServerError)
const (
	ErrorTypeMissingField  = "missing_field"
	ErrorTypeInvalidFormat = "invalid_format"
	ErrorTypeOutOfRange    = "out_of_range"
	ErrorTypeTooLong       = "too_long"
	ErrorTypeInternalError = "internal_error"
	ErrorTypeRateLimit     = "rate_limit_exceeded"
)
