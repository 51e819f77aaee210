package server

import (
	"time"

	"google.golang.org/grpc/codes"
)

// ServerMetrics defines observability hooks for executor sessions.
// All methods must be safe for concurrent use.
type ServerMetrics interface {
	// IncrRequest counts a federate request by operation and outcome.
	IncrRequest(op string, success bool)

	// IncrValidationError counts requests rejected before reaching the federation.
	// 'errorType' is one of the ErrorType constants.
	IncrValidationError(op string, errorType string)

	// IncrClientError counts requests the federation refused.
	IncrClientError(op string, code codes.Code)

	// IncrServerError counts internal failures.
	IncrServerError(op string, errorType string)

	// IncrCallback counts callbacks queued for delivery, by kind.
	IncrCallback(kind string)

	// ObserveRequestLatency records how long a request took to decide.
	ObserveRequestLatency(op string, latency time.Duration)

	// ObserveQueueLength tracks the size of a session's outbound queue.
	ObserveQueueLength(queueType string, length int)

	// SetActiveConnections sets the number of open sessions.
	SetActiveConnections(count int)

	// IncrSessionEnd counts sessions ending, by the status code they ended with.
	IncrSessionEnd(code codes.Code)

	// Reset clears all counters and gauges. Useful in tests.
	Reset()
}

// NoOpServerMetrics provides a no-operation implementation of ServerMetrics.
type NoOpServerMetrics struct{}

func NewNoOpServerMetrics() ServerMetrics {
	return &NoOpServerMetrics{}
}

func (n *NoOpServerMetrics) IncrRequest(op string, success bool)                    {}
func (n *NoOpServerMetrics) IncrValidationError(op string, errorType string)        {}
func (n *NoOpServerMetrics) IncrClientError(op string, code codes.Code)             {}
func (n *NoOpServerMetrics) IncrServerError(op string, errorType string)            {}
func (n *NoOpServerMetrics) IncrCallback(kind string)                               {}
func (n *NoOpServerMetrics) ObserveRequestLatency(op string, latency time.Duration) {}
func (n *NoOpServerMetrics) ObserveQueueLength(queueType string, length int)        {}
func (n *NoOpServerMetrics) SetActiveConnections(count int)                         {}
func (n *NoOpServerMetrics) IncrSessionEnd(code codes.Code)                         {}
func (n *NoOpServerMetrics) Reset()                                                 {}
