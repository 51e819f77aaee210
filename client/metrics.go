package client

import "time"

// Metrics records client-side request outcomes. All methods must be safe
// for concurrent use.
type Metrics interface {
	IncrSuccess(op string)
	IncrFailure(op string)
	IncrCallback(kind string)
	ObserveLatency(op string, latency time.Duration)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrSuccess(string)                   {}
func (NoOpMetrics) IncrFailure(string)                   {}
func (NoOpMetrics) IncrCallback(string)                  {}
func (NoOpMetrics) ObserveLatency(string, time.Duration) {}
