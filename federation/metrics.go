package federation

// Metrics records federation-level activity. Implementations must be safe
// for concurrent use.
type Metrics interface {
	// IncrRequest counts a federate request by operation name.
	IncrRequest(op string, success bool)

	// SetFederates tracks the number of joined federates.
	SetFederates(n int)

	// IncrDiscoveries counts DiscoverObjectInstance callbacks.
	IncrDiscoveries(n int)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrRequest(string, bool) {}
func (NoOpMetrics) SetFederates(int)         {}
func (NoOpMetrics) IncrDiscoveries(int)      {}
