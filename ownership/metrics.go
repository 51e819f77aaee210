package ownership

// Metrics records ownership activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// IncrTransfers counts attributes that changed owner.
	IncrTransfers(n int)

	// IncrQueued counts federates entering an acquisition line.
	IncrQueued()

	// SetObjects tracks the number of registered object instances.
	SetObjects(n int)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrTransfers(int) {}
func (NoOpMetrics) IncrQueued()       {}
func (NoOpMetrics) SetObjects(int)    {}
