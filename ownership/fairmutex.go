package ownership

import "sync"

// fairMutex is a ticket lock. Goroutines enter in the order they called
// Lock, so a federate repeatedly contesting an object cannot starve another.
type fairMutex struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

func newFairMutex() *fairMutex {
	m := &fairMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *fairMutex) Lock() {
	m.mu.Lock()
	ticket := m.next
	m.next++
	for ticket != m.serving {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

func (m *fairMutex) Unlock() {
	m.mu.Lock()
	m.serving++
	m.cond.Broadcast()
	m.mu.Unlock()
}
