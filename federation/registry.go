package federation

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
)

// Registry holds the federation executions of one executor process by name.
type Registry struct {
	mu         sync.RWMutex
	executions map[string]*Execution
	opts       []Option
}

// NewRegistry returns an empty registry. opts apply to every execution it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{executions: make(map[string]*Execution), opts: opts}
}

// Create starts a federation execution.
func (r *Registry) Create(name string, catalog *fom.Catalog, factory logicaltime.Factory, sink notify.Sink) (*Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executions[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrFederationExecutionAlreadyExists, name)
	}
	e := NewExecution(name, catalog, factory, sink, r.opts...)
	r.executions[name] = e
	e.logger.Infow("federation execution created", "time_domain", factory.Domain(), "fom", catalog.Name())
	return e, nil
}

// Lookup returns a running federation execution.
func (r *Registry) Lookup(name string) (*Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFederationExecutionDoesNotExist, name)
	}
	return e, nil
}

// Destroy removes a federation execution that has no members left.
func (r *Registry) Destroy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.executions[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrFederationExecutionDoesNotExist, name)
	}
	if n := e.MemberCount(); n > 0 {
		return fmt.Errorf("%w: %d in %q", ErrFederatesCurrentlyJoined, n, name)
	}
	delete(r.executions, name)
	e.logger.Infow("federation execution destroyed")
	return nil
}

// Names returns the running executions in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.executions))
}
