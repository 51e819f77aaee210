// Package federation ties the coordinators of one federation execution
// together: membership, publish/subscribe interest, object discovery and the
// routing of updates and interactions, gated by ownership and by time.
package federation

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

// Member is a joined federate.
type Member struct {
	Handle types.FederateHandle
	Name   string
	Type   string
}

// Execution is one running federation execution.
//
// Lock order: the execution lock is taken before any coordinator lock and
// never the other way around. Every callback decided by the execution or its
// coordinators goes through one shared outbox, so each federate observes
// callbacks in decision order.
type Execution struct {
	mu sync.RWMutex

	id      types.FederationID
	name    string
	factory logicaltime.Factory
	catalog *fom.Catalog
	outbox  *notify.Outbox
	logger  logger.Logger
	metrics Metrics

	time    *timekeeper.Coordinator
	objects *ownership.Manager
	decl    *declarations

	members    map[types.FederateHandle]*Member
	names      map[string]types.FederateHandle
	lastHandle types.FederateHandle

	// known maps each object to the federates that know it and the class
	// they know it as.
	known map[types.ObjectInstanceHandle]map[types.FederateHandle]types.ObjectClassHandle
}

// NewExecution creates an empty federation execution. Callbacks are delivered
// to sink; a nil sink discards them.
func NewExecution(name string, catalog *fom.Catalog, factory logicaltime.Factory, sink notify.Sink, opts ...Option) *Execution {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := types.FederationID(uuid.NewString())
	log := cfg.Logger.WithFederation(id).With("federation_name", name)
	outbox := notify.NewOutbox(sink)

	return &Execution{
		id:      id,
		name:    name,
		factory: factory,
		catalog: catalog,
		outbox:  outbox,
		logger:  log.WithComponent("federation"),
		metrics: cfg.Metrics,
		time: timekeeper.NewCoordinator(factory, outbox,
			timekeeper.WithLogger(log),
			timekeeper.WithMetrics(cfg.TimeMetrics),
			timekeeper.WithGALTBroadcast(cfg.BroadcastGALT),
		),
		objects: ownership.NewManager(catalog, outbox,
			ownership.WithLogger(log),
			ownership.WithMetrics(cfg.OwnershipMetrics),
		),
		decl:    newDeclarations(catalog),
		members: make(map[types.FederateHandle]*Member),
		names:   make(map[string]types.FederateHandle),
		known:   make(map[types.ObjectInstanceHandle]map[types.FederateHandle]types.ObjectClassHandle),
	}
}

func (e *Execution) ID() types.FederationID           { return e.id }
func (e *Execution) Name() string                     { return e.name }
func (e *Execution) Catalog() *fom.Catalog            { return e.catalog }
func (e *Execution) TimeFactory() logicaltime.Factory { return e.factory }

// Join adds a federate and returns its handle. Handles are assigned in join
// order. An empty name is replaced by one derived from the handle.
func (e *Execution) Join(name, federateType string) (Member, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, taken := e.names[name]; taken && name != "" {
		e.metrics.IncrRequest("Join", false)
		return Member{}, fmt.Errorf("%w: %q", ErrFederateNameAlreadyInUse, name)
	}
	e.lastHandle++
	h := e.lastHandle
	if name == "" {
		name = h.String()
	}

	m := &Member{Handle: h, Name: name, Type: federateType}
	e.members[h] = m
	e.names[name] = h
	e.decl.add(h)
	e.time.AddFederate(h)

	e.metrics.IncrRequest("Join", true)
	e.metrics.SetFederates(len(e.members))
	e.logger.WithFederate(h).Infow("federate joined", "name", name, "type", federateType)
	return *m, nil
}

// Resign removes a federate after applying action to its objects and
// ownership. Objects it deletes are removed at every federate that knew them.
func (e *Execution) Resign(h types.FederateHandle, action types.ResignAction) error {
	defer e.outbox.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.members[h]; !ok {
		e.metrics.IncrRequest("Resign", false)
		return requestError("Resign", h, ErrFederateNotExecutionMember)
	}
	deleted, err := e.objects.Resign(h, action)
	e.metrics.IncrRequest("Resign", err == nil)
	if err != nil {
		return requestError("Resign", h, err)
	}
	e.leave(h, deleted)
	e.logger.WithFederate(h).Infow("federate resigned", "action", action)
	return nil
}

// RemoveFederate is the sweep run when a federate's session is lost: it
// cancels its acquisitions, deletes the objects it may delete, divests the
// rest and forgets the federate. Removing an unknown federate is a no-op.
func (e *Execution) RemoveFederate(h types.FederateHandle) {
	defer e.outbox.Flush()
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.members[h]; !ok {
		return
	}
	deleted, err := e.objects.Resign(h, types.ResignCancelThenDeleteThenDivest)
	if err != nil {
		e.logger.WithFederate(h).Errorw("resign sweep failed, divesting", "error", err)
		e.objects.RemoveFederate(h)
	}
	e.leave(h, deleted)
	e.logger.WithFederate(h).Infow("federate removed")
}

func (e *Execution) leave(h types.FederateHandle, deleted []ownership.ObjectInfo) {
	for _, info := range deleted {
		recipients := e.forget(info.Handle, h)
		e.outbox.PostAll(recipients, notify.RemoveObjectInstance{Object: info.Handle})
	}
	for _, feds := range e.known {
		delete(feds, h)
	}
	e.time.RemoveFederate(h)
	e.decl.remove(h)
	delete(e.names, e.members[h].Name)
	delete(e.members, h)
	e.metrics.SetFederates(len(e.members))
}

// forget drops an object from the discovery table and returns the federates
// other than except that knew it, in handle order.
func (e *Execution) forget(object types.ObjectInstanceHandle, except types.FederateHandle) []types.FederateHandle {
	feds := e.known[object]
	delete(e.known, object)
	delete(feds, except)
	return slices.Sorted(maps.Keys(feds))
}

// Member returns a joined federate.
func (e *Execution) Member(h types.FederateHandle) (Member, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.members[h]
	if !ok {
		return Member{}, ErrFederateNotExecutionMember
	}
	return *m, nil
}

// Members returns every joined federate in handle order.
func (e *Execution) Members() []Member {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Member, 0, len(e.members))
	for _, h := range slices.Sorted(maps.Keys(e.members)) {
		out = append(out, *e.members[h])
	}
	return out
}

func (e *Execution) MemberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.members)
}

func (e *Execution) requireMember(h types.FederateHandle) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.members[h]; !ok {
		return ErrFederateNotExecutionMember
	}
	return nil
}

// do runs a federate request, records it and wraps its failure.
func (e *Execution) do(op string, h types.FederateHandle, fn func() error) error {
	err := e.requireMember(h)
	if err == nil {
		err = fn()
	}
	e.metrics.IncrRequest(op, err == nil)
	if err != nil {
		e.logger.Debugw("request failed", "op", op, "federate", h, "error", err)
		return requestError(op, h, err)
	}
	return nil
}
