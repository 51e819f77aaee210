// Package ownership tracks which federate owns each attribute of each object
// instance and negotiates transfers between them.
//
// Every attribute has at most one owner and a FIFO line of federates waiting
// to acquire it. Transfers always serve the line in arrival order.
package ownership

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// Manager is the object registry of one federation execution.
//
// The registry lock only guards the handle and name maps. Ownership
// operations take one object lock at a time and never hold the registry lock
// while doing so, so unrelated objects never contend.
type Manager struct {
	mu sync.RWMutex

	catalog Catalog
	outbox  *notify.Outbox
	logger  logger.Logger
	metrics Metrics

	objects    map[types.ObjectInstanceHandle]*ObjectInstance
	names      map[string]types.ObjectInstanceHandle
	lastHandle types.ObjectInstanceHandle
}

// NewManager creates an empty registry validating against catalog. Callbacks
// are posted to outbox; a nil outbox discards them.
func NewManager(catalog Catalog, outbox *notify.Outbox, opts ...Option) *Manager {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if outbox == nil {
		outbox = notify.NewOutbox(nil)
	}
	return &Manager{
		catalog: catalog,
		outbox:  outbox,
		logger:  cfg.Logger.WithComponent("ownership"),
		metrics: cfg.Metrics,
		objects: make(map[types.ObjectInstanceHandle]*ObjectInstance),
		names:   make(map[string]types.ObjectInstanceHandle),
	}
}

// Register creates an object instance of class. The registering federate
// owns the published attributes and the privilege to delete the object. An
// empty name is replaced by a generated one.
func (m *Manager) Register(registrant types.FederateHandle, class types.ObjectClassHandle, published []types.AttributeHandle, name string) (ObjectInfo, error) {
	if !m.catalog.IsValidObjectClass(class) {
		return ObjectInfo{}, fmt.Errorf("%w: %d", ErrObjectClassNotDefined, class)
	}
	published = types.UniqueAttributes(published)
	for _, a := range published {
		if !m.catalog.IsValidAttribute(class, a) {
			return ObjectInfo{}, fmt.Errorf("%w: attribute %d of class %d", ErrAttributeNotDefined, a, class)
		}
	}
	if strings.HasPrefix(name, "HLA") {
		return ObjectInfo{}, fmt.Errorf("%w: %q", ErrIllegalName, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.names[name]; taken && name != "" {
		return ObjectInfo{}, fmt.Errorf("%w: %q", ErrObjectInstanceNameInUse, name)
	}
	m.lastHandle++
	handle := m.lastHandle
	if name == "" {
		name = fmt.Sprintf("HLAobject%d", handle)
	}

	o := &ObjectInstance{
		info:       ObjectInfo{Handle: handle, Class: class, Name: name, Registrant: registrant},
		catalog:    m.catalog,
		outbox:     m.outbox,
		logger:     m.logger,
		metrics:    m.metrics,
		mu:         newFairMutex(),
		attributes: make(map[types.AttributeHandle]*attributeInstance),
	}
	o.record(types.PrivilegeToDeleteAttribute).owner = registrant
	for _, a := range published {
		o.record(a).owner = registrant
	}

	m.objects[handle] = o
	m.names[name] = handle
	m.metrics.SetObjects(len(m.objects))
	m.logger.Infow("object registered", "object", handle, "class", class, "name", name, "federate", registrant)
	return o.info, nil
}

// Object returns a registered object instance.
func (m *Manager) Object(handle types.ObjectInstanceHandle) (*ObjectInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrObjectInstanceNotKnown, handle)
	}
	return o, nil
}

// ObjectByName looks an object instance up by its name.
func (m *Manager) ObjectByName(name string) (*ObjectInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrObjectInstanceNotKnown, name)
	}
	return m.objects[h], nil
}

// Objects returns every registered object instance in handle order.
func (m *Manager) Objects() []ObjectInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ObjectInfo, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o.info)
	}
	slices.SortFunc(out, func(a, b ObjectInfo) int { return cmp.Compare(a.Handle, b.Handle) })
	return out
}

func (m *Manager) instances() []*ObjectInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ObjectInstance, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *ObjectInstance) int { return cmp.Compare(a.info.Handle, b.info.Handle) })
	return out
}

// Delete removes an object instance. The caller must own its privilege to delete.
func (m *Manager) Delete(h types.FederateHandle, handle types.ObjectInstanceHandle) (ObjectInfo, error) {
	o, err := m.Object(handle)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := o.markDeleted(h); err != nil {
		return ObjectInfo{}, err
	}
	m.forget(o)
	m.logger.Infow("object deleted", "object", handle, "federate", h)
	return o.info, nil
}

func (m *Manager) forget(o *ObjectInstance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, o.info.Handle)
	delete(m.names, o.info.Name)
	m.metrics.SetObjects(len(m.objects))
}

func (m *Manager) UnconditionalDivest(owner types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	o, err := m.Object(object)
	if err != nil {
		return err
	}
	return o.UnconditionalDivest(owner, attrs)
}

func (m *Manager) NegotiatedDivest(owner types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle, tag []byte) ([]types.AttributeHandle, error) {
	o, err := m.Object(object)
	if err != nil {
		return nil, err
	}
	return o.NegotiatedDivest(owner, attrs, tag)
}

func (m *Manager) ConfirmDivest(owner types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	o, err := m.Object(object)
	if err != nil {
		return err
	}
	return o.ConfirmDivest(owner, attrs)
}

func (m *Manager) AcquireIfAvailable(requester types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) ([]types.AttributeHandle, error) {
	o, err := m.Object(object)
	if err != nil {
		return nil, err
	}
	return o.AcquireIfAvailable(requester, attrs)
}

func (m *Manager) Acquire(requester types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle, tag []byte) error {
	o, err := m.Object(object)
	if err != nil {
		return err
	}
	return o.Acquire(requester, attrs, tag)
}

func (m *Manager) CancelAcquire(requester types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) ([]types.AttributeHandle, error) {
	o, err := m.Object(object)
	if err != nil {
		return nil, err
	}
	return o.CancelAcquire(requester, attrs)
}

func (m *Manager) CancelNegotiatedDivest(owner types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	o, err := m.Object(object)
	if err != nil {
		return err
	}
	return o.CancelNegotiatedDivest(owner, attrs)
}

func (m *Manager) DivestIfWanted(owner types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) (map[types.AttributeHandle]types.FederateHandle, error) {
	o, err := m.Object(object)
	if err != nil {
		return nil, err
	}
	return o.DivestIfWanted(owner, attrs)
}

func (m *Manager) QueryOwnership(object types.ObjectInstanceHandle, attr types.AttributeHandle) (types.FederateHandle, bool, error) {
	o, err := m.Object(object)
	if err != nil {
		return types.NoFederate, false, err
	}
	return o.QueryOwnership(attr)
}

func (m *Manager) IsOwnedBy(object types.ObjectInstanceHandle, attr types.AttributeHandle, h types.FederateHandle) bool {
	o, err := m.Object(object)
	if err != nil {
		return false
	}
	return o.IsOwnedBy(attr, h)
}

// RemoveFederate is the departure sweep: h leaves every acquisition line and
// everything it owns passes to the next in line. Calling it again is a no-op.
func (m *Manager) RemoveFederate(h types.FederateHandle) {
	left, divested := 0, 0
	for _, o := range m.instances() {
		left += o.leaveLines(h)
		divested += o.divestOwned(h)
	}
	if left > 0 || divested > 0 {
		m.logger.WithFederate(h).Infow("federate removed from ownership", "lines", left, "divested", divested)
	}
}

// Resign applies a resign action for h and returns the objects it deleted.
//
// The action must leave h neither waiting in an acquisition line
// (ErrOwnershipAcquisitionPending) nor owning attributes
// (ErrFederateOwnsAttributes); nothing is changed when it would.
func (m *Manager) Resign(h types.FederateHandle, action types.ResignAction) ([]ObjectInfo, error) {
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResignAction, action)
	}

	objects := m.instances()
	var ownsErr error
	for _, o := range objects {
		owns, waiting, mayDelete := o.status(h)
		if waiting && !action.CancelsAcquisitions() {
			return nil, fmt.Errorf("%w: object %d", ErrOwnershipAcquisitionPending, o.info.Handle)
		}
		if ownsErr == nil && owns && !action.DivestsAttributes() && !(action.DeletesObjects() && mayDelete) {
			ownsErr = fmt.Errorf("%w: object %d", ErrFederateOwnsAttributes, o.info.Handle)
		}
	}
	if ownsErr != nil {
		return nil, ownsErr
	}

	if action.CancelsAcquisitions() {
		for _, o := range objects {
			o.leaveLines(h)
		}
	}
	var deleted []ObjectInfo
	if action.DeletesObjects() {
		for _, o := range objects {
			if o.markDeleted(h) == nil {
				m.forget(o)
				deleted = append(deleted, o.info)
			}
		}
	}
	if action.DivestsAttributes() {
		for _, o := range objects {
			o.divestOwned(h)
		}
	}
	m.logger.WithFederate(h).Infow("federate resigned from ownership", "action", action, "deleted", len(deleted))
	return deleted, nil
}
