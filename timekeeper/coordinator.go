package timekeeper

import (
	"fmt"
	"sync"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// Coordinator is the TimeCoordinator of one federation execution.
type Coordinator struct {
	mu sync.RWMutex

	factory       logicaltime.Factory
	outbox        *notify.Outbox
	logger        logger.Logger
	metrics       Metrics
	broadcastGALT bool

	galt        logicaltime.Time
	federates   map[types.FederateHandle]*federateClock
	regulating  map[types.FederateHandle]*regulatingFederate
	constrained map[types.FederateHandle]*constrainedFederate

	heldSeq uint64
}

// FederateState is a point-in-time view of one federate's time state.
type FederateState struct {
	Time        logicaltime.Time
	LITS        logicaltime.Time     // nil unless regulating
	Lookahead   logicaltime.Interval // nil unless regulating
	Regulating  bool
	Constrained bool
	Advancing   bool
	Requested   logicaltime.Time // nil unless advancing
	Held        int
}

// NewCoordinator creates a coordinator for the given time domain. Callbacks
// are posted to outbox; a nil outbox discards them.
func NewCoordinator(factory logicaltime.Factory, outbox *notify.Outbox, opts ...Option) *Coordinator {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if outbox == nil {
		outbox = notify.NewOutbox(nil)
	}
	return &Coordinator{
		factory:       factory,
		outbox:        outbox,
		logger:        cfg.Logger.WithComponent("timekeeper"),
		metrics:       cfg.Metrics,
		broadcastGALT: cfg.BroadcastGALT,
		galt:          factory.Final(),
		federates:     make(map[types.FederateHandle]*federateClock),
		regulating:    make(map[types.FederateHandle]*regulatingFederate),
		constrained:   make(map[types.FederateHandle]*constrainedFederate),
	}
}

func (c *Coordinator) AddFederate(h types.FederateHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.federates[h]; ok {
		return
	}
	c.federates[h] = &federateClock{handle: h, time: c.factory.Initial()}
	c.logger.WithFederate(h).Debugw("federate added")
}

func (c *Coordinator) RemoveFederate(h types.FederateHandle) {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.federates[h]; !ok {
		return
	}
	_, wasRegulating := c.regulating[h]

	delete(c.federates, h)
	delete(c.regulating, h)
	delete(c.constrained, h)
	c.reportRoles()

	if wasRegulating {
		c.recomputeGALT()
	}
	c.settle()
	c.logger.WithFederate(h).Infow("federate removed", "galt", c.galt)
}

func (c *Coordinator) EnableTimeRegulation(h types.FederateHandle, lookahead logicaltime.Interval) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.federate(h)
	if err != nil {
		return err
	}
	if _, ok := c.regulating[h]; ok {
		return ErrTimeRegulationAlreadyEnabled
	}
	if f.enablingConstrained {
		return ErrRequestInProgress
	}
	if f.advancing() {
		return ErrInTimeAdvancingState
	}
	if !logicaltime.IsPositive(lookahead) {
		return fmt.Errorf("%w: lookahead must be positive, got %v", ErrInvalidLookahead, lookahead)
	}

	f.time = c.regulationSeed(f.time, lookahead)
	r := &regulatingFederate{clock: f, lookahead: lookahead}
	r.refresh(c.factory.Final())
	c.regulating[h] = r
	c.reportRoles()

	c.recomputeGALT()
	c.outbox.Post(h, notify.TimeRegulationEnabled{Time: f.time})
	c.logger.WithFederate(h).Infow("time regulation enabled", "time", f.time, "lookahead", lookahead, "lits", r.lits)
	c.settle()
	return nil
}

// regulationSeed picks the time a newly regulating federate starts from: its
// current time, raised so that its LITS is not below the current GALT. When no
// federate regulates yet, the latest constrained federate time stands in for
// GALT so that no constrained federate is left beyond the new bound.
func (c *Coordinator) regulationSeed(current logicaltime.Time, lookahead logicaltime.Interval) logicaltime.Time {
	bound := c.galt
	if bound.IsFinal() {
		bound = nil
		for _, k := range c.constrained {
			if bound == nil || logicaltime.Before(bound, k.clock.time) {
				bound = k.clock.time
			}
		}
	}
	if bound == nil {
		return current
	}
	lower, err := bound.Sub(lookahead)
	if err != nil {
		// bound is closer to the initial time than the lookahead: any time
		// already yields a LITS beyond it.
		return current
	}
	return logicaltime.Max(current, lower)
}

func (c *Coordinator) DisableTimeRegulation(h types.FederateHandle) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.federate(h)
	if err != nil {
		return err
	}
	if _, ok := c.regulating[h]; !ok {
		return ErrTimeRegulationNotEnabled
	}
	if f.enablingConstrained {
		return ErrRequestInProgress
	}

	delete(c.regulating, h)
	c.reportRoles()
	c.recomputeGALT()
	c.logger.WithFederate(h).Infow("time regulation disabled", "galt", c.galt)
	c.settle()
	return nil
}

func (c *Coordinator) EnableTimeConstrained(h types.FederateHandle) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.federate(h)
	if err != nil {
		return err
	}
	if _, ok := c.constrained[h]; ok {
		return ErrTimeConstrainedAlreadyEnabled
	}
	if f.enablingConstrained {
		return ErrRequestInProgress
	}
	if f.advancing() {
		return ErrInTimeAdvancingState
	}

	if logicaltime.AtOrBefore(f.time, c.galt) {
		c.completeConstrained(f)
		c.settle()
		return nil
	}
	f.enablingConstrained = true
	c.logger.WithFederate(h).Debugw("time constrained pending", "time", f.time, "galt", c.galt)
	return nil
}

// completeConstrained makes f constrained at the current GALT. A federate
// behind a bounded GALT is moved up to it; with no regulator it keeps its time.
func (c *Coordinator) completeConstrained(f *federateClock) {
	f.enablingConstrained = false
	seeded := !c.galt.IsFinal() && logicaltime.Before(f.time, c.galt)
	if seeded {
		f.time = c.galt
	}
	c.constrained[f.handle] = &constrainedFederate{clock: f}
	c.reportRoles()
	c.outbox.Post(f.handle, notify.TimeConstrainedEnabled{Time: f.time})
	c.logger.WithFederate(f.handle).Infow("time constrained enabled", "time", f.time, "galt", c.galt)

	if r, ok := c.regulating[f.handle]; ok && seeded {
		// A later base only raises this federate's LITS, so GALT cannot drop.
		r.refresh(c.factory.Final())
		c.recomputeGALT()
	}
}

func (c *Coordinator) DisableTimeConstrained(h types.FederateHandle) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.federate(h)
	if err != nil {
		return err
	}
	if f.enablingConstrained {
		f.enablingConstrained = false
		c.logger.WithFederate(h).Debugw("pending time constrained cancelled")
		return nil
	}
	if _, ok := c.constrained[h]; !ok {
		return ErrTimeConstrainedNotEnabled
	}

	delete(c.constrained, h)
	c.reportRoles()

	released := f.held.drainByArrival()
	for _, m := range released {
		c.outbox.Post(h, m.n)
	}
	c.metrics.IncrReleasedMessages(len(released))
	c.logger.WithFederate(h).Infow("time constrained disabled", "released", len(released))

	c.settle()
	return nil
}

func (c *Coordinator) ModifyLookahead(h types.FederateHandle, lookahead logicaltime.Interval) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.federate(h)
	if err != nil {
		return err
	}
	r, ok := c.regulating[h]
	if !ok {
		return ErrTimeRegulationNotEnabled
	}
	if f.enablingConstrained {
		return ErrRequestInProgress
	}
	if f.advancing() {
		return ErrInTimeAdvancingState
	}
	if !logicaltime.IsPositive(lookahead) {
		return fmt.Errorf("%w: lookahead must be positive, got %v", ErrInvalidLookahead, lookahead)
	}
	lits := logicaltime.AddOrFinal(f.time, lookahead, c.factory.Final())
	if logicaltime.Before(lits, c.galt) {
		return fmt.Errorf("%w: lookahead %v would lower LITS to %v, below GALT %v",
			ErrInvalidLookahead, lookahead, lits, c.galt)
	}

	r.lookahead = lookahead
	r.refresh(c.factory.Final())
	c.recomputeGALT()
	c.logger.WithFederate(h).Debugw("lookahead modified", "lookahead", lookahead, "lits", r.lits)
	c.settle()
	return nil
}

func (c *Coordinator) RequestAdvance(h types.FederateHandle, t logicaltime.Time, mode AdvanceMode) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.requestAdvance(h, t, mode)
	c.metrics.IncrAdvanceRequest(mode, err == nil)
	return err
}

func (c *Coordinator) requestAdvance(h types.FederateHandle, t logicaltime.Time, mode AdvanceMode) error {
	if !mode.IsValid() {
		return ErrInvalidAdvanceMode
	}
	f, err := c.federate(h)
	if err != nil {
		return err
	}
	if f.enablingConstrained {
		return ErrRequestInProgress
	}
	if f.advancing() {
		return ErrInTimeAdvancingState
	}
	if logicaltime.AtOrBefore(t, f.time) {
		return fmt.Errorf("%w: requested %v, federate is at %v", ErrLogicalTimeAlreadyPassed, t, f.time)
	}

	f.pending = &advanceRequest{requested: t, target: t, mode: mode}
	if mode.isNextMessage() {
		if e := f.held.earliest(); e != nil && logicaltime.Before(e, t) {
			f.pending.target = logicaltime.Max(e, f.time)
		}
	}
	c.logger.Debugw("advance requested",
		"federate", h, "mode", mode, "requested", t, "target", f.pending.target, "galt", c.galt)

	if r, ok := c.regulating[h]; ok {
		r.refresh(c.factory.Final())
		c.recomputeGALT()
	}
	if mode == ModeFlush {
		c.grant(f)
	}
	c.settle()
	return nil
}

func (c *Coordinator) Dispatch(sender types.FederateHandle, recipients []types.FederateHandle, ts logicaltime.Time, build MessageBuilder) error {
	defer c.outbox.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.federate(sender); err != nil {
		return err
	}

	tso := false
	if ts != nil {
		if r, ok := c.regulating[sender]; ok {
			if logicaltime.Before(ts, r.lits) {
				return fmt.Errorf("%w: timestamp %v is before LITS %v", ErrInvalidLogicalTime, ts, r.lits)
			}
			tso = true
		}
	}

	var roMsg, tsoMsg notify.Notification
	held := 0
	for _, h := range recipients {
		if h == sender {
			continue
		}
		f, ok := c.federates[h]
		if !ok {
			continue
		}
		if _, constrained := c.constrained[h]; !tso || !constrained {
			if roMsg == nil {
				roMsg = build(types.OrderReceive)
			}
			c.outbox.Post(h, roMsg)
			continue
		}

		if tsoMsg == nil {
			tsoMsg = build(types.OrderTimestamp)
		}
		c.heldSeq++
		f.held.push(&heldMessage{time: ts, seq: c.heldSeq, n: tsoMsg})
		held++

		// A pending next-message request now stops at this message instead.
		if p := f.pending; p != nil && p.mode.isNextMessage() && logicaltime.Before(ts, p.target) {
			p.target = logicaltime.Max(ts, f.time)
			if r, ok := c.regulating[h]; ok {
				r.refresh(c.factory.Final())
				c.recomputeGALT()
			}
		}
	}
	if held > 0 {
		c.metrics.IncrHeldMessages(held)
	}
	c.settle()
	return nil
}

// recomputeGALT sets GALT to the minimum LITS over regulating federates, or
// to the final time when there are none.
func (c *Coordinator) recomputeGALT() {
	next := c.factory.Final()
	for _, r := range c.regulating {
		next = logicaltime.Min(next, r.lits)
	}

	cmp := next.Compare(c.galt)
	if cmp == 0 {
		return
	}
	// The only backwards step is the first regulator bounding an unbounded GALT.
	assertInvariant(cmp > 0 || c.galt.IsFinal(), "GALT moved backwards from %v to %v", c.galt, next)

	prev := c.galt
	c.galt = next
	c.metrics.ObserveGALT(next)
	c.logger.Debugw("GALT changed", "from", prev, "to", next)

	if cmp > 0 && c.broadcastGALT {
		c.outbox.PostAll(types.SortedFederates(c.federates), notify.GALTAdvanced{GALT: next})
	}
}

// settle completes every pending enable and grant the current GALT allows,
// in federate-handle order. Completing an enable can raise GALT, so passes
// repeat until one makes no progress.
func (c *Coordinator) settle() {
	for progressed := true; progressed; {
		progressed = false
		for _, h := range types.SortedFederates(c.federates) {
			f := c.federates[h]
			switch {
			case f.enablingConstrained:
				if logicaltime.AtOrBefore(f.time, c.galt) {
					c.completeConstrained(f)
					progressed = true
				}
			case f.pending != nil:
				if c.eligible(f) {
					c.grant(f)
					progressed = true
				}
			}
		}
	}
}

func (c *Coordinator) eligible(f *federateClock) bool {
	if _, ok := c.constrained[f.handle]; !ok {
		return true
	}
	return logicaltime.AtOrBefore(f.pending.target, c.galt)
}

// grant completes f's pending advance: held messages the mode allows are
// released in timestamp order, followed by the TimeAdvanceGrant.
func (c *Coordinator) grant(f *federateClock) {
	req := f.pending
	g := req.target

	var keep func(logicaltime.Time) bool
	switch {
	case req.mode == ModeFlush:
		keep = func(logicaltime.Time) bool { return true }
	case req.mode.isAvailable() || logicaltime.Before(g, c.galt):
		// Below GALT no further message stamped g can arrive.
		keep = func(ts logicaltime.Time) bool { return logicaltime.AtOrBefore(ts, g) }
	default:
		keep = func(ts logicaltime.Time) bool { return logicaltime.Before(ts, g) }
	}
	released := f.held.popWhile(keep)
	for _, m := range released {
		c.outbox.Post(f.handle, m.n)
	}
	if len(released) > 0 {
		c.metrics.IncrReleasedMessages(len(released))
	}

	assertInvariant(logicaltime.AtOrBefore(f.time, g), "grant to %v moves %v backwards from %v", g, f.handle, f.time)
	f.time = g
	f.pending = nil
	if r, ok := c.regulating[f.handle]; ok {
		r.refresh(c.factory.Final())
	}

	c.outbox.Post(f.handle, notify.TimeAdvanceGrant{Time: g})
	c.metrics.IncrGrant(req.mode)
	c.logger.WithFederate(f.handle).Debugw("advance granted", "time", g, "mode", req.mode, "released", len(released))
}

func (c *Coordinator) federate(h types.FederateHandle) (*federateClock, error) {
	f, ok := c.federates[h]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrFederateNotJoined, h)
	}
	return f, nil
}

func (c *Coordinator) reportRoles() {
	c.metrics.SetRegulating(len(c.regulating))
	c.metrics.SetConstrained(len(c.constrained))
}

func (c *Coordinator) GALT() logicaltime.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.galt
}

func (c *Coordinator) FederateTime(h types.FederateHandle) (logicaltime.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, err := c.federate(h)
	if err != nil {
		return nil, err
	}
	return f.time, nil
}

// LITS returns the federate's least incoming time stamp.
func (c *Coordinator) LITS(h types.FederateHandle) (logicaltime.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, err := c.federate(h); err != nil {
		return nil, err
	}
	r, ok := c.regulating[h]
	if !ok {
		return nil, ErrTimeRegulationNotEnabled
	}
	return r.lits, nil
}

func (c *Coordinator) Lookahead(h types.FederateHandle) (logicaltime.Interval, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, err := c.federate(h); err != nil {
		return nil, err
	}
	r, ok := c.regulating[h]
	if !ok {
		return nil, ErrTimeRegulationNotEnabled
	}
	return r.lookahead, nil
}

func (c *Coordinator) IsRegulating(h types.FederateHandle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.regulating[h]
	return ok
}

func (c *Coordinator) IsConstrained(h types.FederateHandle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.constrained[h]
	return ok
}

func (c *Coordinator) IsAdvancing(h types.FederateHandle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.federates[h]
	return ok && f.advancing()
}

// State returns a snapshot of the federate's time state.
func (c *Coordinator) State(h types.FederateHandle) (FederateState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, err := c.federate(h)
	if err != nil {
		return FederateState{}, err
	}
	st := FederateState{
		Time:      f.time,
		Advancing: f.advancing(),
		Held:      f.held.Len(),
	}
	if f.pending != nil {
		st.Requested = f.pending.requested
	}
	if r, ok := c.regulating[h]; ok {
		st.Regulating = true
		st.LITS = r.lits
		st.Lookahead = r.lookahead
	}
	_, st.Constrained = c.constrained[h]
	return st, nil
}
