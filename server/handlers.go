package server

import (
	"fmt"
	"slices"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

type handlerFunc func(s *Session, args Args) (map[string]any, error)

var handlers = map[string]handlerFunc{
	OpJoin:            handleJoin,
	OpResign:          handleResign,
	OpListFederations: handleListFederations,

	OpEnableTimeRegulation:   handleEnableTimeRegulation,
	OpDisableTimeRegulation:  federateOp((*federation.Execution).DisableTimeRegulation),
	OpEnableTimeConstrained:  federateOp((*federation.Execution).EnableTimeConstrained),
	OpDisableTimeConstrained: federateOp((*federation.Execution).DisableTimeConstrained),
	OpModifyLookahead:        handleModifyLookahead,
	OpRequestAdvance:         handleRequestAdvance,
	OpQueryGALT:              handleQueryGALT,
	OpQueryLogicalTime:       handleQueryLogicalTime,
	OpQueryLITS:              handleQueryLITS,
	OpQueryLookahead:         handleQueryLookahead,

	OpPublishObjectClass:          classAttributesOp((*federation.Execution).PublishObjectClass),
	OpUnpublishObjectClass:        classAttributesOp((*federation.Execution).UnpublishObjectClass),
	OpSubscribeObjectClass:        classAttributesOp((*federation.Execution).SubscribeObjectClass),
	OpUnsubscribeObjectClass:      classAttributesOp((*federation.Execution).UnsubscribeObjectClass),
	OpPublishInteractionClass:     interactionOp((*federation.Execution).PublishInteractionClass),
	OpUnpublishInteractionClass:   interactionOp((*federation.Execution).UnpublishInteractionClass),
	OpSubscribeInteractionClass:   interactionOp((*federation.Execution).SubscribeInteractionClass),
	OpUnsubscribeInteractionClass: interactionOp((*federation.Execution).UnsubscribeInteractionClass),

	OpRegisterObjectInstance: handleRegisterObjectInstance,
	OpDeleteObjectInstance:   handleDeleteObjectInstance,
	OpUpdateAttributeValues:  handleUpdateAttributeValues,
	OpSendInteraction:        handleSendInteraction,

	OpUnconditionalDivest:    objectAttributesOp((*federation.Execution).UnconditionalDivest),
	OpConfirmDivest:          objectAttributesOp((*federation.Execution).ConfirmDivest),
	OpCancelNegotiatedDivest: objectAttributesOp((*federation.Execution).CancelNegotiatedDivest),
	OpNegotiatedDivest:       handleNegotiatedDivest,
	OpAcquire:                handleAcquire,
	OpAcquireIfAvailable:     handleAcquireIfAvailable,
	OpCancelAcquire:          handleCancelAcquire,
	OpDivestIfWanted:         handleDivestIfWanted,
	OpQueryOwnership:         handleQueryOwnership,
	OpIsOwnedBy:              handleIsOwnedBy,
}

// Membership

func handleJoin(s *Session, args Args) (map[string]any, error) {
	if s.exec != nil {
		return nil, ErrAlreadyJoined
	}
	fedName, err := args.String("federation")
	if err != nil {
		return nil, err
	}
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}
	fedType, err := args.String("type")
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateName("name", name); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateName("type", fedType); err != nil {
		return nil, err
	}

	exec, rt, err := s.srv.federation(fedName)
	if err != nil {
		return nil, err
	}
	member, err := exec.Join(name, fedType)
	if err != nil {
		return nil, err
	}
	rt.attach(member.Handle, s)
	s.exec, s.router, s.federate = exec, rt, member.Handle
	s.srv.connections.OnJoin(s.id, exec.Name(), member.Handle)
	s.logger.WithFederation(exec.ID()).WithFederate(member.Handle).Infow("Federate joined", "federation_name", exec.Name(), "name", member.Name)

	return map[string]any{
		"federate":      float64(member.Handle),
		"name":          member.Name,
		"federation":    exec.Name(),
		"federation_id": string(exec.ID()),
		"time_domain":   exec.TimeFactory().Domain(),
	}, nil
}

func handleResign(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	name, err := args.String("action")
	if err != nil {
		return nil, err
	}
	action := types.ResignNoAction
	if name != "" {
		var ok bool
		if action, ok = types.ParseResignAction(name); !ok {
			return nil, fmt.Errorf("%w: %q", ownership.ErrInvalidResignAction, name)
		}
	}
	if err := exec.Resign(h, action); err != nil {
		return nil, err
	}
	s.router.detach(h)
	s.exec, s.router, s.federate = nil, nil, 0
	s.logger.Infow("Federate resigned", "federation", exec.Name(), "federate", h, "action", action)
	return nil, nil
}

func handleListFederations(s *Session, _ Args) (map[string]any, error) {
	names := s.srv.registry.Names()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return map[string]any{"federations": out}, nil
}

// Time management

func federateOp(fn func(*federation.Execution, types.FederateHandle) error) handlerFunc {
	return func(s *Session, _ Args) (map[string]any, error) {
		exec, h, err := s.joined()
		if err != nil {
			return nil, err
		}
		return nil, fn(exec, h)
	}
}

func handleEnableTimeRegulation(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	lookahead, err := args.Interval("lookahead", exec.TimeFactory())
	if err != nil {
		return nil, err
	}
	return nil, exec.EnableTimeRegulation(h, lookahead)
}

func handleModifyLookahead(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	lookahead, err := args.Interval("lookahead", exec.TimeFactory())
	if err != nil {
		return nil, err
	}
	return nil, exec.ModifyLookahead(h, lookahead)
}

func handleRequestAdvance(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	if !args.Has("time") {
		return nil, NewValidationError("time", nil, "is required")
	}
	t, err := args.Time("time", exec.TimeFactory())
	if err != nil {
		return nil, err
	}
	modeName, err := args.String("mode")
	if err != nil {
		return nil, err
	}
	mode := timekeeper.ModeExact
	if modeName != "" {
		if mode, err = timekeeper.ParseAdvanceMode(modeName); err != nil {
			return nil, fmt.Errorf("%w: %q", err, modeName)
		}
	}
	return nil, exec.RequestAdvance(h, t, mode)
}

func handleQueryGALT(s *Session, _ Args) (map[string]any, error) {
	exec, _, err := s.joined()
	if err != nil {
		return nil, err
	}
	return map[string]any{"galt": timeValue(exec.QueryGALT())}, nil
}

func handleQueryLogicalTime(s *Session, _ Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	t, err := exec.QueryLogicalTime(h)
	if err != nil {
		return nil, err
	}
	return map[string]any{"time": timeValue(t)}, nil
}

func handleQueryLITS(s *Session, _ Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	t, err := exec.QueryLITS(h)
	if err != nil {
		return nil, err
	}
	return map[string]any{"lits": timeValue(t)}, nil
}

func handleQueryLookahead(s *Session, _ Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	d, err := exec.QueryLookahead(h)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return map[string]any{"lookahead": nil}, nil
	}
	return map[string]any{"lookahead": d.String()}, nil
}

func timeValue(t logicaltime.Time) any {
	if t == nil {
		return nil
	}
	return t.String()
}

// Declarations

func classAttributesOp(fn func(*federation.Execution, types.FederateHandle, types.ObjectClassHandle, []types.AttributeHandle) error) handlerFunc {
	return func(s *Session, args Args) (map[string]any, error) {
		exec, h, err := s.joined()
		if err != nil {
			return nil, err
		}
		class, err := args.Handle("class")
		if err != nil {
			return nil, err
		}
		var attrs []types.AttributeHandle
		if args.Has("attributes") {
			if attrs, err = s.attributes(args); err != nil {
				return nil, err
			}
		}
		return nil, fn(exec, h, types.ObjectClassHandle(class), attrs)
	}
}

func interactionOp(fn func(*federation.Execution, types.FederateHandle, types.InteractionClassHandle) error) handlerFunc {
	return func(s *Session, args Args) (map[string]any, error) {
		exec, h, err := s.joined()
		if err != nil {
			return nil, err
		}
		class, err := args.Handle("class")
		if err != nil {
			return nil, err
		}
		return nil, fn(exec, h, types.InteractionClassHandle(class))
	}
}

// Objects

func handleRegisterObjectInstance(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	class, err := args.Handle("class")
	if err != nil {
		return nil, err
	}
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateName("name", name); err != nil {
		return nil, err
	}
	info, err := exec.RegisterObjectInstance(h, types.ObjectClassHandle(class), name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"object": float64(info.Handle), "name": info.Name}, nil
}

func handleDeleteObjectInstance(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	object, err := args.Handle("object")
	if err != nil {
		return nil, err
	}
	tag, ts, err := s.tagAndTime(exec, args)
	if err != nil {
		return nil, err
	}
	return nil, exec.DeleteObjectInstance(h, types.ObjectInstanceHandle(object), tag, ts)
}

func handleUpdateAttributeValues(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	object, err := args.Handle("object")
	if err != nil {
		return nil, err
	}
	values, err := args.AttributeValues("values")
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateAttributeValues(values); err != nil {
		return nil, err
	}
	tag, ts, err := s.tagAndTime(exec, args)
	if err != nil {
		return nil, err
	}
	return nil, exec.UpdateAttributeValues(h, types.ObjectInstanceHandle(object), values, tag, ts)
}

func handleSendInteraction(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	class, err := args.Handle("class")
	if err != nil {
		return nil, err
	}
	values, err := args.ParameterValues("values")
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateParameterValues(values); err != nil {
		return nil, err
	}
	tag, ts, err := s.tagAndTime(exec, args)
	if err != nil {
		return nil, err
	}
	return nil, exec.SendInteraction(h, types.InteractionClassHandle(class), values, tag, ts)
}

// Ownership

func objectAttributesOp(fn func(*federation.Execution, types.FederateHandle, types.ObjectInstanceHandle, []types.AttributeHandle) error) handlerFunc {
	return func(s *Session, args Args) (map[string]any, error) {
		exec, h, object, attrs, err := s.objectAttributes(args)
		if err != nil {
			return nil, err
		}
		return nil, fn(exec, h, object, attrs)
	}
}

func handleNegotiatedDivest(s *Session, args Args) (map[string]any, error) {
	exec, h, object, attrs, err := s.objectAttributes(args)
	if err != nil {
		return nil, err
	}
	tag, err := s.tag(args)
	if err != nil {
		return nil, err
	}
	waiting, err := exec.NegotiatedDivest(h, object, attrs, tag)
	if err != nil {
		return nil, err
	}
	return map[string]any{"waiting": handleList(waiting)}, nil
}

func handleAcquire(s *Session, args Args) (map[string]any, error) {
	exec, h, object, attrs, err := s.objectAttributes(args)
	if err != nil {
		return nil, err
	}
	tag, err := s.tag(args)
	if err != nil {
		return nil, err
	}
	return nil, exec.Acquire(h, object, attrs, tag)
}

func handleAcquireIfAvailable(s *Session, args Args) (map[string]any, error) {
	exec, h, object, attrs, err := s.objectAttributes(args)
	if err != nil {
		return nil, err
	}
	unavailable, err := exec.AcquireIfAvailable(h, object, attrs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"unavailable": handleList(unavailable)}, nil
}

func handleCancelAcquire(s *Session, args Args) (map[string]any, error) {
	exec, h, object, attrs, err := s.objectAttributes(args)
	if err != nil {
		return nil, err
	}
	cancelled, err := exec.CancelAcquire(h, object, attrs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"cancelled": handleList(cancelled)}, nil
}

func handleDivestIfWanted(s *Session, args Args) (map[string]any, error) {
	exec, h, object, attrs, err := s.objectAttributes(args)
	if err != nil {
		return nil, err
	}
	divested, err := exec.DivestIfWanted(h, object, attrs)
	if err != nil {
		return nil, err
	}
	keys := make([]types.AttributeHandle, 0, len(divested))
	for a := range divested {
		keys = append(keys, a)
	}
	slices.Sort(keys)
	out := make([]any, len(keys))
	for i, a := range keys {
		out[i] = map[string]any{"attribute": float64(a), "owner": float64(divested[a])}
	}
	return map[string]any{"divested": out}, nil
}

func handleQueryOwnership(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	object, attr, err := objectAttribute(args)
	if err != nil {
		return nil, err
	}
	return nil, exec.QueryOwnership(h, object, attr)
}

func handleIsOwnedBy(s *Session, args Args) (map[string]any, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, err
	}
	object, attr, err := objectAttribute(args)
	if err != nil {
		return nil, err
	}
	owned, err := exec.IsOwnedBy(h, object, attr)
	if err != nil {
		return nil, err
	}
	return map[string]any{"owned": owned}, nil
}

// Argument helpers

func (s *Session) attributes(args Args) ([]types.AttributeHandle, error) {
	raw, err := args.Handles("attributes")
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateHandles("attributes", raw); err != nil {
		return nil, err
	}
	out := make([]types.AttributeHandle, len(raw))
	for i, h := range raw {
		out[i] = types.AttributeHandle(h)
	}
	return out, nil
}

func (s *Session) objectAttributes(args Args) (*federation.Execution, types.FederateHandle, types.ObjectInstanceHandle, []types.AttributeHandle, error) {
	exec, h, err := s.joined()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	object, err := args.Handle("object")
	if err != nil {
		return nil, 0, 0, nil, err
	}
	attrs, err := s.attributes(args)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	return exec, h, types.ObjectInstanceHandle(object), attrs, nil
}

func objectAttribute(args Args) (types.ObjectInstanceHandle, types.AttributeHandle, error) {
	object, err := args.Handle("object")
	if err != nil {
		return 0, 0, err
	}
	attr, err := args.Handle("attribute")
	if err != nil {
		return 0, 0, err
	}
	return types.ObjectInstanceHandle(object), types.AttributeHandle(attr), nil
}

func (s *Session) tag(args Args) ([]byte, error) {
	tag, err := args.Bytes("tag")
	if err != nil {
		return nil, err
	}
	return tag, s.validator.ValidateTag(tag)
}

func (s *Session) tagAndTime(exec *federation.Execution, args Args) ([]byte, logicaltime.Time, error) {
	tag, err := s.tag(args)
	if err != nil {
		return nil, nil, err
	}
	ts, err := args.Time("time", exec.TimeFactory())
	if err != nil {
		return nil, nil, err
	}
	return tag, ts, nil
}
