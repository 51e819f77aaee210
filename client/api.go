package client

import (
	"context"
	"encoding/base64"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jathurchan/rtiexec/server"
	"github.com/jathurchan/rtiexec/types"
)

// Logical times and intervals are passed as strings in the federation's time
// domain ("10", "2.5"). An empty timestamp sends in receive order.

// JoinResult describes the federate created by Join.
type JoinResult struct {
	Federate     types.FederateHandle
	Name         string
	Federation   string
	FederationID string
	TimeDomain   string
}

// Join joins a federation. An empty federation name selects the executor's
// only federation; an empty name lets the executor pick one.
func (f *Federate) Join(ctx context.Context, federation, name, federateType string) (JoinResult, error) {
	res, err := f.call(ctx, server.OpJoin, map[string]any{
		"federation": federation,
		"name":       name,
		"type":       federateType,
	})
	if err != nil {
		return JoinResult{}, err
	}
	fields := res.GetFields()
	return JoinResult{
		Federate:     types.FederateHandle(fields["federate"].GetNumberValue()),
		Name:         fields["name"].GetStringValue(),
		Federation:   fields["federation"].GetStringValue(),
		FederationID: fields["federation_id"].GetStringValue(),
		TimeDomain:   fields["time_domain"].GetStringValue(),
	}, nil
}

// Resign leaves the federation applying action. The session stays open and
// may join again.
func (f *Federate) Resign(ctx context.Context, action types.ResignAction) error {
	_, err := f.call(ctx, server.OpResign, map[string]any{"action": action.String()})
	return err
}

func (f *Federate) ListFederations(ctx context.Context) ([]string, error) {
	res, err := f.call(ctx, server.OpListFederations, nil)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range res.GetFields()["federations"].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out, nil
}

// Time management

func (f *Federate) EnableTimeRegulation(ctx context.Context, lookahead string) error {
	_, err := f.call(ctx, server.OpEnableTimeRegulation, map[string]any{"lookahead": lookahead})
	return err
}

func (f *Federate) DisableTimeRegulation(ctx context.Context) error {
	_, err := f.call(ctx, server.OpDisableTimeRegulation, nil)
	return err
}

func (f *Federate) EnableTimeConstrained(ctx context.Context) error {
	_, err := f.call(ctx, server.OpEnableTimeConstrained, nil)
	return err
}

func (f *Federate) DisableTimeConstrained(ctx context.Context) error {
	_, err := f.call(ctx, server.OpDisableTimeConstrained, nil)
	return err
}

func (f *Federate) ModifyLookahead(ctx context.Context, lookahead string) error {
	_, err := f.call(ctx, server.OpModifyLookahead, map[string]any{"lookahead": lookahead})
	return err
}

// RequestAdvance asks for a grant to t. mode is an advance mode name such as
// "Exact" or "NextMessage"; empty means Exact.
func (f *Federate) RequestAdvance(ctx context.Context, t, mode string) error {
	_, err := f.call(ctx, server.OpRequestAdvance, map[string]any{"time": t, "mode": mode})
	return err
}

func (f *Federate) QueryGALT(ctx context.Context) (string, error) {
	return f.queryString(ctx, server.OpQueryGALT, "galt")
}

func (f *Federate) QueryLogicalTime(ctx context.Context) (string, error) {
	return f.queryString(ctx, server.OpQueryLogicalTime, "time")
}

// QueryLITS returns "" when the federate is not regulating.
func (f *Federate) QueryLITS(ctx context.Context) (string, error) {
	return f.queryString(ctx, server.OpQueryLITS, "lits")
}

func (f *Federate) QueryLookahead(ctx context.Context) (string, error) {
	return f.queryString(ctx, server.OpQueryLookahead, "lookahead")
}

func (f *Federate) queryString(ctx context.Context, op, key string) (string, error) {
	res, err := f.call(ctx, op, nil)
	if err != nil {
		return "", err
	}
	return res.GetFields()[key].GetStringValue(), nil
}

// Declarations

func (f *Federate) PublishObjectClass(ctx context.Context, class types.ObjectClassHandle, attrs ...types.AttributeHandle) error {
	return f.classAttributes(ctx, server.OpPublishObjectClass, class, attrs)
}

// UnpublishObjectClass with no attributes unpublishes the whole class.
func (f *Federate) UnpublishObjectClass(ctx context.Context, class types.ObjectClassHandle, attrs ...types.AttributeHandle) error {
	return f.classAttributes(ctx, server.OpUnpublishObjectClass, class, attrs)
}

func (f *Federate) SubscribeObjectClass(ctx context.Context, class types.ObjectClassHandle, attrs ...types.AttributeHandle) error {
	return f.classAttributes(ctx, server.OpSubscribeObjectClass, class, attrs)
}

// UnsubscribeObjectClass with no attributes unsubscribes the whole class.
func (f *Federate) UnsubscribeObjectClass(ctx context.Context, class types.ObjectClassHandle, attrs ...types.AttributeHandle) error {
	return f.classAttributes(ctx, server.OpUnsubscribeObjectClass, class, attrs)
}

func (f *Federate) classAttributes(ctx context.Context, op string, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	args := map[string]any{"class": float64(class)}
	if len(attrs) > 0 {
		args["attributes"] = handles(attrs)
	}
	_, err := f.call(ctx, op, args)
	return err
}

func (f *Federate) PublishInteractionClass(ctx context.Context, class types.InteractionClassHandle) error {
	_, err := f.call(ctx, server.OpPublishInteractionClass, map[string]any{"class": float64(class)})
	return err
}

func (f *Federate) UnpublishInteractionClass(ctx context.Context, class types.InteractionClassHandle) error {
	_, err := f.call(ctx, server.OpUnpublishInteractionClass, map[string]any{"class": float64(class)})
	return err
}

func (f *Federate) SubscribeInteractionClass(ctx context.Context, class types.InteractionClassHandle) error {
	_, err := f.call(ctx, server.OpSubscribeInteractionClass, map[string]any{"class": float64(class)})
	return err
}

func (f *Federate) UnsubscribeInteractionClass(ctx context.Context, class types.InteractionClassHandle) error {
	_, err := f.call(ctx, server.OpUnsubscribeInteractionClass, map[string]any{"class": float64(class)})
	return err
}

// Objects

func (f *Federate) RegisterObjectInstance(ctx context.Context, class types.ObjectClassHandle, name string) (types.ObjectInstanceHandle, error) {
	res, err := f.call(ctx, server.OpRegisterObjectInstance, map[string]any{"class": float64(class), "name": name})
	if err != nil {
		return 0, err
	}
	return types.ObjectInstanceHandle(res.GetFields()["object"].GetNumberValue()), nil
}

func (f *Federate) DeleteObjectInstance(ctx context.Context, object types.ObjectInstanceHandle, tag []byte, ts string) error {
	args := map[string]any{"object": float64(object)}
	addTagAndTime(args, tag, ts)
	_, err := f.call(ctx, server.OpDeleteObjectInstance, args)
	return err
}

func (f *Federate) UpdateAttributeValues(ctx context.Context, object types.ObjectInstanceHandle, values []types.AttributeValue, tag []byte, ts string) error {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = map[string]any{"attribute": float64(v.Attribute), "value": base64.StdEncoding.EncodeToString(v.Value)}
	}
	args := map[string]any{"object": float64(object), "values": list}
	addTagAndTime(args, tag, ts)
	_, err := f.call(ctx, server.OpUpdateAttributeValues, args)
	return err
}

func (f *Federate) SendInteraction(ctx context.Context, class types.InteractionClassHandle, values []types.ParameterValue, tag []byte, ts string) error {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = map[string]any{"parameter": float64(v.Parameter), "value": base64.StdEncoding.EncodeToString(v.Value)}
	}
	args := map[string]any{"class": float64(class), "values": list}
	addTagAndTime(args, tag, ts)
	_, err := f.call(ctx, server.OpSendInteraction, args)
	return err
}

// Ownership

func (f *Federate) UnconditionalDivest(ctx context.Context, object types.ObjectInstanceHandle, attrs ...types.AttributeHandle) error {
	_, err := f.objectAttributes(ctx, server.OpUnconditionalDivest, object, attrs, nil)
	return err
}

// NegotiatedDivest returns the attributes acquirers already wait for.
func (f *Federate) NegotiatedDivest(ctx context.Context, object types.ObjectInstanceHandle, tag []byte, attrs ...types.AttributeHandle) ([]types.AttributeHandle, error) {
	res, err := f.objectAttributes(ctx, server.OpNegotiatedDivest, object, attrs, tag)
	if err != nil {
		return nil, err
	}
	return attributeList(res, "waiting"), nil
}

func (f *Federate) ConfirmDivest(ctx context.Context, object types.ObjectInstanceHandle, attrs ...types.AttributeHandle) error {
	_, err := f.objectAttributes(ctx, server.OpConfirmDivest, object, attrs, nil)
	return err
}

func (f *Federate) Acquire(ctx context.Context, object types.ObjectInstanceHandle, tag []byte, attrs ...types.AttributeHandle) error {
	_, err := f.objectAttributes(ctx, server.OpAcquire, object, attrs, tag)
	return err
}

// AcquireIfAvailable returns the attributes that were not available.
func (f *Federate) AcquireIfAvailable(ctx context.Context, object types.ObjectInstanceHandle, attrs ...types.AttributeHandle) ([]types.AttributeHandle, error) {
	res, err := f.objectAttributes(ctx, server.OpAcquireIfAvailable, object, attrs, nil)
	if err != nil {
		return nil, err
	}
	return attributeList(res, "unavailable"), nil
}

// CancelAcquire returns the attributes whose acquisition was cancelled.
func (f *Federate) CancelAcquire(ctx context.Context, object types.ObjectInstanceHandle, attrs ...types.AttributeHandle) ([]types.AttributeHandle, error) {
	res, err := f.objectAttributes(ctx, server.OpCancelAcquire, object, attrs, nil)
	if err != nil {
		return nil, err
	}
	return attributeList(res, "cancelled"), nil
}

func (f *Federate) CancelNegotiatedDivest(ctx context.Context, object types.ObjectInstanceHandle, attrs ...types.AttributeHandle) error {
	_, err := f.objectAttributes(ctx, server.OpCancelNegotiatedDivest, object, attrs, nil)
	return err
}

// DivestIfWanted returns the new owner of each attribute handed over.
func (f *Federate) DivestIfWanted(ctx context.Context, object types.ObjectInstanceHandle, attrs ...types.AttributeHandle) (map[types.AttributeHandle]types.FederateHandle, error) {
	res, err := f.objectAttributes(ctx, server.OpDivestIfWanted, object, attrs, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[types.AttributeHandle]types.FederateHandle)
	for _, v := range res.GetFields()["divested"].GetListValue().GetValues() {
		entry := v.GetStructValue().GetFields()
		out[types.AttributeHandle(entry["attribute"].GetNumberValue())] = types.FederateHandle(entry["owner"].GetNumberValue())
	}
	return out, nil
}

// QueryOwnership answers with an InformAttributeOwnership or AttributeIsNotOwned callback.
func (f *Federate) QueryOwnership(ctx context.Context, object types.ObjectInstanceHandle, attr types.AttributeHandle) error {
	_, err := f.call(ctx, server.OpQueryOwnership, map[string]any{"object": float64(object), "attribute": float64(attr)})
	return err
}

func (f *Federate) IsOwnedBy(ctx context.Context, object types.ObjectInstanceHandle, attr types.AttributeHandle) (bool, error) {
	res, err := f.call(ctx, server.OpIsOwnedBy, map[string]any{"object": float64(object), "attribute": float64(attr)})
	if err != nil {
		return false, err
	}
	return res.GetFields()["owned"].GetBoolValue(), nil
}

func (f *Federate) objectAttributes(ctx context.Context, op string, object types.ObjectInstanceHandle, attrs []types.AttributeHandle, tag []byte) (*structpb.Struct, error) {
	args := map[string]any{"object": float64(object), "attributes": handles(attrs)}
	addTagAndTime(args, tag, "")
	return f.call(ctx, op, args)
}

func handles[H ~uint64](hs []H) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = float64(h)
	}
	return out
}

func attributeList(res *structpb.Struct, key string) []types.AttributeHandle {
	var out []types.AttributeHandle
	for _, v := range res.GetFields()[key].GetListValue().GetValues() {
		out = append(out, types.AttributeHandle(v.GetNumberValue()))
	}
	return out
}

func addTagAndTime(args map[string]any, tag []byte, ts string) {
	if len(tag) > 0 {
		args["tag"] = base64.StdEncoding.EncodeToString(tag)
	}
	if ts != "" {
		args["time"] = ts
	}
}
