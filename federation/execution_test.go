package federation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/testutil"
	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

func TestExecution_Join(t *testing.T) {
	e, _ := newTestExecution(t)

	a, err := e.Join("alpha", "car")
	require.NoError(t, err)
	b, err := e.Join("", "car")
	require.NoError(t, err)

	assert.Equal(t, types.FederateHandle(1), a.Handle)
	assert.Equal(t, types.FederateHandle(2), b.Handle)
	assert.Equal(t, "federate-2", b.Name)

	_, err = e.Join("alpha", "car")
	assert.ErrorIs(t, err, ErrFederateNameAlreadyInUse)

	assert.Equal(t, []Member{a, b}, e.Members())
	assert.NotEmpty(t, e.ID())
	assert.Equal(t, "test", e.Name())
}

func TestExecution_NonMember(t *testing.T) {
	e, _ := newTestExecution(t)

	err := e.EnableTimeRegulation(7, iv(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFederateNotExecutionMember)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "EnableTimeRegulation", reqErr.Op)
	assert.Equal(t, types.FederateHandle(7), reqErr.Federate)
	assert.False(t, reqErr.Fatal())

	_, err = e.RegisterObjectInstance(7, testutil.Vehicle, "")
	assert.ErrorIs(t, err, ErrFederateNotExecutionMember)
	_, err = e.QueryLogicalTime(7)
	assert.ErrorIs(t, err, ErrFederateNotExecutionMember)
	assert.ErrorIs(t, e.Resign(7, types.ResignNoAction), ErrFederateNotExecutionMember)
}

func TestExecution_RegisterAndDiscover(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c")
	a, b, c := h[0], h[1], h[2]

	_, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.ErrorIs(t, err, ErrObjectClassNotPublished)

	require.NoError(t, e.PublishObjectClass(a, testutil.Truck, attrs(testutil.Position, testutil.Load)))
	require.NoError(t, e.SubscribeObjectClass(b, testutil.Vehicle, attrs(testutil.Position)))

	info, err := e.RegisterObjectInstance(a, testutil.Truck, "big")
	require.NoError(t, err)
	assert.Equal(t, testutil.Truck, info.Class)

	// b knows the truck through its Vehicle subscription.
	require.Equal(t, []notify.Notification{
		notify.DiscoverObjectInstance{Object: info.Handle, Class: testutil.Vehicle, Name: "big"},
	}, rec.To(b))
	assert.Empty(t, rec.To(a))
	assert.Empty(t, rec.To(c))

	// A later subscription discovers existing instances once.
	require.NoError(t, e.SubscribeObjectClass(c, testutil.Truck, attrs(testutil.Load)))
	require.NoError(t, e.SubscribeObjectClass(c, testutil.Truck, attrs(testutil.Position)))
	assert.Equal(t, []notify.Notification{
		notify.DiscoverObjectInstance{Object: info.Handle, Class: testutil.Truck, Name: "big"},
	}, rec.To(c))
	assert.Equal(t, []types.FederateHandle{a, b, c}, e.KnownBy(info.Handle))

	owned, err := e.IsOwnedBy(a, info.Handle, testutil.Load)
	require.NoError(t, err)
	assert.True(t, owned)
	owned, _ = e.IsOwnedBy(a, info.Handle, testutil.Plate)
	assert.False(t, owned, "unpublished attributes are not owned")
}

func TestExecution_Declarations(t *testing.T) {
	e, _ := newTestExecution(t)
	a := joinAll(t, e, "a")[0]

	assert.ErrorIs(t, e.PublishObjectClass(a, 99, nil), ownership.ErrObjectClassNotDefined)
	assert.ErrorIs(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Load)), ownership.ErrAttributeNotDefined)
	assert.ErrorIs(t, e.SubscribeInteractionClass(a, 99), ErrInteractionClassNotDefined)

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Position)))
	require.NoError(t, e.UnpublishObjectClass(a, testutil.Vehicle, nil))
	_, err := e.RegisterObjectInstance(a, testutil.Vehicle, "")
	assert.ErrorIs(t, err, ErrObjectClassNotPublished)

	require.NoError(t, e.PublishInteractionClass(a, testutil.Honk))
	require.NoError(t, e.UnpublishInteractionClass(a, testutil.Honk))
	err = e.SendInteraction(a, testutil.Honk, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInteractionClassNotPublished)
}

func TestExecution_UnpublishDivests(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b")
	a, b := h[0], h[1]

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Position, testutil.Plate)))
	require.NoError(t, e.PublishObjectClass(b, testutil.Vehicle, attrs(testutil.Plate)))
	info, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.NoError(t, err)
	require.NoError(t, e.Acquire(b, info.Handle, attrs(testutil.Plate), nil))
	rec.Reset()

	require.NoError(t, e.UnpublishObjectClass(a, testutil.Vehicle, attrs(testutil.Plate)))

	assert.Equal(t, []notify.Notification{
		notify.AttributeOwnershipAcquisitionNotification{Object: info.Handle, Attributes: attrs(testutil.Plate)},
	}, rec.To(b))
	owned, _ := e.IsOwnedBy(a, info.Handle, testutil.Position)
	assert.True(t, owned, "still published")
	owned, _ = e.IsOwnedBy(a, info.Handle, types.PrivilegeToDeleteAttribute)
	assert.True(t, owned, "the delete privilege is kept")
}

func TestExecution_UpdateAttributeValues(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c", "d")
	a, b, c, d := h[0], h[1], h[2], h[3]

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Position, testutil.Plate)))
	require.NoError(t, e.SubscribeObjectClass(b, testutil.Vehicle, attrs(testutil.Position)))
	require.NoError(t, e.SubscribeObjectClass(c, testutil.Vehicle, attrs(testutil.Position, testutil.Plate)))
	require.NoError(t, e.SubscribeObjectClass(d, testutil.Vehicle, attrs(testutil.Velocity)))
	info, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.NoError(t, err)
	rec.Reset()

	values := []types.AttributeValue{
		{Attribute: testutil.Position, Value: []byte("p")},
		{Attribute: testutil.Plate, Value: []byte("x")},
	}
	require.NoError(t, e.UpdateAttributeValues(a, info.Handle, values, []byte("t"), nil))

	assert.Equal(t, []notify.Notification{notify.ReflectAttributeValues{
		Object: info.Handle, Values: values[:1], Tag: []byte("t"), Order: types.OrderReceive, Sender: a,
	}}, rec.To(b))
	assert.Equal(t, []notify.Notification{notify.ReflectAttributeValues{
		Object: info.Handle, Values: values, Tag: []byte("t"), Order: types.OrderReceive, Sender: a,
	}}, rec.To(c))
	assert.Empty(t, rec.To(d), "no subscribed attribute in the update")
	assert.Empty(t, rec.To(a))

	t.Run("requires ownership", func(t *testing.T) {
		err := e.UpdateAttributeValues(b, info.Handle, values[:1], nil, nil)
		assert.ErrorIs(t, err, ownership.ErrAttributeNotOwned)
	})
	t.Run("unknown attribute", func(t *testing.T) {
		err := e.UpdateAttributeValues(a, info.Handle, []types.AttributeValue{{Attribute: testutil.Load}}, nil, nil)
		assert.ErrorIs(t, err, ownership.ErrAttributeNotDefined)
	})
	t.Run("unknown object", func(t *testing.T) {
		err := e.UpdateAttributeValues(a, 42, values, nil, nil)
		assert.ErrorIs(t, err, ownership.ErrObjectInstanceNotKnown)
	})
}

func TestExecution_TimestampedUpdate(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c")
	a, b, c := h[0], h[1], h[2]

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Position)))
	require.NoError(t, e.SubscribeObjectClass(b, testutil.Vehicle, attrs(testutil.Position)))
	require.NoError(t, e.SubscribeObjectClass(c, testutil.Vehicle, attrs(testutil.Position)))
	info, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.NoError(t, err)

	require.NoError(t, e.EnableTimeRegulation(a, iv(2)))
	require.NoError(t, e.EnableTimeConstrained(b))
	rec.Reset()

	values := []types.AttributeValue{{Attribute: testutil.Position, Value: []byte("p")}}

	err = e.UpdateAttributeValues(a, info.Handle, values, nil, it(1))
	assert.ErrorIs(t, err, timekeeper.ErrInvalidLogicalTime, "below the sender's LITS")
	assert.Empty(t, rec.All())

	require.NoError(t, e.UpdateAttributeValues(a, info.Handle, values, nil, it(4)))
	assert.Empty(t, rec.To(b), "held until b's grant")
	assert.Equal(t, []notify.Notification{notify.ReflectAttributeValues{
		Object: info.Handle, Values: values, Order: types.OrderReceive, Sender: a,
	}}, rec.To(c), "unconstrained federates receive at once")

	require.NoError(t, e.RequestAdvance(b, it(5), timekeeper.ModeExact))
	assert.Empty(t, rec.To(b))
	require.NoError(t, e.RequestAdvance(a, it(10), timekeeper.ModeExact))

	assert.Equal(t, []notify.Notification{
		notify.ReflectAttributeValues{Object: info.Handle, Values: values, Time: it(4), Order: types.OrderTimestamp, Sender: a},
		notify.TimeAdvanceGrant{Time: it(5)},
	}, rec.To(b))

	galt := e.QueryGALT()
	assert.Equal(t, it(12), galt)
	lits, err := e.QueryLITS(a)
	require.NoError(t, err)
	assert.Equal(t, it(12), lits)
	la, err := e.QueryLookahead(a)
	require.NoError(t, err)
	assert.Equal(t, iv(2), la)
	now, err := e.QueryLogicalTime(b)
	require.NoError(t, err)
	assert.Equal(t, it(5), now)

	state, err := e.TimeState(b)
	require.NoError(t, err)
	assert.True(t, state.Constrained)
	assert.False(t, state.Advancing)
}

func TestExecution_Interactions(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c", "d")
	a, b, c, d := h[0], h[1], h[2], h[3]

	require.NoError(t, e.PublishInteractionClass(a, testutil.Honk))
	require.NoError(t, e.SubscribeInteractionClass(b, testutil.Collision))
	require.NoError(t, e.SubscribeInteractionClass(c, testutil.Honk))
	require.NoError(t, e.SubscribeInteractionClass(c, testutil.Collision))

	params := []types.ParameterValue{
		{Parameter: testutil.Severity, Value: []byte("3")},
		{Parameter: testutil.Volume, Value: []byte("loud")},
	}
	require.NoError(t, e.SendInteraction(a, testutil.Honk, params, nil, it(9)))

	assert.Equal(t, []notify.Notification{notify.ReceiveInteraction{
		Class: testutil.Collision, Values: params[:1], Order: types.OrderReceive, Sender: a,
	}}, rec.To(b), "received as the subscribed ancestor")
	assert.Equal(t, []notify.Notification{notify.ReceiveInteraction{
		Class: testutil.Honk, Values: params, Order: types.OrderReceive, Sender: a,
	}}, rec.To(c), "the most specific subscription wins")
	assert.Empty(t, rec.To(d))

	err := e.SendInteraction(a, testutil.Honk, []types.ParameterValue{{Parameter: 9}}, nil, nil)
	assert.ErrorIs(t, err, ErrInteractionParameterNotDefined)
	err = e.SendInteraction(a, 99, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInteractionClassNotDefined)
}

func TestExecution_TimestampedInteraction(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b")
	a, b := h[0], h[1]

	require.NoError(t, e.PublishInteractionClass(a, testutil.Collision))
	require.NoError(t, e.SubscribeInteractionClass(b, testutil.Collision))
	require.NoError(t, e.EnableTimeRegulation(a, iv(1)))
	require.NoError(t, e.EnableTimeConstrained(b))
	rec.Reset()

	params := []types.ParameterValue{{Parameter: testutil.Location, Value: []byte("x")}}
	require.NoError(t, e.SendInteraction(a, testutil.Collision, params, []byte("boom"), it(3)))
	assert.Empty(t, rec.To(b))

	require.NoError(t, e.DisableTimeConstrained(b))
	assert.Equal(t, []notify.Notification{notify.ReceiveInteraction{
		Class: testutil.Collision, Values: params, Tag: []byte("boom"), Time: it(3), Order: types.OrderTimestamp, Sender: a,
	}}, rec.To(b), "released when the constraint is lifted")
}

func TestExecution_DeleteObjectInstance(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c")
	a, b, c := h[0], h[1], h[2]

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Plate)))
	require.NoError(t, e.SubscribeObjectClass(b, testutil.Vehicle, attrs(testutil.Plate)))
	info, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.NoError(t, err)
	rec.Reset()

	err = e.DeleteObjectInstance(b, info.Handle, nil, nil)
	assert.ErrorIs(t, err, ownership.ErrDeletePrivilegeNotHeld)

	require.NoError(t, e.DeleteObjectInstance(a, info.Handle, []byte("bye"), nil))
	assert.Equal(t, []notify.Notification{
		notify.RemoveObjectInstance{Object: info.Handle, Tag: []byte("bye")},
	}, rec.To(b))
	assert.Empty(t, rec.To(c))
	assert.Empty(t, e.Objects())
	assert.Empty(t, e.KnownBy(info.Handle))

	_, err = e.ObjectInfo(info.Handle)
	assert.ErrorIs(t, err, ownership.ErrObjectInstanceNotKnown)
}

func TestExecution_Ownership(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c")
	a, b, c := h[0], h[1], h[2]

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Position, testutil.Plate)))
	require.NoError(t, e.PublishObjectClass(b, testutil.Vehicle, attrs(testutil.Position)))
	info, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.NoError(t, err)
	obj := info.Handle

	t.Run("acquisition requires publication", func(t *testing.T) {
		assert.ErrorIs(t, e.Acquire(c, obj, attrs(testutil.Position), nil), ErrAttributeNotPublished)
		_, err := e.AcquireIfAvailable(b, obj, attrs(testutil.Plate))
		assert.ErrorIs(t, err, ErrAttributeNotPublished)
	})

	t.Run("negotiated transfer", func(t *testing.T) {
		rec.Reset()
		require.NoError(t, e.Acquire(b, obj, attrs(testutil.Position), []byte("please")))
		waiting, err := e.NegotiatedDivest(a, obj, attrs(testutil.Position), nil)
		require.NoError(t, err)
		assert.Equal(t, attrs(testutil.Position), waiting)
		require.NoError(t, e.ConfirmDivest(a, obj, attrs(testutil.Position)))

		assert.Equal(t, []string{"RequestAttributeOwnershipRelease", "RequestDivestitureConfirmation"}, rec.Kinds(a))
		assert.Equal(t, []string{"AttributeOwnershipAcquisitionNotification"}, rec.Kinds(b))
	})

	t.Run("query", func(t *testing.T) {
		rec.Reset()
		require.NoError(t, e.QueryOwnership(c, obj, testutil.Position))
		require.NoError(t, e.QueryOwnership(c, obj, testutil.Velocity))
		assert.Equal(t, []notify.Notification{
			notify.InformAttributeOwnership{Object: obj, Attribute: testutil.Position, Owner: b},
			notify.AttributeIsNotOwned{Object: obj, Attribute: testutil.Velocity},
		}, rec.To(c))
		assert.ErrorIs(t, e.QueryOwnership(c, 42, testutil.Position), ownership.ErrObjectInstanceNotKnown)
	})

	t.Run("divest if wanted and cancel", func(t *testing.T) {
		require.NoError(t, e.Acquire(a, obj, attrs(testutil.Position), nil))
		cancelled, err := e.CancelAcquire(a, obj, attrs(testutil.Position))
		require.NoError(t, err)
		assert.Equal(t, attrs(testutil.Position), cancelled)

		require.NoError(t, e.Acquire(a, obj, attrs(testutil.Position), nil))
		_, err = e.NegotiatedDivest(b, obj, attrs(testutil.Position), nil)
		require.NoError(t, err)
		require.NoError(t, e.CancelNegotiatedDivest(b, obj, attrs(testutil.Position)))
		_, err = e.NegotiatedDivest(b, obj, attrs(testutil.Position), nil)
		require.NoError(t, err)
		divested, err := e.DivestIfWanted(b, obj, attrs(testutil.Position))
		require.NoError(t, err)
		assert.Equal(t, map[types.AttributeHandle]types.FederateHandle{testutil.Position: a}, divested)

		require.NoError(t, e.UnconditionalDivest(a, obj, attrs(testutil.Position)))
		unavailable, err := e.AcquireIfAvailable(b, obj, attrs(testutil.Position))
		require.NoError(t, err)
		assert.Empty(t, unavailable)
	})
}

func TestExecution_Resign(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b")
	a, b := h[0], h[1]

	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Plate)))
	require.NoError(t, e.SubscribeObjectClass(b, testutil.Vehicle, attrs(testutil.Plate)))
	info, err := e.RegisterObjectInstance(a, testutil.Vehicle, "car")
	require.NoError(t, err)
	rec.Reset()

	err = e.Resign(a, types.ResignNoAction)
	assert.ErrorIs(t, err, ownership.ErrFederateOwnsAttributes)
	_, err = e.Member(a)
	require.NoError(t, err, "a failed resign leaves the federate joined")

	require.NoError(t, e.Resign(a, types.ResignDeleteObjects))
	assert.Equal(t, []notify.Notification{notify.RemoveObjectInstance{Object: info.Handle}}, rec.To(b))
	_, err = e.Member(a)
	assert.ErrorIs(t, err, ErrFederateNotExecutionMember)
	assert.Equal(t, 1, e.MemberCount())

	m, err := e.Join("a", "test")
	require.NoError(t, err, "the name is free again")
	assert.Equal(t, types.FederateHandle(3), m.Handle, "handles are never reused")
}

func TestExecution_RemoveFederate(t *testing.T) {
	e, rec := newTestExecution(t)
	h := joinAll(t, e, "a", "b", "c")
	a, b, c := h[0], h[1], h[2]

	require.NoError(t, e.PublishObjectClass(b, testutil.Vehicle, attrs(testutil.Position)))
	require.NoError(t, e.PublishObjectClass(a, testutil.Vehicle, attrs(testutil.Plate)))
	require.NoError(t, e.PublishObjectClass(c, testutil.Vehicle, attrs(testutil.Plate)))
	info, err := e.RegisterObjectInstance(b, testutil.Vehicle, "car")
	require.NoError(t, err)

	_, err = e.AcquireIfAvailable(a, info.Handle, attrs(testutil.Plate))
	require.NoError(t, err)
	require.NoError(t, e.Acquire(c, info.Handle, attrs(testutil.Plate), nil))

	require.NoError(t, e.EnableTimeRegulation(a, iv(1)))
	require.NoError(t, e.EnableTimeConstrained(c))
	require.NoError(t, e.RequestAdvance(c, it(5), timekeeper.ModeExact))
	rec.Reset()

	e.RemoveFederate(a)

	assert.Equal(t, []notify.Notification{
		notify.AttributeOwnershipAcquisitionNotification{Object: info.Handle, Attributes: attrs(testutil.Plate)},
		notify.TimeAdvanceGrant{Time: it(5)},
	}, rec.To(c), "the line is served, then the departure unblocks time")
	assert.True(t, e.QueryGALT().IsFinal())

	rec.Reset()
	e.RemoveFederate(a)
	e.RemoveFederate(99)
	assert.Empty(t, rec.All(), "removal is idempotent")
	assert.Equal(t, 2, e.MemberCount())
}

func TestRequestError_Fatal(t *testing.T) {
	e, _ := newTestExecution(t)
	h := joinAll(t, e, "a", "b")
	a, b := h[0], h[1]

	require.NoError(t, e.RequestAdvance(b, it(5), timekeeper.ModeExact))
	require.NoError(t, e.EnableTimeRegulation(a, iv(1)))
	require.NoError(t, e.EnableTimeConstrained(b), "pending until GALT reaches 5")

	err := e.EnableTimeRegulation(b, iv(1))
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.ErrorIs(t, err, timekeeper.ErrRequestInProgress)
	assert.True(t, reqErr.Fatal())

	err = e.RequestAdvance(b, it(6), timekeeper.ModeExact)
	require.True(t, errors.As(err, &reqErr))
	assert.ErrorIs(t, err, timekeeper.ErrRequestInProgress)
	assert.False(t, reqErr.Fatal(), "only enables are protocol-sequence errors")
}

type countingMetrics struct {
	NoOpMetrics
	ok, failed, discoveries, federates int
}

func (m *countingMetrics) IncrRequest(_ string, success bool) {
	if success {
		m.ok++
	} else {
		m.failed++
	}
}
func (m *countingMetrics) SetFederates(n int)    { m.federates = n }
func (m *countingMetrics) IncrDiscoveries(n int) { m.discoveries += n }

func TestExecution_Metrics(t *testing.T) {
	m := &countingMetrics{}
	e, _ := newTestExecution(t, WithMetrics(m))
	h := joinAll(t, e, "a", "b")

	require.NoError(t, e.PublishObjectClass(h[0], testutil.Vehicle, attrs(testutil.Plate)))
	require.NoError(t, e.SubscribeObjectClass(h[1], testutil.Vehicle, attrs(testutil.Plate)))
	_, err := e.RegisterObjectInstance(h[0], testutil.Vehicle, "")
	require.NoError(t, err)
	assert.Error(t, e.DisableTimeRegulation(h[0]))

	assert.Equal(t, 2, m.federates)
	assert.Equal(t, 1, m.discoveries)
	assert.Equal(t, 1, m.failed)
	assert.Equal(t, 5, m.ok)
}
