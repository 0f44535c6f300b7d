package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSubscriptionOrder(t *testing.T) {
	h := NewHub()
	var calls []string

	h.Success().Subscribe(func(msg string) { calls = append(calls, "A:"+msg) })
	h.Success().Subscribe(func(msg string) { calls = append(calls, "B:"+msg) })

	failed := h.Success().Trigger("saved")
	require.Zero(t, failed)
	assert.Equal(t, []string{"A:saved", "B:saved"}, calls)
}

func TestUnsubscribeRemovesOnlyThatCallback(t *testing.T) {
	h := NewHub()
	var calls []string

	h.Error().Subscribe(func(string) { calls = append(calls, "A") })
	subB := h.Error().Subscribe(func(string) { calls = append(calls, "B") })
	h.Error().Subscribe(func(string) { calls = append(calls, "C") })

	subB.Unsubscribe()
	subB.Unsubscribe() // no-op

	h.Error().Trigger("x")
	assert.Equal(t, []string{"A", "C"}, calls)
	assert.Equal(t, 2, h.Error().Count())
}

func TestPanickingSubscriberDoesNotStopOthers(t *testing.T) {
	h := NewHub()
	var got []bool

	h.Busy().Subscribe(func(b bool) { got = append(got, b) })
	h.Busy().Subscribe(func(bool) { panic("boom") })
	h.Busy().Subscribe(func(b bool) { got = append(got, !b) })

	failed := h.Busy().Trigger(true)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []bool{true, false}, got)
}

func TestDuplicateSubscriptionIsInvokedTwice(t *testing.T) {
	h := NewHub()
	n := 0
	fn := func(string) { n++ }

	first := h.Info().Subscribe(fn)
	h.Info().Subscribe(fn)
	h.Info().Trigger("hi")
	assert.Equal(t, 2, n)

	first.Unsubscribe()
	h.Info().Trigger("hi")
	assert.Equal(t, 3, n)
}

func TestCallbackMayTriggerAndUnsubscribe(t *testing.T) {
	h := NewHub()
	var order []string

	var self *Subscription
	self = h.SignedOut().Subscribe(func(SignedOutEvent) {
		order = append(order, "signedOut")
		self.Unsubscribe()
		h.Error().Trigger("nested")
	})
	h.Error().Subscribe(func(msg string) { order = append(order, "error:"+msg) })

	h.SignedOut().Trigger(SignedOutEvent{})
	h.SignedOut().Trigger(SignedOutEvent{})

	assert.Equal(t, []string{"signedOut", "error:nested"}, order)
}

func TestUnsubscribedDuringTriggerIsSkipped(t *testing.T) {
	h := NewHub()
	var later *Subscription
	called := false

	h.Warning().Subscribe(func(string) { later.Unsubscribe() })
	later = h.Warning().Subscribe(func(string) { called = true })

	h.Warning().Trigger("w")
	assert.False(t, called)
}

func TestGetAdHocTopic(t *testing.T) {
	h := NewHub()

	a, err := Get[int](h, "counter")
	require.NoError(t, err)
	b, err := Get[int](h, "counter")
	require.NoError(t, err)

	total := 0
	a.Subscribe(func(v int) { total += v })
	b.Trigger(5)
	assert.Equal(t, 5, total)

	_, err = Get[string](h, "counter")
	require.ErrorIs(t, err, ErrTopicType)

	_, err = Get[string](h, "")
	require.ErrorIs(t, err, ErrTopicNameIsEmpty)

	assert.Contains(t, h.Topics(), "counter")
	assert.Contains(t, h.Topics(), TopicBusy)
}

func TestTriggerWithoutSubscribers(t *testing.T) {
	h := NewHub()
	assert.Zero(t, h.SignedIn().Trigger(User{ID: "u1"}))
}
