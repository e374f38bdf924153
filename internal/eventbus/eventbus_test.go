package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToSubscribers(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)

	var got []Event
	b.Subscribe(func(ev Event) { got = append(got, ev) })

	require.NoError(t, b.Publish(Event{Phase: "generate", Message: "composing genesis prompt"}))

	require.Len(t, got, 1)
	assert.Equal(t, "generate", got[0].Phase)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)

	count := 0
	unsubscribe := b.Subscribe(func(ev Event) { count++ })
	require.NoError(t, b.Publish(Event{Phase: "a"}))
	unsubscribe()
	require.NoError(t, b.Publish(Event{Phase: "b"}))

	assert.Equal(t, 1, count)
}

func TestOnProgress_AdaptsToCallbackShape(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)

	var got Event
	b.Subscribe(func(ev Event) { got = ev })
	b.OnProgress("execute", "attempt 1")

	assert.Equal(t, "execute", got.Phase)
	assert.Equal(t, "attempt 1", got.Message)
}

func TestNew_NoNATSURLSkipsConnection(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "tac.events", b.subject)
	assert.Nil(t, b.nc)
}
