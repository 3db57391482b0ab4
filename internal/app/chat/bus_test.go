package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutBroadcastReachesEveryConnection(t *testing.T) {
	r := NewRegistry()
	a, b, stalled := &recordingOutbox{}, &recordingOutbox{}, &recordingOutbox{refuse: true}

	_, err := r.Register(conn("a"), a)
	require.NoError(t, err)
	_, err = r.Register(conn("b"), b)
	require.NoError(t, err)
	_, err = r.Register(conn("stalled"), stalled)
	require.NoError(t, err)

	bus := NewFanout(r)
	bus.Broadcast(EventUserCount, UserCountPayload{Count: 3})
	bus.Broadcast(EventNewMessage, MessagePayload{Message: "hi"})

	for _, out := range []*recordingOutbox{a, b} {
		assert.Equal(t, []string{EventUserCount, EventNewMessage}, out.events())

		var count UserCountPayload
		require.True(t, out.last(EventUserCount, &count))
		assert.Equal(t, 3, count.Count)
	}
	assert.Empty(t, stalled.events())
}

func TestFanoutSendToIsUnicast(t *testing.T) {
	r := NewRegistry()
	a, b := &recordingOutbox{}, &recordingOutbox{}
	_, _ = r.Register(conn("a"), a)
	_, _ = r.Register(conn("b"), b)

	bus := NewFanout(r)
	bus.SendTo("a", EventChatHistory, []MessagePayload{})
	bus.SendTo("missing", EventChatHistory, []MessagePayload{})

	assert.Equal(t, []string{EventChatHistory}, a.events())
	assert.Empty(t, b.events())

	var history []MessagePayload
	require.True(t, a.last(EventChatHistory, &history))
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestFanoutSkipsDeregistered(t *testing.T) {
	r := NewRegistry()
	a := &recordingOutbox{}
	_, _ = r.Register(conn("a"), a)
	r.Deregister("a")

	NewFanout(r).Broadcast(EventUserCount, UserCountPayload{Count: 0})
	assert.Empty(t, a.events())
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(EventUserCount, UserCountPayload{Count: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user_count","data":{"count":2}}`, string(frame))
}
