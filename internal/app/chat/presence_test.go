package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hallchat/internal/app/identity"
)

func conn(id string) Connection {
	return Connection{ID: id, Identity: identity.Guest("10.0.0.1"), SourceAddress: "10.0.0.1"}
}

func TestRegistryRegisterAndDeregister(t *testing.T) {
	r := NewRegistry()

	count, err := r.Register(conn("a"), &recordingOutbox{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = r.Register(conn("b"), &recordingOutbox{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	live := r.LiveConnections()
	require.Len(t, live, 2)
	assert.Equal(t, "a", live[0].ID)
	assert.Equal(t, "b", live[1].ID)

	count, removed := r.Deregister("a")
	assert.True(t, removed)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(conn("a"), &recordingOutbox{})
	require.NoError(t, err)

	count, err := r.Register(conn("a"), &recordingOutbox{})
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	assert.Equal(t, 1, count)
}

func TestRegistryDeregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()

	count, removed := r.Deregister("ghost")
	assert.False(t, removed)
	assert.Equal(t, 0, count)

	_, err := r.Register(conn("a"), &recordingOutbox{})
	require.NoError(t, err)
	r.Deregister("a")

	count, removed = r.Deregister("a")
	assert.False(t, removed)
	assert.Equal(t, 0, count)
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	const connects, disconnects = 200, 120

	var wg sync.WaitGroup
	for i := 0; i < connects; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Register(conn(fmt.Sprintf("c-%03d", i)), &recordingOutbox{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < disconnects; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Deregister(fmt.Sprintf("c-%03d", i))
		}(i)
		// duplicate disconnect notifications must not double count
		go func(i int) {
			defer wg.Done()
			r.Deregister(fmt.Sprintf("c-%03d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, connects-disconnects, r.Count())
	assert.Len(t, r.LiveConnections(), connects-disconnects)
}
