package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushToUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Push("nobody", "message", nil))
}

func TestPushDeliversEnvelope(t *testing.T) {
	r := NewRegistry()
	c := r.Register("user-1", nil)

	delivered := r.Push("user-1", "message", map[string]string{"content": "hi"})
	require.True(t, delivered)

	var ev Event
	require.NoError(t, json.Unmarshal(<-c.send, &ev))
	assert.Equal(t, "message", ev.Event)
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry()
	first := r.Register("user-1", nil)
	second := r.Register("user-1", nil)

	current, ok := r.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, second, current)

	// The replaced client's send channel is closed.
	_, open := <-first.send
	assert.False(t, open)
}

func TestStaleUnregisterKeepsNewerConnection(t *testing.T) {
	r := NewRegistry()
	old := r.Register("user-1", nil)
	fresh := r.Register("user-1", nil)

	r.Unregister("user-1", old)

	current, ok := r.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, fresh, current)
}

func TestUnregisterRemovesCurrentConnection(t *testing.T) {
	r := NewRegistry()
	c := r.Register("user-1", nil)

	r.Unregister("user-1", c)

	_, ok := r.Lookup("user-1")
	assert.False(t, ok)
	assert.False(t, r.Push("user-1", "message", nil))
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	r := NewRegistry()
	c := r.Register("user-1", nil)

	for i := 0; i < cap(c.send); i++ {
		require.True(t, r.Push("user-1", "message", i))
	}

	assert.False(t, r.Push("user-1", "message", "overflow"))
}
