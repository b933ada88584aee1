package realtime

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestHubRegistry(t *testing.T) {
	hub := NewHub()
	a, b := &websocket.Conn{}, &websocket.Conn{}

	assert.False(t, hub.HasSubscribers("pod-1"))
	assert.Empty(t, hub.ActivePods())

	hub.Register("pod-1", a)
	hub.Register("pod-1", b)
	hub.Register("pod-2", a)

	assert.True(t, hub.HasSubscribers("pod-1"))
	assert.True(t, hub.HasSubscribers("pod-2"))
	assert.ElementsMatch(t, []string{"pod-1", "pod-2"}, hub.ActivePods())

	hub.Unregister("pod-1", a)
	assert.True(t, hub.HasSubscribers("pod-1"), "one consumer remains")

	hub.Unregister("pod-1", b)
	assert.False(t, hub.HasSubscribers("pod-1"), "empty pods drop out of the registry")
	assert.ElementsMatch(t, []string{"pod-2"}, hub.ActivePods())

	// Unregistering an unknown connection is a no-op.
	hub.Unregister("pod-3", a)
	assert.ElementsMatch(t, []string{"pod-2"}, hub.ActivePods())
}
