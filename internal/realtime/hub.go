package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/pkg/logger"
)

// Subscriber is one registered feed consumer. Every write to the
// connection goes through Send: gorilla/websocket allows only one
// concurrent writer, and the dispatcher's broadcasts and the handler's
// initial snapshot run on different goroutines.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Send writes a feed snapshot to the consumer.
func (s *Subscriber) Send(feed *models.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(feed)
}

// Hub tracks websocket consumers by the pod whose feed they follow.
// It is the only registry the dispatcher consults when deciding which
// pods are worth recomputing.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]*Subscriber // podID -> connections
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]*Subscriber),
	}
}

// Register adds a consumer connection for a pod and returns its
// Subscriber handle. The caller pushes the initial snapshot through the
// handle so it cannot interleave with a broadcast.
func (h *Hub) Register(podID string, conn *websocket.Conn) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[podID] == nil {
		h.conns[podID] = make(map[*websocket.Conn]*Subscriber)
	}
	sub := &Subscriber{conn: conn}
	h.conns[podID][conn] = sub
	logger.Log.WithField("pod_id", podID).Info("Feed consumer subscribed")
	return sub
}

// Unregister removes a consumer connection.
func (h *Hub) Unregister(podID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[podID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, podID)
		}
	}
	logger.Log.WithField("pod_id", podID).Info("Feed consumer unsubscribed")
}

// HasSubscribers reports whether any consumer follows the pod.
func (h *Hub) HasSubscribers(podID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[podID]) > 0
}

// ActivePods returns the pods that currently have at least one consumer.
func (h *Hub) ActivePods() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	pods := make([]string, 0, len(h.conns))
	for podID := range h.conns {
		pods = append(pods, podID)
	}
	return pods
}

// Broadcast pushes a refreshed feed to every consumer of the pod. The
// registry lock is released before any network write so one slow
// consumer cannot stall registration or the dispatcher's event path. A
// failed write drops that consumer; it will resubscribe and receive a
// full feed, so nothing is lost.
func (h *Hub) Broadcast(podID string, feed *models.Feed) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.conns[podID]))
	for _, sub := range h.conns[podID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Send(feed); err != nil {
			logger.Log.WithError(err).WithField("pod_id", podID).Warn("Dropping unreachable feed consumer")
			sub.conn.Close()
			h.Unregister(podID, sub.conn)
		}
	}
}
