package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/podpulse/podpulse/internal/realtime"
	"github.com/podpulse/podpulse/internal/services"
	jwtutil "github.com/podpulse/podpulse/pkg/jwt"
	"github.com/podpulse/podpulse/pkg/logger"
	"github.com/sirupsen/logrus"
)

// FeedSocketHandler upgrades consumers onto the live feed push channel
// for a pod.
type FeedSocketHandler struct {
	Hub       *realtime.Hub
	Feeds     *services.FeedService
	JWTSecret string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewFeedSocketHandler creates a new instance of FeedSocketHandler.
func NewFeedSocketHandler(hub *realtime.Hub, feeds *services.FeedService, jwtSecret string) *FeedSocketHandler {
	return &FeedSocketHandler{Hub: hub, Feeds: feeds, JWTSecret: jwtSecret}
}

// SubscribeFeedHandler registers a websocket consumer for a pod's feed.
// The consumer immediately receives the current feed, then a refreshed
// one after every (debounced) check-in event for that pod. Delivery is
// at-least-once; a duplicate push carries the same recomputed feed.
func (h *FeedSocketHandler) SubscribeFeedHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	if _, err := jwtutil.ValidateToken(token, h.JWTSecret); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	podID := r.URL.Query().Get("pod")
	if podID == "" {
		http.Error(w, "Missing pod", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	sub := h.Hub.Register(podID, conn)
	defer func() {
		h.Hub.Unregister(podID, conn)
		conn.Close()
	}()

	// Serve the current state right away rather than making the
	// consumer wait for the next check-in event. The snapshot goes
	// through the Subscriber handle so it is serialized with any
	// broadcast already in flight for this pod.
	feed := h.Feeds.Cached(podID)
	if feed == nil {
		feed, err = h.Feeds.RefreshFeed(r.Context(), podID)
		if err != nil {
			logrus.WithError(err).WithField("pod_id", podID).Error("Initial feed compute failed")
			return
		}
	}
	if err := sub.Send(feed); err != nil {
		return
	}

	// Consumers only listen; reads just detect the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
