package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/internal/realtime"
	"github.com/podpulse/podpulse/internal/services"
	jwtutil "github.com/podpulse/podpulse/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubMembers struct {
	members []models.User
}

func (s stubMembers) GetPodMembers(_ context.Context, _ primitive.ObjectID) ([]models.User, error) {
	return s.members, nil
}

type stubLatest struct{}

func (stubLatest) GetLatestCheckIn(_ context.Context, _ primitive.ObjectID) (*models.CheckIn, error) {
	return nil, nil
}

type stubStreaks struct{}

func (stubStreaks) CurrentStreak(_ context.Context, _ primitive.ObjectID, _ string, _ time.Time) (int, error) {
	return 0, nil
}

// Subscribes many consumers while the hub broadcasts nonstop for the
// same pod, so the initial snapshot write races hub pushes unless every
// write to a connection is serialized. Run with -race.
func TestSubscribeFeedConcurrentBroadcasts(t *testing.T) {
	hub := realtime.NewHub()
	member := models.User{ID: primitive.NewObjectID(), Username: "ana", Timezone: "UTC"}
	feeds := services.NewFeedService(stubMembers{members: []models.User{member}}, stubLatest{}, stubStreaks{}, 2)

	const secret = "test-secret"
	handler := NewFeedSocketHandler(hub, feeds, secret)

	srv := httptest.NewServer(http.HandlerFunc(handler.SubscribeFeedHandler))
	defer srv.Close()

	podID := primitive.NewObjectID()
	token, err := jwtutil.GenerateToken(primitive.NewObjectID().Hex(), "ana@example.com", secret, time.Hour)
	require.NoError(t, err)

	pushed := &models.Feed{PodID: podID, ComputedAt: time.Now().UTC()}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast(podID.Hex(), pushed)
			}
		}
	}()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token + "&pod=" + podID.Hex()
	for i := 0; i < 50; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)

		// Every frame a consumer receives must decode as a whole feed,
		// whether it is the initial snapshot or a broadcast.
		var got models.Feed
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, podID, got.PodID)
		conn.Close()
	}

	close(stop)
	wg.Wait()
}

func TestSubscribeFeedRejectsBadRequests(t *testing.T) {
	hub := realtime.NewHub()
	feeds := services.NewFeedService(stubMembers{}, stubLatest{}, stubStreaks{}, 2)
	handler := NewFeedSocketHandler(hub, feeds, "test-secret")

	srv := httptest.NewServer(http.HandlerFunc(handler.SubscribeFeedHandler))
	defer srv.Close()

	token, err := jwtutil.GenerateToken(primitive.NewObjectID().Hex(), "ana@example.com", "test-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing token", "?pod=" + primitive.NewObjectID().Hex(), http.StatusUnauthorized},
		{"bad token", "?token=garbage&pod=" + primitive.NewObjectID().Hex(), http.StatusUnauthorized},
		{"missing pod", "?token=" + token, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/" + tt.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
