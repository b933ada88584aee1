package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/podpulse/podpulse/internal/services"
	"github.com/podpulse/podpulse/pkg/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatsHandler serves the caller's streak and latest check-in, the
// numbers behind the dashboard header.
type StatsHandler struct {
	Streaks  *services.StreakService
	CheckIns *services.CheckInService
	Users    *services.UserService
}

// NewStatsHandler creates a new instance of StatsHandler.
func NewStatsHandler(streaks *services.StreakService, checkIns *services.CheckInService, users *services.UserService) *StatsHandler {
	return &StatsHandler{Streaks: streaks, CheckIns: checkIns, Users: users}
}

// GetStreakHandler returns the caller's current streak.
func (h *StatsHandler) GetStreakHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	user, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch user for streak")
		http.Error(w, "Failed to fetch streak", http.StatusInternalServerError)
		return
	}

	streak, err := h.Streaks.CurrentStreak(r.Context(), userID, user.Timezone, time.Now())
	if err != nil {
		logrus.WithError(err).Error("Failed to compute streak")
		http.Error(w, "Failed to compute streak", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"streak": streak})
}

// GetStatsHandler returns the caller's streak together with their most
// recent check-in time.
func (h *StatsHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	user, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch user for stats")
		http.Error(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}

	streak, err := h.Streaks.CurrentStreak(r.Context(), userID, user.Timezone, time.Now())
	if err != nil {
		logrus.WithError(err).Error("Failed to compute streak")
		http.Error(w, "Failed to compute streak", http.StatusInternalServerError)
		return
	}

	latest, err := h.CheckIns.LatestCheckIn(r.Context(), userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch latest check-in")
		http.Error(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}

	stats := struct {
		Username      string     `json:"username"`
		Streak        int        `json:"streak"`
		LastCheckInAt *time.Time `json:"last_check_in_at,omitempty"`
	}{
		Username: user.Username,
		Streak:   streak,
	}
	if latest != nil {
		stats.LastCheckInAt = &latest.CreatedAt
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
