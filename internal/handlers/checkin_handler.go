package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/podpulse/podpulse/internal/services"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckInHandler handles HTTP requests related to check-ins.
type CheckInHandler struct {
	Service *services.CheckInService
}

// NewCheckInHandler creates a new instance of CheckInHandler.
func NewCheckInHandler(service *services.CheckInService) *CheckInHandler {
	return &CheckInHandler{Service: service}
}

// CreateCheckInHandler handles the creation of a new check-in.
func (h *CheckInHandler) CreateCheckInHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Note   string `json:"note"`
		GoalID string `json:"goal_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during check-in creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		logrus.WithError(err).Error("Failed to convert user ID")
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	checkIn, err := h.Service.CreateCheckIn(r.Context(), userID, payload.GoalID, payload.Note)
	if err != nil {
		if errs.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logrus.WithError(err).Error("Failed to create check-in")
		http.Error(w, "Failed to create check-in", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(checkIn)
}

// GetTodaysCheckInsHandler returns the caller's check-ins for their
// current local day, newest first.
func (h *CheckInHandler) GetTodaysCheckInsHandler(w http.ResponseWriter, r *http.Request) {
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

	checkIns, err := h.Service.TodaysCheckIns(r.Context(), userID)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch today's check-ins")
		http.Error(w, "Failed to fetch check-ins", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkIns)
}
