package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/podpulse/podpulse/internal/services"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PodHandler handles HTTP requests related to pods and their feeds.
type PodHandler struct {
	Pods  *services.PodService
	Feeds *services.FeedService
}

// NewPodHandler creates a new instance of PodHandler.
func NewPodHandler(pods *services.PodService, feeds *services.FeedService) *PodHandler {
	return &PodHandler{Pods: pods, Feeds: feeds}
}

// CreatePodHandler handles the creation of a new pod.
func (h *PodHandler) CreatePodHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Name      string `json:"name"`
		Tagline   string `json:"tagline,omitempty"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	pod, err := h.Pods.CreatePod(r.Context(), userID, payload.Name, payload.Tagline, payload.IsPrivate)
	if err != nil {
		if errs.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logrus.WithError(err).Error("Failed to create pod")
		http.Error(w, "Failed to create pod", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(pod)
}

// ListPodsHandler lists the public pods open for joining.
func (h *PodHandler) ListPodsHandler(w http.ResponseWriter, r *http.Request) {
	pods, err := h.Pods.PublicPods(r.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to list pods")
		http.Error(w, "Failed to list pods", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pods)
}

// JoinPodHandler moves the caller into the given pod, superseding any
// previous membership.
func (h *PodHandler) JoinPodHandler(w http.ResponseWriter, r *http.Request) {
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

	pod, err := h.Pods.JoinPod(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		if errs.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logrus.WithError(err).Error("Failed to join pod")
		http.Error(w, "Failed to join pod", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pod)
}

// GetFeedHandler returns the aggregated feed for a pod.
func (h *PodHandler) GetFeedHandler(w http.ResponseWriter, r *http.Request) {
	podID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid pod ID", http.StatusBadRequest)
		return
	}

	feed, err := h.Feeds.FeedFor(r.Context(), podID)
	if err != nil {
		logrus.WithError(err).WithField("pod_id", podID.Hex()).Error("Failed to aggregate feed")
		http.Error(w, "Failed to aggregate feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(feed)
}
