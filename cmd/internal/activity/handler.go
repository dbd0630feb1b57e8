package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"techheal/cmd/identity"
	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/internal/genai"
)

// TextGenerator is the slice of AI behavior the meal analysis needs.
// *genai.Client satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Handler serves the activity tracking and meal analysis endpoints.
type Handler struct {
	log   *slog.Logger
	store Store
	gate  *authapi.Gate
	ai    TextGenerator

	maxBodyBytes int64
}

// NewHandler wires the activity routes. ai may be nil; meal analysis then
// degrades to a stored note.
func NewHandler(log *slog.Logger, store Store, gate *authapi.Gate, ai TextGenerator) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, fmt.Errorf("activity: nil store")
	}
	if gate == nil {
		return nil, fmt.Errorf("activity: nil gate")
	}
	return &Handler{
		log:          log,
		store:        store,
		gate:         gate,
		ai:           ai,
		maxBodyBytes: 1 << 20,
	}, nil
}

// Register wires activity routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /activity/track-activity", h.handleTrack)
	mux.HandleFunc("GET /activity/recent", h.handleRecent)
	mux.HandleFunc("POST /activity/meal-analysis", h.handleMealAnalysis)
	mux.HandleFunc("GET /activity/meal-insights", h.handleMealInsights)
	mux.HandleFunc("GET /activity/stats", h.handleStats)
}

type trackRequest struct {
	ActivityType    string  `json:"activity_type"`
	DurationMinutes int     `json:"duration_minutes"`
	Intensity       *string `json:"intensity,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

func (h *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	var req trackRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	a, err := h.store.CreateActivity(r.Context(), CreateActivityInput{
		UserID:          u.ID,
		ActivityType:    req.ActivityType,
		DurationMinutes: req.DurationMinutes,
		Intensity:       req.Intensity,
		Notes:           req.Notes,
		Now:             time.Now().UTC(),
	})
	if err != nil {
		if identity.IsInvalidInput(err) {
			authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "activity_type and a positive duration_minutes are required")
			return
		}
		h.log.Error("activity.track.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("activity.track.ok", "user_id", u.ID, "type", a.ActivityType, "minutes", a.DurationMinutes)
	authapi.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	entries, err := h.store.RecentActivities(r.Context(), u.ID, 10)
	if err != nil {
		h.log.Error("activity.recent.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	authapi.WriteJSON(w, http.StatusOK, entries)
}

// mealAnalysisRequest saves either a ready-made analysis (the payload the
// photo upload returned) or a meal description to analyze server-side.
type mealAnalysisRequest struct {
	MealName    string          `json:"meal_name"`
	Description string          `json:"description"`
	ImageURI    *string         `json:"image_uri"`
	Analysis    json.RawMessage `json:"analysis"`
}

func (h *Handler) handleMealAnalysis(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	var req mealAnalysisRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if len(req.Analysis) == 0 && strings.TrimSpace(req.MealName) == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "an analysis or a meal_name is required")
		return
	}

	ctx := r.Context()

	analysis := req.Analysis
	if len(analysis) == 0 {
		analysis = h.analyzeMeal(ctx, req.MealName, req.Description)
	} else if !json.Valid(analysis) {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "analysis must be valid JSON")
		return
	}

	m, err := h.store.CreateMealAnalysis(ctx, CreateMealAnalysisInput{
		UserID:   u.ID,
		MealName: req.MealName,
		Analysis: analysis,
		ImageURL: req.ImageURI,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("activity.meal.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("activity.meal.ok", "user_id", u.ID, "meal", m.MealName)
	authapi.WriteJSON(w, http.StatusCreated, m)
}

// analyzeMeal asks the model for a nutritional breakdown. AI failures degrade
// to a stored note so tracking keeps working offline.
func (h *Handler) analyzeMeal(ctx context.Context, mealName, description string) []byte {
	if h.ai == nil {
		return []byte(`{"note":"AI analysis unavailable"}`)
	}

	prompt := fmt.Sprintf(
		"Analyze the nutritional content of this meal: %s. %s\n"+
			"Respond with only a JSON object with keys: calories (number), "+
			"protein_g (number), carbs_g (number), fat_g (number), "+
			"health_notes (string).",
		mealName, description)

	text, err := h.ai.GenerateText(ctx, prompt)
	if err != nil {
		h.log.Info("activity.meal.ai_unavailable", "err", err)
		return []byte(`{"note":"AI analysis unavailable"}`)
	}
	return genai.ExtractJSON(text)
}

func (h *Handler) handleMealInsights(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	insights, err := h.store.RecentMealAnalyses(r.Context(), u.ID, 20)
	if err != nil {
		h.log.Error("activity.insights.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	authapi.WriteJSON(w, http.StatusOK, insights)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	// Pull a wider window than the weekly totals need so a long streak
	// survives the cutoff.
	entries, err := h.store.ActivitiesSince(r.Context(), u.ID, now.AddDate(0, 0, -90))
	if err != nil {
		h.log.Error("activity.stats.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	authapi.WriteJSON(w, http.StatusOK, ComputeStats(entries, now))
}
