package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"techheal/cmd/identity"
	"techheal/cmd/internal/activity"
	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/internal/genai"
)

// TextGenerator is the slice of AI behavior plan generation needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Handler serves plan generation, wellness scoring, and recipe generation.
type Handler struct {
	log        *slog.Logger
	gate       *authapi.Gate
	activities activity.Store
	ai         TextGenerator

	maxBodyBytes int64
}

// NewHandler wires the plan routes. ai may be nil; plans then always use the
// static fallback and recipes return 503.
func NewHandler(log *slog.Logger, gate *authapi.Gate, activities activity.Store, ai TextGenerator) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if gate == nil {
		return nil, fmt.Errorf("plan: nil gate")
	}
	if activities == nil {
		return nil, fmt.Errorf("plan: nil activity store")
	}
	return &Handler{
		log:          log,
		gate:         gate,
		activities:   activities,
		ai:           ai,
		maxBodyBytes: 1 << 20,
	}, nil
}

// Register wires plan routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /plan/generate-plan", h.handleGeneratePlan)
	mux.HandleFunc("GET /plan/wellness-score", h.handleWellnessScore)
	mux.HandleFunc("POST /plan/generate-recipe", h.handleGenerateRecipe)
}

func strOr(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return *p
}

// Plan is the generate-plan response.
type Plan struct {
	DailyCalories  int             `json:"daily_calories"`
	BMR            int             `json:"bmr"`
	TDEE           int             `json:"tdee"`
	Goal           string          `json:"goal"`
	Diet           string          `json:"diet"`
	MealPlan       json.RawMessage `json:"meal_plan"`
	WorkoutRoutine json.RawMessage `json:"workout_routine"`
	Tips           json.RawMessage `json:"tips,omitempty"`
	AIGenerated    bool            `json:"ai_generated"`
}

func (h *Handler) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	if u.Age == nil || u.WeightKg == nil || u.HeightCm == nil {
		authapi.WriteError(w, http.StatusBadRequest, "incomplete_profile",
			"Please complete your profile (age, weight, height) before generating a plan")
		return
	}

	goal := strOr(u.Goal, "maintain")
	diet := strOr(u.Diet, "balanced")
	level := strOr(u.ActivityLevel, "moderate")

	bmr := BMR(*u.WeightKg, *u.HeightCm, *u.Age, "male")
	tdee := TDEE(bmr, level)
	calories := AdjustForGoal(tdee, goal)

	p := Plan{
		DailyCalories: calories,
		BMR:           int(bmr),
		TDEE:          tdee,
		Goal:          goal,
		Diet:          diet,
	}

	if h.fillPlanFromAI(r.Context(), &p, u, bmr, tdee, calories) {
		h.log.Info("plan.generate.ai", "user_id", u.ID)
	} else {
		h.fillPlanFromFallback(&p)
		h.log.Info("plan.generate.fallback", "user_id", u.ID)
	}

	authapi.WriteJSON(w, http.StatusOK, p)
}

// fillPlanFromAI asks the model for a plan; false means the caller should use
// the static fallback.
func (h *Handler) fillPlanFromAI(ctx context.Context, p *Plan, u identity.User, bmr float64, tdee, calories int) bool {
	if h.ai == nil {
		return false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a personalized 7-day Mediterranean/Tunisian fitness and nutrition plan for a user with the following profile:\n")
	fmt.Fprintf(&b, "- Age: %d\n- Weight: %d kg\n- Height: %d cm\n", *u.Age, *u.WeightKg, *u.HeightCm)
	fmt.Fprintf(&b, "- Goal: %s\n- Diet preference: %s\n- Activity level: %s\n", p.Goal, p.Diet, strOr(u.ActivityLevel, "moderate"))
	fmt.Fprintf(&b, "- Daily calorie target: %d kcal\n- BMR: %d kcal\n- TDEE: %d kcal\n", calories, int(bmr), tdee)
	if u.HealthConditions != nil && *u.HealthConditions != "" {
		fmt.Fprintf(&b, "- Health conditions: %s\n", *u.HealthConditions)
	}
	b.WriteString(`
IMPORTANT: Focus on Mediterranean and Tunisian cuisine (couscous, tajine, brik, mechouia, harissa, olive oil, fish, etc.).
Keep meals HEALTHY and aligned with their goal.

Return ONLY a valid JSON object (no markdown, no code blocks) with this exact structure:
{
  "meal_plan": [{"day": 1, "breakfast": "meal name only", "lunch": "meal name only", "dinner": "meal name only"}],
  "workout_routine": [{"day": 1, "workout": "...", "duration": 45}],
  "tips": ["tip1", "tip2", "tip3"]
}

Just provide MEAL NAMES, not recipes or ingredients. Make it Mediterranean/Tunisian focused and healthy.`)

	text, err := h.ai.GenerateText(ctx, b.String())
	if err != nil {
		h.log.Info("plan.generate.ai_unavailable", "err", err)
		return false
	}

	var ai struct {
		MealPlan       json.RawMessage `json:"meal_plan"`
		WorkoutRoutine json.RawMessage `json:"workout_routine"`
		Tips           json.RawMessage `json:"tips"`
	}
	if err := json.Unmarshal(genai.ExtractJSON(text), &ai); err != nil {
		return false
	}
	if len(ai.MealPlan) == 0 || len(ai.WorkoutRoutine) == 0 {
		return false
	}

	p.MealPlan = ai.MealPlan
	p.WorkoutRoutine = ai.WorkoutRoutine
	p.Tips = ai.Tips
	p.AIGenerated = true
	return true
}

func (h *Handler) fillPlanFromFallback(p *Plan) {
	p.MealPlan, _ = json.Marshal(FallbackMealPlan(p.Diet))
	p.WorkoutRoutine, _ = json.Marshal(FallbackWorkoutRoutine(p.Goal))
	p.AIGenerated = false
}

func (h *Handler) handleWellnessScore(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	recent, err := h.activities.RecentActivities(r.Context(), u.ID, 7)
	if err != nil {
		h.log.Error("plan.wellness.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	authapi.WriteJSON(w, http.StatusOK, ComputeWellnessScore(u, len(recent)))
}

type recipeRequest struct {
	Ingredients string `json:"ingredients"`
}

func (h *Handler) handleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	var req recipeRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Ingredients) == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "Please provide ingredients")
		return
	}
	if h.ai == nil {
		authapi.WriteError(w, http.StatusServiceUnavailable, "ai_unavailable", "recipe generation is not configured")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a healthy Mediterranean/Tunisian recipe using these available ingredients:\n%s\n", req.Ingredients)
	if u.Diet != nil {
		fmt.Fprintf(&b, "- Diet preference: %s\n", *u.Diet)
	}
	if u.Goal != nil {
		fmt.Fprintf(&b, "- Health goal: %s\n", *u.Goal)
	}
	if u.HealthConditions != nil {
		fmt.Fprintf(&b, "- Health conditions: %s\n", *u.HealthConditions)
	}
	b.WriteString(`
IMPORTANT Guidelines:
- Focus on Mediterranean/Tunisian cooking style (use harissa, olive oil, cumin, coriander, etc.)
- Make it HEALTHY and nutritious
- Keep it simple and realistic
- Estimate calories and macros

Return ONLY a valid JSON object (no markdown, no code blocks) with this structure:
{
  "recipe_name": "...",
  "cuisine": "Mediterranean/Tunisian",
  "prep_time": "15 mins",
  "cook_time": "20 mins",
  "servings": 2,
  "ingredients": ["ingredient 1 with quantity"],
  "instructions": ["Step 1"],
  "nutrition": {"calories": 400, "protein_g": 25, "carbs_g": 35, "fat_g": 15},
  "health_benefits": "Brief description of health benefits"
}`)

	text, err := h.ai.GenerateText(r.Context(), b.String())
	if err != nil {
		h.log.Error("plan.recipe.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "ai_failed", "Recipe generation failed")
		return
	}

	h.log.Info("plan.recipe.ok", "user_id", u.ID)
	authapi.WriteJSON(w, http.StatusOK, genai.ExtractJSON(text))
}
