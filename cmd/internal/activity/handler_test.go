package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"techheal/cmd/identity"
	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/security/token"
)

type fakeStore struct {
	activities []Activity
	meals      []MealAnalysis
}

func (f *fakeStore) CreateActivity(_ context.Context, in CreateActivityInput) (Activity, error) {
	if in.ActivityType == "" || in.DurationMinutes <= 0 {
		return Activity{}, identity.OpError{Op: "fake.CreateActivity", Kind: identity.ErrInvalidInput}
	}
	a := Activity{
		ID:              "act-1",
		UserID:          in.UserID,
		ActivityType:    in.ActivityType,
		DurationMinutes: in.DurationMinutes,
		Intensity:       in.Intensity,
		Notes:           in.Notes,
		CreatedAt:       in.Now,
	}
	f.activities = append(f.activities, a)
	return a, nil
}

func (f *fakeStore) RecentActivities(_ context.Context, userID string, limit int) ([]Activity, error) {
	out := []Activity{}
	for _, a := range f.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ActivitiesSince(_ context.Context, userID string, _ time.Time) ([]Activity, error) {
	return f.RecentActivities(context.Background(), userID, len(f.activities))
}

func (f *fakeStore) CreateMealAnalysis(_ context.Context, in CreateMealAnalysisInput) (MealAnalysis, error) {
	m := MealAnalysis{
		ID:        "meal-1",
		UserID:    in.UserID,
		MealName:  in.MealName,
		Analysis:  in.Analysis,
		ImageURL:  in.ImageURL,
		CreatedAt: in.Now,
	}
	f.meals = append(f.meals, m)
	return m, nil
}

func (f *fakeStore) RecentMealAnalyses(_ context.Context, userID string, limit int) ([]MealAnalysis, error) {
	out := []MealAnalysis{}
	for _, m := range f.meals {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeIdentity struct{ user identity.User }

func (f fakeIdentity) CreateUser(_ context.Context, _ identity.CreateUserInput) (identity.User, error) {
	return identity.User{}, errors.New("not implemented")
}
func (f fakeIdentity) GetUserByEmail(_ context.Context, email string) (identity.User, error) {
	if identity.NormalizeEmail(email) == f.user.EmailNorm {
		return f.user, nil
	}
	return identity.User{}, identity.OpError{Op: "fake.GetUserByEmail", Kind: identity.ErrNotFound}
}
func (f fakeIdentity) GetUserByID(_ context.Context, _ string) (identity.User, error) {
	return f.user, nil
}
func (f fakeIdentity) UpdateProfile(_ context.Context, _ string, _ identity.ProfilePatch, _ time.Time) (identity.User, error) {
	return identity.User{}, errors.New("not implemented")
}

type fakeAI struct {
	text  string
	err   error
	calls int
}

func (f *fakeAI) GenerateText(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func newTestHandler(t *testing.T, store Store, ai TextGenerator) (*http.ServeMux, string) {
	t.Helper()

	codec, err := token.NewCodec(token.Config{Secret: []byte("test-secret-key-0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	user := identity.User{ID: "user-1", Email: "kai@example.com", EmailNorm: "kai@example.com"}
	gate := authapi.NewGate(identity.NewResolver(codec, fakeIdentity{user: user}))

	h, err := NewHandler(nil, store, gate, ai)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)

	access, _, err := codec.Issue(user.Email, time.Now().UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return mux, access
}

func do(t *testing.T, mux *http.ServeMux, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestTrackActivity(t *testing.T) {
	store := &fakeStore{}
	mux, access := newTestHandler(t, store, nil)

	rec := do(t, mux, http.MethodPost, "/activity/track-activity", access, map[string]any{
		"activity_type":    "running",
		"duration_minutes": 30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("track = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(store.activities) != 1 {
		t.Fatalf("stored %d activities, want 1", len(store.activities))
	}
	if store.activities[0].UserID != "user-1" {
		t.Fatalf("activity recorded for %q", store.activities[0].UserID)
	}
}

func TestTrackActivityValidation(t *testing.T) {
	mux, access := newTestHandler(t, &fakeStore{}, nil)

	rec := do(t, mux, http.MethodPost, "/activity/track-activity", access, map[string]any{
		"activity_type":    "running",
		"duration_minutes": 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("track = %d, want 400", rec.Code)
	}
}

func TestTrackActivityRequiresAuth(t *testing.T) {
	mux, _ := newTestHandler(t, &fakeStore{}, nil)

	rec := do(t, mux, http.MethodPost, "/activity/track-activity", "", map[string]any{
		"activity_type":    "running",
		"duration_minutes": 30,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("track = %d, want 401", rec.Code)
	}
}

func TestMealAnalysisDegradesWithoutAI(t *testing.T) {
	store := &fakeStore{}
	mux, access := newTestHandler(t, store, &fakeAI{err: errors.New("quota")})

	rec := do(t, mux, http.MethodPost, "/activity/meal-analysis", access, map[string]any{
		"meal_name": "couscous",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("meal-analysis = %d, body %s", rec.Code, rec.Body.String())
	}

	var m MealAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var note struct {
		Note string `json:"note"`
	}
	if err := json.Unmarshal(m.Analysis, &note); err != nil || note.Note == "" {
		t.Fatalf("analysis = %s, want a note", m.Analysis)
	}
}

func TestMealAnalysisParsesModelOutput(t *testing.T) {
	store := &fakeStore{}
	mux, access := newTestHandler(t, store, &fakeAI{text: "```json\n{\"calories\": 420}\n```"})

	rec := do(t, mux, http.MethodPost, "/activity/meal-analysis", access, map[string]any{
		"meal_name": "couscous",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("meal-analysis = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(store.meals) != 1 {
		t.Fatalf("stored %d analyses, want 1", len(store.meals))
	}
	if string(store.meals[0].Analysis) != `{"calories": 420}` {
		t.Fatalf("analysis = %s", store.meals[0].Analysis)
	}
}

func TestMealAnalysisStoresClientPayload(t *testing.T) {
	store := &fakeStore{}
	ai := &fakeAI{text: `{"should":"not be used"}`}
	mux, access := newTestHandler(t, store, ai)

	rec := do(t, mux, http.MethodPost, "/activity/meal-analysis", access, map[string]any{
		"image_uri": "http://minio/meals/2026/09/01/abc.jpg",
		"analysis":  map[string]any{"calories": 300},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("meal-analysis = %d, body %s", rec.Code, rec.Body.String())
	}
	if ai.calls != 0 {
		t.Fatalf("AI was called %d times for a client-provided analysis", ai.calls)
	}
	if len(store.meals) != 1 {
		t.Fatalf("stored %d analyses, want 1", len(store.meals))
	}

	m := store.meals[0]
	if m.ImageURL == nil || *m.ImageURL != "http://minio/meals/2026/09/01/abc.jpg" {
		t.Fatalf("image uri not saved: %+v", m.ImageURL)
	}
	var saved struct {
		Calories int `json:"calories"`
	}
	if err := json.Unmarshal(m.Analysis, &saved); err != nil || saved.Calories != 300 {
		t.Fatalf("analysis = %s", m.Analysis)
	}
}

func TestMealAnalysisRequiresPayloadOrName(t *testing.T) {
	mux, access := newTestHandler(t, &fakeStore{}, nil)

	rec := do(t, mux, http.MethodPost, "/activity/meal-analysis", access, map[string]any{
		"image_uri": "http://minio/meals/abc.jpg",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("meal-analysis = %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{activities: []Activity{
		{UserID: "user-1", ActivityType: "running", DurationMinutes: 30, CreatedAt: now},
		{UserID: "user-1", ActivityType: "cycling", DurationMinutes: 20, CreatedAt: now.AddDate(0, 0, -1)},
		{UserID: "someone-else", ActivityType: "yoga", DurationMinutes: 60, CreatedAt: now},
	}}
	mux, access := newTestHandler(t, store, nil)

	rec := do(t, mux, http.MethodGet, "/activity/stats", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d, body %s", rec.Code, rec.Body.String())
	}

	var s Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalActivities != 2 {
		t.Errorf("TotalActivities = %d, want 2", s.TotalActivities)
	}
	if s.TotalMinutes != 50 {
		t.Errorf("TotalMinutes = %d, want 50", s.TotalMinutes)
	}
	if s.CaloriesBurned != 300 {
		t.Errorf("CaloriesBurned = %d, want 300", s.CaloriesBurned)
	}
	if s.Streak != 2 {
		t.Errorf("Streak = %d, want 2", s.Streak)
	}
}
