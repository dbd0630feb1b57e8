package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"techheal/cmd/identity"
	"techheal/cmd/security/token"
)

// memStore is an in-memory identity.Store for handler tests.
type memStore struct {
	seq   int
	users map[string]identity.User // keyed by email_norm
}

func newMemStore() *memStore {
	return &memStore{users: map[string]identity.User{}}
}

func (m *memStore) CreateUser(_ context.Context, in identity.CreateUserInput) (identity.User, error) {
	emailNorm := identity.NormalizeEmail(in.Email)
	usernameNorm := identity.NormalizeUsername(in.Username)

	if _, ok := m.users[emailNorm]; ok {
		return identity.User{}, identity.ConflictError{Op: "mem.CreateUser", Field: "email"}
	}
	for _, u := range m.users {
		if u.UsernameNorm == usernameNorm {
			return identity.User{}, identity.ConflictError{Op: "mem.CreateUser", Field: "username"}
		}
	}

	hash, err := identity.HashPassword(in.Password)
	if err != nil {
		return identity.User{}, err
	}

	m.seq++
	u := identity.User{
		ID:           fmt.Sprintf("user-%d", m.seq),
		Username:     in.Username,
		UsernameNorm: usernameNorm,
		Email:        in.Email,
		EmailNorm:    emailNorm,
		PasswordHash: hash,
		Age:          in.Profile.Age,
		WeightKg:     in.Profile.WeightKg,
		HeightCm:     in.Profile.HeightCm,
		Goal:         in.Profile.Goal,
		Diet:         in.Profile.Diet,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}
	m.users[emailNorm] = u
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (identity.User, error) {
	u, ok := m.users[identity.NormalizeEmail(email)]
	if !ok {
		return identity.User{}, identity.OpError{Op: "mem.GetUserByEmail", Kind: identity.ErrNotFound}
	}
	return u, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (identity.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return identity.User{}, identity.OpError{Op: "mem.GetUserByID", Kind: identity.ErrNotFound}
}

func (m *memStore) UpdateProfile(_ context.Context, userID string, patch identity.ProfilePatch, now time.Time) (identity.User, error) {
	for key, u := range m.users {
		if u.ID != userID {
			continue
		}
		if patch.Age != nil {
			u.Age = patch.Age
		}
		if patch.WeightKg != nil {
			u.WeightKg = patch.WeightKg
		}
		if patch.HeightCm != nil {
			u.HeightCm = patch.HeightCm
		}
		if patch.Goal != nil {
			u.Goal = patch.Goal
		}
		if patch.Diet != nil {
			u.Diet = patch.Diet
		}
		if patch.ActivityLevel != nil {
			u.ActivityLevel = patch.ActivityLevel
		}
		if patch.HealthConditions != nil {
			u.HealthConditions = patch.HealthConditions
		}
		if patch.ProfilePicture != nil {
			u.ProfilePicture = patch.ProfilePicture
		}
		u.UpdatedAt = now
		m.users[key] = u
		return u, nil
	}
	return identity.User{}, identity.OpError{Op: "mem.UpdateProfile", Kind: identity.ErrNotFound}
}

func newTestMux(t *testing.T) (*http.ServeMux, *memStore) {
	t.Helper()

	codec, err := token.NewCodec(token.Config{
		Secret: []byte("test-secret-key-0123456789abcdef"),
		Issuer: "techheal-test",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	store := newMemStore()
	h, err := NewHandler(nil, Config{MaxBodyBytes: 1 << 20, MaxUploadBytes: 1 << 20}, store, codec, nil, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "kai",
		"email":    "kai@example.com",
		"password": "strong-password",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d, body %s", rec.Code, rec.Body.String())
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if tok.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", tok.TokenType)
	}
	return tok.AccessToken
}

func TestRegisterAndLoginEchoProfile(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "kai",
		"email":    "kai@example.com",
		"password": "strong-password",
		"age":      29,
		"weight":   72,
		"goal":     "lose",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d, body %s", rec.Code, rec.Body.String())
	}

	var reg map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if reg["age"] != float64(29) || reg["goal"] != "lose" {
		t.Fatalf("register did not echo the profile: %s", rec.Body.String())
	}
	// Unset fields still serialize, as null.
	if v, ok := reg["height"]; !ok || v != nil {
		t.Fatalf("height = %v (present=%v), want null", v, ok)
	}

	rec = doJSON(t, mux, http.MethodPost, "/auth/login", "", map[string]any{
		"username": "kai@example.com",
		"password": "strong-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d, body %s", rec.Code, rec.Body.String())
	}

	var login map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login["access_token"] == "" || login["token_type"] != "bearer" {
		t.Fatalf("login token fields missing: %s", rec.Body.String())
	}
	if login["age"] != float64(29) || login["weight"] != float64(72) {
		t.Fatalf("login did not echo the profile: %s", rec.Body.String())
	}
}

func TestRegisterThenMe(t *testing.T) {
	mux, _ := newTestMux(t)
	access := registerAndLogin(t, mux)

	rec := doJSON(t, mux, http.MethodGet, "/auth/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d, body %s", rec.Code, rec.Body.String())
	}

	var u userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if u.Email != "kai@example.com" || u.Username != "kai" {
		t.Fatalf("me returned %+v", u)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mux, _ := newTestMux(t)
	registerAndLogin(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/auth/register", "", map[string]any{
		"username": "other",
		"email":    "KAI@example.com",
		"password": "another-password",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Email already registered") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRegisterIgnoresUnknownFields(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/auth/register", "", map[string]any{
		"username":     "kai",
		"email":        "kai@example.com",
		"password":     "strong-password",
		"devicePushId": "abc123", // clients send keys the server never modeled
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register with extra field = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestLogin(t *testing.T) {
	mux, _ := newTestMux(t)
	registerAndLogin(t, mux)

	// username carries the email
	rec := doJSON(t, mux, http.MethodPost, "/auth/login", "", map[string]any{
		"username": "kai@example.com",
		"password": "strong-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d, body %s", rec.Code, rec.Body.String())
	}

	cases := []struct {
		name               string
		username, password string
	}{
		{"wrong password", "kai@example.com", "wrong-password"},
		{"unknown account", "nobody@example.com", "strong-password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/auth/login", "", map[string]any{
				"username": tc.username,
				"password": tc.password,
			})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("login = %d, want 401", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Incorrect username or password") {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestMeRejectsBadCredentials(t *testing.T) {
	mux, _ := newTestMux(t)

	cases := []struct {
		name   string
		bearer string
	}{
		{"missing token", ""},
		{"garbage token", "not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodGet, "/auth/me", tc.bearer, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("me = %d, want 401", rec.Code)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Fatalf("WWW-Authenticate = %q, want Bearer", got)
			}
			if !strings.Contains(rec.Body.String(), "could not validate credentials") {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	mux, store := newTestMux(t)
	access := registerAndLogin(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/auth/update-profile", access, map[string]any{
		"age":    31,
		"weight": 78,
		"goal":   "lose",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, body %s", rec.Code, rec.Body.String())
	}

	u, err := store.GetUserByEmail(context.Background(), "kai@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.Age == nil || *u.Age != 31 {
		t.Errorf("age not updated: %+v", u.Age)
	}
	if u.WeightKg == nil || *u.WeightKg != 78 {
		t.Errorf("weight not updated: %+v", u.WeightKg)
	}
	if u.Goal == nil || *u.Goal != "lose" {
		t.Errorf("goal not updated: %+v", u.Goal)
	}
	if u.HeightCm != nil {
		t.Errorf("height should stay unset, got %+v", u.HeightCm)
	}
}

func TestGateQueryParameterFallback(t *testing.T) {
	codec, err := token.NewCodec(token.Config{
		Secret: []byte("test-secret-key-0123456789abcdef"),
		Issuer: "techheal-test",
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	store := newMemStore()
	if _, err := store.CreateUser(context.Background(), identity.CreateUserInput{
		Username: "kai",
		Email:    "kai@example.com",
		Password: "strong-password",
		Now:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	gate := NewGate(identity.NewResolver(codec, store))
	access, _, err := codec.Issue("kai@example.com", time.Now().UTC())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Plain Require ignores the query parameter.
	req := httptest.NewRequest(http.MethodGet, "/?access_token="+access, nil)
	rec := httptest.NewRecorder()
	if _, ok := gate.Require(rec, req); ok {
		t.Fatal("Require accepted a query-parameter token")
	}

	// RequireWithQuery accepts it.
	req = httptest.NewRequest(http.MethodGet, "/?access_token="+access, nil)
	rec = httptest.NewRecorder()
	u, ok := gate.RequireWithQuery(rec, req)
	if !ok {
		t.Fatalf("RequireWithQuery rejected a valid query token: %s", rec.Body.String())
	}
	if u.Email != "kai@example.com" {
		t.Fatalf("resolved %q", u.Email)
	}

	// The Authorization header still works on the fallback path.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	if _, ok := gate.RequireWithQuery(rec, req); !ok {
		t.Fatalf("RequireWithQuery rejected a header token: %s", rec.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer  abc ", "abc"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := BearerToken(req); got != tc.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
