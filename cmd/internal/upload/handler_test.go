package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"techheal/cmd/identity"
	activitypkg "techheal/cmd/internal/activity"
	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/security/token"
)

type fakeBucket struct {
	objects map[string][]byte
	types   map[string]string
	fail    bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBucket) Put(_ context.Context, key, contentType string, data []byte) error {
	if f.fail {
		return errors.New("bucket down")
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeBucket) URL(key string) string {
	return "http://localhost:9000/techheal/" + key
}

type fakeVision struct {
	text string
	err  error
}

func (f fakeVision) GenerateVision(_ context.Context, _, _ string, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeMeals struct {
	records []activitypkg.MealAnalysis
}

func (f *fakeMeals) CreateActivity(_ context.Context, _ activitypkg.CreateActivityInput) (activitypkg.Activity, error) {
	return activitypkg.Activity{}, errors.New("not implemented")
}
func (f *fakeMeals) RecentActivities(_ context.Context, _ string, _ int) ([]activitypkg.Activity, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeMeals) ActivitiesSince(_ context.Context, _ string, _ time.Time) ([]activitypkg.Activity, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeMeals) CreateMealAnalysis(_ context.Context, in activitypkg.CreateMealAnalysisInput) (activitypkg.MealAnalysis, error) {
	m := activitypkg.MealAnalysis{UserID: in.UserID, MealName: in.MealName, Analysis: in.Analysis, ImageURL: in.ImageURL}
	f.records = append(f.records, m)
	return m, nil
}
func (f *fakeMeals) RecentMealAnalyses(_ context.Context, _ string, _ int) ([]activitypkg.MealAnalysis, error) {
	return nil, errors.New("not implemented")
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

func newTestHandler(t *testing.T, bucket ObjectStore, ai VisionGenerator, meals activitypkg.Store) (*http.ServeMux, string) {
	t.Helper()

	codec, err := token.NewCodec(token.Config{Secret: []byte("test-secret-key-0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	user := identity.User{ID: "user-1", Email: "kai@example.com", EmailNorm: "kai@example.com"}
	gate := authapi.NewGate(identity.NewResolver(codec, fakeIdentity{user: user}))

	h, err := NewHandler(nil, gate, bucket, ai, meals)
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

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadStoresImageAndAnalysis(t *testing.T) {
	bucket := newFakeBucket()
	meals := &fakeMeals{}
	mux, access := newTestHandler(t, bucket, fakeVision{text: `{"calories": 420}`}, meals)

	body, contentType := multipartUpload(t, "lunch.jpg", []byte("fake image bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		URL      string          `json:"url"`
		Filename string          `json:"filename"`
		Analysis json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "http://localhost:9000/techheal/meals/") {
		t.Errorf("url = %q", resp.URL)
	}
	if string(resp.Analysis) != `{"calories": 420}` {
		t.Errorf("analysis = %s", resp.Analysis)
	}

	// image plus the sidecar analysis object
	if len(bucket.objects) != 2 {
		t.Fatalf("bucket holds %d objects, want 2", len(bucket.objects))
	}
	if _, ok := bucket.objects[resp.Filename+".analysis.json"]; !ok {
		t.Errorf("missing analysis sidecar for %q", resp.Filename)
	}

	if len(meals.records) != 1 {
		t.Fatalf("recorded %d meal analyses, want 1", len(meals.records))
	}
	if meals.records[0].MealName != "lunch" {
		t.Errorf("meal name = %q, want lunch", meals.records[0].MealName)
	}
}

func TestUploadDegradesWhenAIFails(t *testing.T) {
	bucket := newFakeBucket()
	mux, access := newTestHandler(t, bucket, fakeVision{err: errors.New("quota")}, nil)

	body, contentType := multipartUpload(t, "dinner.png", []byte("fake image bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "AI analysis failed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestUploadRequiresFile(t *testing.T) {
	mux, access := newTestHandler(t, newFakeBucket(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload/", strings.NewReader("not multipart"))
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload = %d, want 400", rec.Code)
	}
}

func TestUploadFailsWhenBucketDown(t *testing.T) {
	bucket := newFakeBucket()
	bucket.fail = true
	mux, access := newTestHandler(t, bucket, nil, nil)

	body, contentType := multipartUpload(t, "lunch.jpg", []byte("fake image bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("upload = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Upload failed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
