// Package upload accepts meal photos, stores them in the bucket, and attaches
// an AI nutritional analysis.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	activitypkg "techheal/cmd/internal/activity"
	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/internal/genai"
	"techheal/cmd/internal/storage"
)

// VisionGenerator is the slice of AI behavior image analysis needs.
// *genai.Client satisfies it.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, prompt, mimeType string, image []byte) (string, error)
}

// ObjectStore is the slice of bucket behavior uploads need.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	URL(key string) string
}

const visionPrompt = "Analyze this meal image and return ONLY a valid JSON object (no markdown, no code blocks, no extra text) " +
	"with these exact keys: description (string), calories (number), protein_g (number), carbs_g (number), " +
	"fat_g (number), rating (number 1-10), suggestion (string with health tip). " +
	"Provide realistic estimates based on the visible food."

// Handler serves the meal photo upload endpoint.
type Handler struct {
	log     *slog.Logger
	gate    *authapi.Gate
	bucket  ObjectStore
	ai      VisionGenerator
	meals   activitypkg.Store

	maxUploadBytes int64
}

// NewHandler wires the upload route. ai may be nil; uploads then carry a note
// instead of an analysis. meals may be nil; analyses are then not persisted.
func NewHandler(log *slog.Logger, gate *authapi.Gate, bucket ObjectStore, ai VisionGenerator, meals activitypkg.Store) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if gate == nil {
		return nil, fmt.Errorf("upload: nil gate")
	}
	if bucket == nil {
		return nil, fmt.Errorf("upload: nil bucket")
	}
	return &Handler{
		log:            log,
		gate:           gate,
		bucket:         bucket,
		ai:             ai,
		meals:          meals,
		maxUploadBytes: 10 << 20,
	}, nil
}

// Register wires the upload route onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /upload/", h.handleUpload)
	mux.HandleFunc("POST /upload", h.handleUpload)
}

type uploadResponse struct {
	URL      string          `json:"url"`
	Filename string          `json:"filename"`
	Analysis json.RawMessage `json:"analysis"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_upload", "a file field is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_upload", "a file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_upload", "could not read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mt, _, perr := mime.ParseMediaType(contentType); perr == nil {
		contentType = mt
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	ctx := r.Context()
	now := time.Now().UTC()
	key := storage.NewKey("meals", header.Filename, now)

	if err := h.bucket.Put(ctx, key, contentType, data); err != nil {
		h.log.Error("upload.store.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "server_error", "Upload failed")
		return
	}

	analysis := h.analyzeImage(ctx, contentType, data)

	// Best effort: park the analysis next to the image for later retrieval.
	if err := h.bucket.Put(ctx, key+".analysis.json", "application/json", analysis); err != nil {
		h.log.Info("upload.analysis.store.fail", "err", err, "key", key)
	}

	if h.meals != nil {
		url := h.bucket.URL(key)
		if _, err := h.meals.CreateMealAnalysis(ctx, activitypkg.CreateMealAnalysisInput{
			UserID:   u.ID,
			MealName: mealNameFromFilename(header.Filename),
			Analysis: analysis,
			ImageURL: &url,
			Now:      now,
		}); err != nil {
			h.log.Info("upload.analysis.record.fail", "err", err, "user_id", u.ID)
		}
	}

	h.log.Info("upload.ok", "user_id", u.ID, "key", key, "bytes", len(data))
	authapi.WriteJSON(w, http.StatusCreated, uploadResponse{
		URL:      h.bucket.URL(key),
		Filename: key,
		Analysis: analysis,
	})
}

// analyzeImage asks the vision model for a nutritional breakdown. Failures
// never fail the upload; they degrade to a stored note.
func (h *Handler) analyzeImage(ctx context.Context, contentType string, data []byte) json.RawMessage {
	if h.ai == nil {
		return []byte(`{"note":"AI analysis unavailable"}`)
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}

	text, err := h.ai.GenerateVision(ctx, visionPrompt, contentType, data)
	if err != nil {
		h.log.Info("upload.analysis.ai_unavailable", "err", err)
		note, _ := json.Marshal(map[string]string{"note": "AI analysis failed: " + err.Error()})
		return note
	}
	return genai.ExtractJSON(text)
}

func mealNameFromFilename(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "uploaded meal"
	}
	return name
}
