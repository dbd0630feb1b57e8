// Package authapi serves the account endpoints: registration, login, profile
// reads and updates, and profile picture upload.
package authapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"techheal/cmd/identity"
	"techheal/cmd/internal/storage"
	"techheal/cmd/security/token"
)

// ObjectStore is the slice of bucket behavior the profile picture upload
// needs. *storage.Bucket satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	URL(key string) string
}

// Handler wires HTTP account endpoints to the identity store and token codec.
type Handler struct {
	log *slog.Logger
	cfg Config

	store identity.Store
	codec *token.Codec
	gate  *Gate

	pictures ObjectStore

	dummyHash string
}

// NewHandler constructs the account Handler. pictures may be nil; the upload
// endpoint then returns 503.
func NewHandler(log *slog.Logger, cfg Config, store identity.Store, codec *token.Codec, gate *Gate, pictures ObjectStore) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("authapi: nil identity store")
	}
	if codec == nil {
		return nil, errors.New("authapi: nil token codec")
	}
	if gate == nil {
		gate = NewGate(identity.NewResolver(codec, store))
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		store:    store,
		codec:    codec,
		gate:     gate,
		pictures: pictures,
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Gate exposes the request gate so other route groups share one resolver.
func (h *Handler) Gate() *Gate {
	if h == nil {
		return nil
	}
	return h.gate
}

// Register wires account routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/me", h.handleMe)
	mux.HandleFunc("POST /auth/update-profile", h.handleUpdateProfile)
	mux.HandleFunc("POST /auth/upload-profile-picture", h.handleUploadPicture)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "username, email, and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	u, err := h.store.CreateUser(ctx, identity.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Profile: identity.ProfilePatch{
			Age:              req.Age,
			WeightKg:         req.WeightKg,
			HeightCm:         req.HeightCm,
			Goal:             req.Goal,
			Diet:             req.Diet,
			ActivityLevel:    req.ActivityLevel,
			HealthConditions: req.HealthConditions,
		},
		Now: now,
	})
	if err != nil {
		var conflict identity.ConflictError
		switch {
		case errors.As(err, &conflict):
			msg := "Username already taken"
			if conflict.Field == "email" {
				msg = "Email already registered"
			}
			WriteError(w, http.StatusBadRequest, "conflict", msg)
		case identity.IsInvalidInput(err):
			WriteError(w, http.StatusBadRequest, "invalid_request", "invalid registration data")
		default:
			h.log.Error("auth.register.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	access, _, err := h.codec.Issue(u.Email, now)
	if err != nil {
		h.log.Error("auth.register.token.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.register.ok", "user_id", u.ID)
	WriteJSON(w, http.StatusCreated, toTokenResponse(access, u))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	// The username field carries the account email.
	u, err := h.store.GetUserByEmail(ctx, req.Username)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.login.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		// Burn comparable time so a missing account is not distinguishable
		// by response latency.
		identity.VerifyPassword(req.Password, h.dummyHash)
		h.rejectLogin(w)
		return
	}

	if !identity.VerifyPassword(req.Password, u.PasswordHash) {
		h.log.Info("auth.login.bad_password", "user_id", u.ID)
		h.rejectLogin(w)
		return
	}

	access, _, err := h.codec.Issue(u.Email, now)
	if err != nil {
		h.log.Error("auth.login.token.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.login.ok", "user_id", u.ID)
	WriteJSON(w, http.StatusOK, toTokenResponse(access, u))
}

func (h *Handler) rejectLogin(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, "unauthorized", "Incorrect username or password")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	updated, err := h.store.UpdateProfile(r.Context(), u.ID, identity.ProfilePatch{
		Age:              req.Age,
		WeightKg:         req.WeightKg,
		HeightCm:         req.HeightCm,
		Goal:             req.Goal,
		Diet:             req.Diet,
		ActivityLevel:    req.ActivityLevel,
		HealthConditions: req.HealthConditions,
	}, time.Now().UTC())
	if err != nil {
		h.log.Error("auth.profile.update.fail", "err", err, "user_id", u.ID)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.profile.update.ok", "user_id", u.ID)
	WriteJSON(w, http.StatusOK, toUserResponse(updated))
}

func (h *Handler) handleUploadPicture(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}
	if h.pictures == nil {
		WriteError(w, http.StatusServiceUnavailable, "storage_unavailable", "object storage not configured")
		return
	}

	filename, contentType, data, err := readUpload(r, h.cfg.MaxUploadBytes)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_upload", "a file field is required")
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		WriteError(w, http.StatusBadRequest, "invalid_upload", "file must be an image")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	key := storage.NewKey("profiles", filename, now)

	if err := h.pictures.Put(ctx, key, contentType, data); err != nil {
		h.log.Error("auth.picture.store.fail", "err", err, "user_id", u.ID)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	url := h.pictures.URL(key)
	if _, err := h.store.UpdateProfile(ctx, u.ID, identity.ProfilePatch{ProfilePicture: &url}, now); err != nil {
		h.log.Error("auth.picture.update.fail", "err", err, "user_id", u.ID)
		WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.picture.ok", "user_id", u.ID, "key", key)
	WriteJSON(w, http.StatusOK, uploadPictureResponse{ProfilePicture: url})
}

// readUpload pulls the "file" part out of a multipart form.
func readUpload(r *http.Request, maxBytes int64) (filename, contentType string, data []byte, err error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return "", "", nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, err
	}
	defer func() { _ = file.Close() }()

	data, err = io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return "", "", nil, err
	}

	contentType = header.Header.Get("Content-Type")
	if mt, _, perr := mime.ParseMediaType(contentType); perr == nil {
		contentType = mt
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return header.Filename, contentType, data, nil
}
