package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/aggregate"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// maxUploadBytes bounds multipart request bodies. Video files dominate; the
// limit is generous but finite.
const maxUploadBytes = 256 << 20

// UserHandler serves account registration, the session lifecycle, profile
// updates, and the channel/history views.
type UserHandler struct {
	users    UserStore
	sessions SessionService
	content  ContentStore
	hasher   auth.PasswordHasher
	engine   *aggregate.Engine
	secure   bool
}

// NewUserHandler wires the user endpoints.
func NewUserHandler(users UserStore, sessions SessionService, content ContentStore, hasher auth.PasswordHasher, engine *aggregate.Engine, secureCookies bool) *UserHandler {
	return &UserHandler{
		users:    users,
		sessions: sessions,
		content:  content,
		hasher:   hasher,
		engine:   engine,
		secure:   secureCookies,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register. The request is multipart:
// text fields plus an avatar file (required) and cover image (optional). The
// avatar is uploaded before the account row is written, so a duplicate
// username or email is checked up front to avoid orphaning the upload.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := r.FormValue("password")

	if fullName == "" || email == "" || username == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName, email, username, and password are required")
		return
	}

	for _, identifier := range []string{username, email} {
		if _, err := h.users.FindByHandleOrEmail(ctx, identifier); err == nil {
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			respondStoreError(ctx, w, err, "")
			return
		}
	}

	avatar, err := h.uploadFormFile(ctx, r, "avatar", "avatars")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
			return
		}
		logging.FromContext(ctx).Error("upload avatar", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	var cover storage.UploadResult
	if cover, err = h.uploadFormFile(ctx, r, "coverImage", "covers"); err != nil && !errors.Is(err, http.ErrMissingFile) {
		logging.FromContext(ctx).Error("upload cover image", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
		return
	}

	hash, err := h.hasher.Hash(password)
	if err != nil {
		logging.FromContext(ctx).Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatar.URL,
		AvatarKey:     avatar.Key,
		CoverImageURL: cover.URL,
		CoverImageKey: cover.Key,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		}
		respondStoreError(ctx, w, err, "")
		return
	}

	created, err := h.users.FindByID(ctx, user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found after registration")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, created.Public(), "user registered successfully")
}

// Login handles POST /api/v1/users/login. The identifier may arrive in either
// the username or email field. An unknown account and a wrong password are
// reported distinctly.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Username))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, tokens, err := h.sessions.Login(ctx, identifier, req.Password)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "user does not exist")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(ctx, w, http.StatusUnauthorized, "invalid user credentials")
		return
	case err != nil:
		logging.FromContext(ctx).Error("login", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookies(w, tokens, h.secure)
	respondJSON(ctx, w, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout. The persisted refresh token is
// cleared so the pair in flight cannot be refreshed again.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.sessions.Logout(ctx, identity.ID); err != nil {
		logging.FromContext(ctx).Error("logout", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	clearSessionCookies(w, h.secure)
	respondJSON(ctx, w, http.StatusOK, nil, "user logged out successfully")
}

// Refresh handles POST /api/v1/users/refresh-token. The incoming refresh
// token is read from the cookie or the JSON body; on success the rotated pair
// replaces both cookies.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = body.RefreshToken
		}
	}
	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.sessions.Refresh(ctx, token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		respondError(ctx, w, http.StatusUnauthorized, "refresh token expired")
		return
	case err != nil:
		respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	setSessionCookies(w, tokens, h.secure)
	respondJSON(ctx, w, http.StatusOK, map[string]string{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	}, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password. The current
// password must verify against the stored hash before the new one is set.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}

	// The context identity is stripped of credentials; reload the record to
	// verify against the stored hash.
	user, err := h.users.FindByID(ctx, identity.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	if !h.hasher.Verify(req.OldPassword, user.PasswordHash) {
		respondError(ctx, w, http.StatusBadRequest, "invalid old password")
		return
	}

	hash, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		logging.FromContext(ctx).Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	respondJSON(ctx, w, http.StatusOK, identity, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account. Only full name
// and email are mutable here.
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName and email are required")
		return
	}

	if err := h.users.UpdateAccount(ctx, identity.ID, fullName, email); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	updated, err := h.users.FindByID(ctx, identity.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated.Public(), "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "avatars",
		func(u models.User) string { return u.AvatarKey },
		h.users.UpdateAvatar,
		"avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "covers",
		func(u models.User) string { return u.CoverImageKey },
		h.users.UpdateCoverImage,
		"cover image updated successfully")
}

func (h *UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field, prefix string,
	oldKey func(models.User) string,
	persist func(ctx context.Context, id, url, key string) error,
	message string,
) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	current, err := h.users.FindByID(ctx, identity.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	uploaded, err := h.uploadFormFile(ctx, r, field, prefix)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, field+" file is required")
			return
		}
		logging.FromContext(ctx).Error("upload image", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store image")
		return
	}

	if err := persist(ctx, identity.ID, uploaded.URL, uploaded.Key); err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	// Best effort: losing the old object only leaks storage.
	if key := oldKey(current); key != "" {
		if err := h.content.Delete(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("delete replaced image", "key", key, "error", err)
		}
	}

	updated, err := h.users.FindByID(ctx, identity.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated.Public(), message)
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h *UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	requesterID := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		requesterID = identity.ID
	}

	profile, err := h.engine.ChannelProfile(ctx, username, requesterID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel does not exist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "channel profile fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h *UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	history, err := h.engine.WatchHistory(ctx, identity.ID)
	if err != nil {
		logging.FromContext(ctx).Error("watch history", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}

// uploadFormFile streams a multipart file field to the content store under a
// generated key. Returns http.ErrMissingFile when the field is absent.
func (h *UserHandler) uploadFormFile(ctx context.Context, r *http.Request, field, prefix string) (storage.UploadResult, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return storage.UploadResult{}, err
	}
	defer file.Close()

	return uploadContent(ctx, h.content, file, header, prefix)
}

// uploadContent writes one multipart file to the content store, keying it by
// a fresh UUID plus the client's file extension.
func uploadContent(ctx context.Context, content ContentStore, file multipart.File, header *multipart.FileHeader, prefix string) (storage.UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
	return content.Upload(ctx, key, file)
}
