package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// TweetHandler serves the short-post endpoints.
type TweetHandler struct {
	tweets TweetStore
	users  UserStore
}

// NewTweetHandler wires the tweet endpoints.
func NewTweetHandler(tweets TweetStore, users UserStore) *TweetHandler {
	return &TweetHandler{tweets: tweets, users: users}
}

type tweetRequest struct {
	Content string `json:"content"`
}

// Create handles POST /api/v1/tweets.
func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   identity.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.tweets.Create(ctx, tweet); err != nil {
		respondStoreError(ctx, w, err, "")
		return
	}

	created, err := h.tweets.Get(ctx, tweet.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "tweet not found after create")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, created, "tweet created successfully")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}, newest first.
func (h *TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.PathValue("userId")
	if _, err := h.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	tweets, err := h.tweets.ListByOwner(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list tweets", "user_id", userID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, tweets, "tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{id}. Only the author may edit.
func (h *TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	tweet, err := h.tweets.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "tweet not found")
		return
	}

	if !auth.Authorize(identity.ID, tweet.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the author can edit this tweet")
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.tweets.UpdateContent(ctx, tweet.ID, content); err != nil {
		respondStoreError(ctx, w, err, "tweet not found")
		return
	}

	updated, err := h.tweets.Get(ctx, tweet.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "tweet not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{id}. Only the author may delete.
func (h *TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	tweet, err := h.tweets.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "tweet not found")
		return
	}

	if !auth.Authorize(identity.ID, tweet.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the author can delete this tweet")
		return
	}

	if err := h.tweets.Delete(ctx, tweet.ID); err != nil {
		respondStoreError(ctx, w, err, "tweet not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "tweet deleted successfully")
}
