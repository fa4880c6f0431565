package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// CommentHandler serves comment threads attached to videos.
type CommentHandler struct {
	comments CommentStore
	videos   VideoStore
}

// NewCommentHandler wires the comment endpoints.
func NewCommentHandler(comments CommentStore, videos VideoStore) *CommentHandler {
	return &CommentHandler{comments: comments, videos: videos}
}

type commentRequest struct {
	Content string `json:"content"`
}

// List handles GET /api/v1/comments/{videoId}, newest first.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := r.PathValue("videoId")
	if _, err := h.videos.Get(ctx, videoID); err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	comments, err := h.comments.ListByVideo(ctx, videoID)
	if err != nil {
		logging.FromContext(ctx).Error("list comments", "video_id", videoID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, comments, "comments fetched successfully")
}

// Create handles POST /api/v1/comments/{videoId}.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	video, err := h.videos.Get(ctx, r.PathValue("videoId"))
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	var req commentRequest
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
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   identity.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.comments.Create(ctx, comment); err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	created, err := h.comments.Get(ctx, comment.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "comment not found after create")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, created, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}. Only the author may
// edit.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	comment, err := h.comments.Get(ctx, r.PathValue("commentId"))
	if err != nil {
		respondStoreError(ctx, w, err, "comment not found")
		return
	}

	if !auth.Authorize(identity.ID, comment.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the author can edit this comment")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.comments.UpdateContent(ctx, comment.ID, content); err != nil {
		respondStoreError(ctx, w, err, "comment not found")
		return
	}

	updated, err := h.comments.Get(ctx, comment.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "comment not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}. Only the author may
// delete.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	comment, err := h.comments.Get(ctx, r.PathValue("commentId"))
	if err != nil {
		respondStoreError(ctx, w, err, "comment not found")
		return
	}

	if !auth.Authorize(identity.ID, comment.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the author can delete this comment")
		return
	}

	if err := h.comments.Delete(ctx, comment.ID); err != nil {
		respondStoreError(ctx, w, err, "comment not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "comment deleted successfully")
}
