package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/storage"
)

const defaultVideoPageSize = 50

// VideoHandler serves video publishing, retrieval, and lifecycle management.
type VideoHandler struct {
	videos  VideoStore
	content ContentStore
	history WatchHistoryStore
}

// NewVideoHandler wires the video endpoints.
func NewVideoHandler(videos VideoStore, content ContentStore, history WatchHistoryStore) *VideoHandler {
	return &VideoHandler{videos: videos, content: content, history: history}
}

// List handles GET /api/v1/videos. Only published videos are listed, newest
// first.
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultVideoPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	videos, err := h.videos.ListPublished(ctx, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, videos, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos. The request is multipart: title,
// description, and duration fields plus videoFile and thumbnail uploads. Both
// files are required; the video is published immediately.
func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
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

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	duration := 0.0
	if raw := r.FormValue("duration"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "duration must be a non-negative number")
			return
		}
		duration = parsed
	}

	videoAsset, err := h.uploadFormFile(ctx, r, "videoFile", "videos")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
			return
		}
		logging.FromContext(ctx).Error("upload video file", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}

	thumbAsset, err := h.uploadFormFile(ctx, r, "thumbnail", "thumbnails")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
			return
		}
		logging.FromContext(ctx).Error("upload thumbnail", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      identity.ID,
		VideoURL:     videoAsset.URL,
		VideoKey:     videoAsset.Key,
		ThumbnailURL: thumbAsset.URL,
		ThumbnailKey: thumbAsset.Key,
		Title:        title,
		Description:  description,
		Duration:     duration,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.videos.Create(ctx, video); err != nil {
		respondStoreError(ctx, w, err, "")
		return
	}

	created, err := h.videos.Get(ctx, video.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found after publish")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, created, "video published successfully")
}

// Get handles GET /api/v1/videos/{id}. An unpublished video is visible only
// to its owner; everyone else sees a 404, indistinguishable from a missing
// id. A successful fetch counts a view and records the watch.
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	video, err := h.videos.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if !video.IsPublished && !auth.Authorize(identity.ID, video.OwnerID) {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.videos.IncrementViews(ctx, video.ID); err != nil {
		logging.FromContext(ctx).Warn("increment views", "video_id", video.ID, "error", err)
	} else {
		video.Views++
	}

	if err := h.history.Append(ctx, identity.ID, video.ID); err != nil {
		logging.FromContext(ctx).Warn("append watch history", "video_id", video.ID, "error", err)
	}

	respondJSON(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{id}. Title and description are
// replaced; a new thumbnail is optional and, when present, retires the old
// object.
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	video, err := h.videos.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if !auth.Authorize(identity.ID, video.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the owner can update this video")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	thumbnailURL, thumbnailKey := "", ""
	thumbAsset, err := h.uploadFormFile(ctx, r, "thumbnail", "thumbnails")
	switch {
	case err == nil:
		thumbnailURL, thumbnailKey = thumbAsset.URL, thumbAsset.Key
	case errors.Is(err, http.ErrMissingFile):
		// Keep the current thumbnail.
	default:
		logging.FromContext(ctx).Error("upload thumbnail", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	if err := h.videos.UpdateDetails(ctx, video.ID, title, description, thumbnailURL, thumbnailKey); err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if thumbnailKey != "" && video.ThumbnailKey != "" {
		if err := h.content.Delete(ctx, video.ThumbnailKey); err != nil {
			logging.FromContext(ctx).Warn("delete replaced thumbnail", "key", video.ThumbnailKey, "error", err)
		}
	}

	updated, err := h.videos.Get(ctx, video.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{id}. Playlist memberships and watch
// history entries cascade in the store; the media objects are removed best
// effort after the row is gone.
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	video, err := h.videos.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if !auth.Authorize(identity.ID, video.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the owner can delete this video")
		return
	}

	if err := h.videos.Delete(ctx, video.ID); err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	for _, key := range []string{video.VideoKey, video.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := h.content.Delete(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("delete video asset", "key", key, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, nil, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{id}.
func (h *VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	video, err := h.videos.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if !auth.Authorize(identity.ID, video.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the owner can change publish state")
		return
	}

	if err := h.videos.SetPublished(ctx, video.ID, !video.IsPublished); err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	video.IsPublished = !video.IsPublished
	respondJSON(ctx, w, http.StatusOK, video, "publish state toggled successfully")
}

func (h *VideoHandler) uploadFormFile(ctx context.Context, r *http.Request, field, prefix string) (storage.UploadResult, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return storage.UploadResult{}, err
	}
	defer file.Close()

	return uploadContent(ctx, h.content, file, header, prefix)
}
