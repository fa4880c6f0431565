package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/aggregate"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// PlaylistHandler serves playlist management and the enriched playlist views.
type PlaylistHandler struct {
	playlists PlaylistStore
	videos    VideoStore
	engine    *aggregate.Engine
}

// NewPlaylistHandler wires the playlist endpoints.
func NewPlaylistHandler(playlists PlaylistStore, videos VideoStore, engine *aggregate.Engine) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, videos: videos, engine: engine}
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlist.
func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "name and description are required")
		return
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     identity.ID,
		Name:        name,
		Description: description,
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.playlists.Create(ctx, playlist); err != nil {
		respondStoreError(ctx, w, err, "")
		return
	}

	created, err := h.playlists.Get(ctx, playlist.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found after create")
		return
	}

	respondJSON(ctx, w, http.StatusOK, created, "playlist created successfully")
}

// Get handles GET /api/v1/playlist/{id}, returning the enriched detail view.
// A playlist whose videos are all unpublished is still a valid playlist; it
// comes back with an empty video list, not a 404.
func (h *PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	detail, err := h.engine.PlaylistDetail(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, detail, "playlist fetched successfully")
}

// UserPlaylists handles GET /api/v1/playlist/user/{userId}.
func (h *PlaylistHandler) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.engine.UserPlaylists(ctx, r.PathValue("userId"))
	if err != nil {
		logging.FromContext(ctx).Error("list user playlists", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, summaries, "user playlists fetched successfully")
}

// AddVideo handles PATCH /api/v1/playlist/add/{videoId}/{playlistId}. Both
// resources must exist, and the actor must own both the playlist and the
// video. Adding a video already present succeeds without duplicating it.
func (h *PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	h.mutateMembership(w, r, h.playlists.AddVideo, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlist/remove/{videoId}/{playlistId}.
// Removing a video that is not in the playlist succeeds as a no-op.
func (h *PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	h.mutateMembership(w, r, h.playlists.RemoveVideo, "video removed from playlist")
}

func (h *PlaylistHandler) mutateMembership(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, playlistID, videoID string) error,
	message string,
) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	playlist, err := h.playlists.Get(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	video, err := h.videos.Get(ctx, r.PathValue("videoId"))
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if !auth.Authorize(identity.ID, playlist.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the playlist owner can modify it")
		return
	}
	if !auth.Authorize(identity.ID, video.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the video owner can add or remove it")
		return
	}

	if err := mutate(ctx, playlist.ID, video.ID); err != nil {
		respondStoreError(ctx, w, err, "playlist or video not found")
		return
	}

	updated, err := h.playlists.Get(ctx, playlist.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, message)
}

// Update handles PATCH /api/v1/playlist/{id}.
func (h *PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	playlist, err := h.playlists.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	if !auth.Authorize(identity.ID, playlist.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the playlist owner can update it")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "name and description are required")
		return
	}

	if err := h.playlists.Update(ctx, playlist.ID, name, description); err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	updated, err := h.playlists.Get(ctx, playlist.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlist/{id}. The existence and ownership
// checks run first, so a not-found from the delete itself indicates a race
// and surfaces as an internal error rather than a 404.
func (h *PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	playlist, err := h.playlists.Get(ctx, r.PathValue("id"))
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	if !auth.Authorize(identity.ID, playlist.OwnerID) {
		respondError(ctx, w, http.StatusUnauthorized, "only the playlist owner can delete it")
		return
	}

	if err := h.playlists.Delete(ctx, playlist.ID); err != nil {
		logging.FromContext(ctx).Error("delete playlist", "playlist_id", playlist.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "playlist deleted successfully")
}
