package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clipstream/backend/internal/aggregate"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// LikeHandler serves like toggles for videos, comments, and tweets, plus the
// liked-videos listing.
type LikeHandler struct {
	likes    LikeStore
	videos   VideoStore
	comments CommentStore
	tweets   TweetStore
	engine   *aggregate.Engine
}

// NewLikeHandler wires the like endpoints.
func NewLikeHandler(likes LikeStore, videos VideoStore, comments CommentStore, tweets TweetStore, engine *aggregate.Engine) *LikeHandler {
	return &LikeHandler{likes: likes, videos: videos, comments: comments, tweets: tweets, engine: engine}
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h *LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, r.PathValue("videoId"), "video not found",
		func(ctx context.Context, id string) error {
			_, err := h.videos.Get(ctx, id)
			return err
		})
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h *LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, r.PathValue("commentId"), "comment not found",
		func(ctx context.Context, id string) error {
			_, err := h.comments.Get(ctx, id)
			return err
		})
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h *LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, r.PathValue("tweetId"), "tweet not found",
		func(ctx context.Context, id string) error {
			_, err := h.tweets.Get(ctx, id)
			return err
		})
}

// toggle adds the like edge, or removes it when it already exists. The target
// must exist in its own store first.
func (h *LikeHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	targetType, targetID, notFoundMessage string,
	exists func(ctx context.Context, id string) error,
) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := exists(ctx, targetID); err != nil {
		respondStoreError(ctx, w, err, notFoundMessage)
		return
	}

	err := h.likes.Add(ctx, models.Like{
		UserID:     identity.ID,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedAt:  time.Now().UTC(),
	})
	switch {
	case errors.Is(err, repositories.ErrConflict):
		if err := h.likes.Remove(ctx, identity.ID, targetType, targetID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Error("remove like", "target_type", targetType, "target_id", targetID, "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": false}, "like removed")
		return
	case err != nil:
		respondStoreError(ctx, w, err, notFoundMessage)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": true}, "like added")
}

// LikedVideos handles GET /api/v1/likes/videos, listing the requester's liked
// videos with owner summaries.
func (h *LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	videos, err := h.engine.LikedVideos(ctx, identity.ID)
	if err != nil {
		logging.FromContext(ctx).Error("liked videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, videos, "liked videos fetched successfully")
}
