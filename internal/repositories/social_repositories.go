package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// CommentRepository defines data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	Get(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// TweetRepository defines data access for tweets.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	Get(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// LikeRepository stores like edges. Add on an existing pair reports
// ErrConflict; Remove on a missing pair reports ErrNotFound, which lets the
// handlers implement toggling.
type LikeRepository interface {
	Add(ctx context.Context, like models.Like) error
	Remove(ctx context.Context, userID, targetType, targetID string) error
	ListVideoIDsLikedBy(ctx context.Context, userID string) ([]string, error)
}

// WatchHistoryRepository keeps the ordered set of videos a user has watched.
type WatchHistoryRepository interface {
	Append(ctx context.Context, userID, videoID string) error
	ListVideoIDs(ctx context.Context, userID string) ([]string, error)
}
