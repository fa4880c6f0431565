package handlers

import (
	"context"
	"io"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/storage"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByHandleOrEmail(ctx context.Context, identifier string) (models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, url, key string) error
	UpdateCoverImage(ctx context.Context, id, url, key string) error
}

// SessionService drives login, logout, and refresh-token rotation.
type SessionService interface {
	Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// TokenVerifier checks access tokens presented by inbound requests.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.AccessClaims, error)
}

// ContentStore is the external media storage collaborator.
type ContentStore interface {
	Upload(ctx context.Context, key string, r io.Reader) (storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// VideoStore captures persistence for video metadata.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	Get(ctx context.Context, id string) (models.Video, error)
	ListPublished(ctx context.Context, limit int) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description, thumbnailURL, thumbnailKey string) error
	SetPublished(ctx context.Context, id string, published bool) error
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PlaylistStore captures persistence for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	Get(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, id, name, description string) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// SubscriptionStore captures persistence for subscription edges.
type SubscriptionStore interface {
	Add(ctx context.Context, subscriberID, channelID string) error
	Remove(ctx context.Context, subscriberID, channelID string) error
	ListByChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// CommentStore captures persistence for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	Get(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	Get(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

// LikeStore captures persistence for like edges.
type LikeStore interface {
	Add(ctx context.Context, like models.Like) error
	Remove(ctx context.Context, userID, targetType, targetID string) error
}

// WatchHistoryStore records watched videos.
type WatchHistoryStore interface {
	Append(ctx context.Context, userID, videoID string) error
}
