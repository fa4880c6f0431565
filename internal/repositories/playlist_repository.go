package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// PlaylistRepository defines data access for playlists and their membership.
//
// AddVideo and RemoveVideo are single atomic writes: re-adding a present
// video is a no-op success, as is removing an absent one.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	Get(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id, name, description string) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}
