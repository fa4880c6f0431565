package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// VideoRepository exposes data access for video metadata records.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	Get(ctx context.Context, id string) (models.Video, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Video, error)
	ListPublished(ctx context.Context, limit int) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description, thumbnailURL, thumbnailKey string) error
	SetPublished(ctx context.Context, id string, published bool) error
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
