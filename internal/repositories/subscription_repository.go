package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// SubscriptionRepository manages subscriber/channel edges between users.
type SubscriptionRepository interface {
	Add(ctx context.Context, subscriberID, channelID string) error
	Remove(ctx context.Context, subscriberID, channelID string) error
	ListByChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}
