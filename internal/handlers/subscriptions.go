package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// SubscriptionHandler serves the subscribe toggle and both directions of the
// subscription listings.
type SubscriptionHandler struct {
	subscriptions SubscriptionStore
	users         UserStore
}

// NewSubscriptionHandler wires the subscription endpoints.
func NewSubscriptionHandler(subscriptions SubscriptionStore, users UserStore) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, users: users}
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}. A second toggle
// against the same channel unsubscribes. Subscribing to yourself is refused.
func (h *SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	channelID := r.PathValue("channelId")
	if channelID == identity.ID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	if _, err := h.users.FindByID(ctx, channelID); err != nil {
		respondStoreError(ctx, w, err, "channel does not exist")
		return
	}

	err := h.subscriptions.Add(ctx, identity.ID, channelID)
	switch {
	case errors.Is(err, repositories.ErrConflict):
		if err := h.subscriptions.Remove(ctx, identity.ID, channelID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Error("unsubscribe", "channel_id", channelID, "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "internal error")
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": false}, "unsubscribed successfully")
		return
	case err != nil:
		respondStoreError(ctx, w, err, "channel does not exist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": true}, "subscribed successfully")
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}, listing the
// accounts subscribed to the channel.
func (h *SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	edges, err := h.subscriptions.ListByChannel(ctx, r.PathValue("channelId"))
	if err != nil {
		logging.FromContext(ctx).Error("list subscribers", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.SubscriberID)
	}

	users, err := h.publicUsers(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Error("resolve subscribers", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, users, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId},
// listing the channels the account follows.
func (h *SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	edges, err := h.subscriptions.ListBySubscriber(ctx, r.PathValue("subscriberId"))
	if err != nil {
		logging.FromContext(ctx).Error("list subscribed channels", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.ChannelID)
	}

	users, err := h.publicUsers(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Error("resolve subscribed channels", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, users, "subscribed channels fetched successfully")
}

// publicUsers batch-resolves ids into public user records, preserving the
// order of the id list.
func (h *SubscriptionHandler) publicUsers(ctx context.Context, ids []string) ([]models.User, error) {
	fetched, err := h.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(fetched))
	for _, user := range fetched {
		byID[user.ID] = user
	}

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, ok := byID[id]
		if !ok {
			continue
		}
		users = append(users, user.Public())
	}
	return users, nil
}
