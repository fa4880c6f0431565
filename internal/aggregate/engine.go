// Package aggregate computes the read-side composite views: channel
// profiles, playlist listings and detail, watch history, and liked videos.
// Each view is a deterministic in-process join-and-fold over small reader
// interfaces: one batch fetch per joined collection, never a per-item query.
// Output ordering follows the underlying reference sequence.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// UserReader resolves identities for joins.
type UserReader interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// VideoReader batch-resolves video references.
type VideoReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Video, error)
}

// PlaylistReader resolves playlists and their membership.
type PlaylistReader interface {
	Get(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
}

// SubscriptionReader scans subscription edges by either endpoint.
type SubscriptionReader interface {
	ListByChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// LikeReader lists the video ids a user has liked.
type LikeReader interface {
	ListVideoIDsLikedBy(ctx context.Context, userID string) ([]string, error)
}

// HistoryReader lists a user's watched video ids in insertion order.
type HistoryReader interface {
	ListVideoIDs(ctx context.Context, userID string) ([]string, error)
}

// Engine joins the stores into derived views.
type Engine struct {
	Users         UserReader
	Videos        VideoReader
	Playlists     PlaylistReader
	Subscriptions SubscriptionReader
	Likes         LikeReader
	History       HistoryReader
}

// ChannelProfile is the public view of a user as a subscription target.
type ChannelProfile struct {
	ID                        string    `json:"id"`
	Username                  string    `json:"username"`
	Email                     string    `json:"email"`
	FullName                  string    `json:"fullName"`
	AvatarURL                 string    `json:"avatar"`
	CoverImageURL             string    `json:"coverImage,omitempty"`
	SubscriberCount           int       `json:"subscribersCount"`
	ChannelsSubscribedToCount int       `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// OwnerSummary is the projection of a video's owner used inside composite
// views.
type OwnerSummary struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// VideoItem is the per-video projection used inside composite views.
type VideoItem struct {
	ID           string    `json:"id"`
	VideoURL     string    `json:"videoFile"`
	ThumbnailURL string    `json:"thumbnail"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WatchedVideo pairs a video with its owner's summary.
type WatchedVideo struct {
	VideoItem
	Owner OwnerSummary `json:"owner"`
}

// PlaylistSummary carries per-playlist totals without the full video list.
type PlaylistSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TotalVideos int       `json:"totalVideos"`
	TotalViews  int64     `json:"totalViews"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistDetail is the enriched playlist view: published videos only,
// totals computed over the filtered set, owner projected to public fields.
type PlaylistDetail struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	TotalVideos int          `json:"totalVideos"`
	TotalViews  int64        `json:"totalViews"`
	Videos      []VideoItem  `json:"videos"`
	Owner       OwnerSummary `json:"owner"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ChannelProfile resolves a channel by handle (case-insensitive) and folds
// the subscription edges into counts plus the requester's membership flag.
func (e *Engine) ChannelProfile(ctx context.Context, username, requesterID string) (ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "aggregate.channel_profile")
	defer span.End()

	user, err := e.Users.FindByUsername(ctx, username)
	if err != nil {
		return ChannelProfile{}, err
	}

	subscribers, err := e.Subscriptions.ListByChannel(ctx, user.ID)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("list subscribers: %w", err)
	}

	subscribedTo, err := e.Subscriptions.ListBySubscriber(ctx, user.ID)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("list subscribed channels: %w", err)
	}

	isSubscribed := false
	for _, edge := range subscribers {
		if requesterID != "" && edge.SubscriberID == requesterID {
			isSubscribed = true
			break
		}
	}

	return ChannelProfile{
		ID:                        user.ID,
		Username:                  user.Username,
		Email:                     user.Email,
		FullName:                  user.FullName,
		AvatarURL:                 user.AvatarURL,
		CoverImageURL:             user.CoverImageURL,
		SubscriberCount:           len(subscribers),
		ChannelsSubscribedToCount: len(subscribedTo),
		IsSubscribed:              isSubscribed,
		CreatedAt:                 user.CreatedAt,
	}, nil
}

// UserPlaylists folds each playlist's video references into totals. A single
// batched video fetch covers every playlist in the listing.
func (e *Engine) UserPlaylists(ctx context.Context, userID string) ([]PlaylistSummary, error) {
	ctx, span := logging.StartSpan(ctx, "aggregate.user_playlists")
	defer span.End()

	playlists, err := e.Playlists.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	var allIDs []string
	for _, playlist := range playlists {
		allIDs = append(allIDs, playlist.VideoIDs...)
	}

	videos, err := e.videosByID(ctx, allIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]PlaylistSummary, 0, len(playlists))
	for _, playlist := range playlists {
		summary := PlaylistSummary{
			ID:          playlist.ID,
			Name:        playlist.Name,
			Description: playlist.Description,
			UpdatedAt:   playlist.UpdatedAt,
		}
		for _, videoID := range playlist.VideoIDs {
			video, ok := videos[videoID]
			if !ok {
				continue
			}
			summary.TotalVideos++
			summary.TotalViews += video.Views
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// PlaylistDetail joins a playlist's videos (published only) and its owner.
// A playlist whose videos are all unpublished yields a valid detail with an
// empty video list and zero totals.
func (e *Engine) PlaylistDetail(ctx context.Context, playlistID string) (PlaylistDetail, error) {
	ctx, span := logging.StartSpan(ctx, "aggregate.playlist_detail")
	defer span.End()

	playlist, err := e.Playlists.Get(ctx, playlistID)
	if err != nil {
		return PlaylistDetail{}, err
	}

	videos, err := e.videosByID(ctx, playlist.VideoIDs)
	if err != nil {
		return PlaylistDetail{}, err
	}

	detail := PlaylistDetail{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Videos:      []VideoItem{},
		CreatedAt:   playlist.CreatedAt,
		UpdatedAt:   playlist.UpdatedAt,
	}

	for _, videoID := range playlist.VideoIDs {
		video, ok := videos[videoID]
		if !ok || !video.IsPublished {
			continue
		}
		detail.Videos = append(detail.Videos, videoItem(video))
		detail.TotalVideos++
		detail.TotalViews += video.Views
	}

	owners, err := e.Users.GetByIDs(ctx, []string{playlist.OwnerID})
	if err != nil {
		return PlaylistDetail{}, fmt.Errorf("resolve playlist owner: %w", err)
	}
	if len(owners) > 0 {
		detail.Owner = ownerSummary(owners[0])
	}

	return detail, nil
}

// WatchHistory joins the user's ordered watch references to videos and each
// video's owner. The owner join collapses to the first (only) match.
func (e *Engine) WatchHistory(ctx context.Context, userID string) ([]WatchedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "aggregate.watch_history")
	defer span.End()

	ids, err := e.History.ListVideoIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return e.watchedVideos(ctx, ids)
}

// LikedVideos resolves the videos a user has liked, in like order, with
// owner summaries attached.
func (e *Engine) LikedVideos(ctx context.Context, userID string) ([]WatchedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "aggregate.liked_videos")
	defer span.End()

	ids, err := e.Likes.ListVideoIDsLikedBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	return e.watchedVideos(ctx, ids)
}

func (e *Engine) watchedVideos(ctx context.Context, ids []string) ([]WatchedVideo, error) {
	videos, err := e.videosByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]string, 0, len(videos))
	seen := make(map[string]struct{}, len(videos))
	for _, video := range videos {
		if _, ok := seen[video.OwnerID]; ok {
			continue
		}
		seen[video.OwnerID] = struct{}{}
		ownerIDs = append(ownerIDs, video.OwnerID)
	}

	users, err := e.Users.GetByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve video owners: %w", err)
	}
	owners := make(map[string]models.User, len(users))
	for _, user := range users {
		owners[user.ID] = user
	}

	items := make([]WatchedVideo, 0, len(ids))
	for _, id := range ids {
		video, ok := videos[id]
		if !ok {
			continue
		}
		items = append(items, WatchedVideo{
			VideoItem: videoItem(video),
			Owner:     ownerSummary(owners[video.OwnerID]),
		})
	}

	return items, nil
}

func (e *Engine) videosByID(ctx context.Context, ids []string) (map[string]models.Video, error) {
	fetched, err := e.Videos.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve videos: %w", err)
	}

	videos := make(map[string]models.Video, len(fetched))
	for _, video := range fetched {
		videos[video.ID] = video
	}
	return videos, nil
}

func videoItem(video models.Video) VideoItem {
	return VideoItem{
		ID:           video.ID,
		VideoURL:     video.VideoURL,
		ThumbnailURL: video.ThumbnailURL,
		Title:        video.Title,
		Description:  video.Description,
		Duration:     video.Duration,
		Views:        video.Views,
		CreatedAt:    video.CreatedAt,
	}
}

func ownerSummary(user models.User) OwnerSummary {
	return OwnerSummary{
		Username:  user.Username,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
	}
}
