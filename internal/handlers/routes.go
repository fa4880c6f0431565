package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/aggregate"
	"github.com/clipstream/backend/internal/auth"
)

// Dependencies carries every collaborator the route table needs. Fields are
// interfaces so tests can substitute in-memory fakes.
type Dependencies struct {
	Users         UserStore
	Videos        VideoStore
	Playlists     PlaylistStore
	Subscriptions SubscriptionStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	History       WatchHistoryStore

	Sessions SessionService
	Verifier TokenVerifier
	Identity IdentityLoader
	Hasher   auth.PasswordHasher
	Content  ContentStore
	Engine   *aggregate.Engine

	// AuthLimiter guards the credential endpoints; nil disables limiting.
	AuthLimiter RateLimiter

	SecureCookies bool
}

// RegisterRoutes mounts the full API surface on the mux. Mutations sit behind
// the access-token gate; registration, login, token refresh, the health
// probe, and the public reads (video feed, playlist detail, user playlists)
// do not.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	users := NewUserHandler(deps.Users, deps.Sessions, deps.Content, deps.Hasher, deps.Engine, deps.SecureCookies)
	videos := NewVideoHandler(deps.Videos, deps.Content, deps.History)
	playlists := NewPlaylistHandler(deps.Playlists, deps.Videos, deps.Engine)
	subscriptions := NewSubscriptionHandler(deps.Subscriptions, deps.Users)
	comments := NewCommentHandler(deps.Comments, deps.Videos)
	likes := NewLikeHandler(deps.Likes, deps.Videos, deps.Comments, deps.Tweets, deps.Engine)
	tweets := NewTweetHandler(deps.Tweets, deps.Users)

	protected := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(deps.Verifier, deps.Identity, h)
	}

	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowRequest(deps.AuthLimiter, r, scope) {
				respondError(r.Context(), w, http.StatusTooManyRequests, "too many requests")
				return
			}
			h(w, r)
		})
	}

	mux.HandleFunc("GET /healthz", HealthHandler{}.Handle)

	mux.Handle("POST /api/v1/users/register", limited("register", users.Register))
	mux.Handle("POST /api/v1/users/login", limited("login", users.Login))
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.Handle("POST /api/v1/users/logout", protected(users.Logout))
	mux.Handle("POST /api/v1/users/change-password", protected(users.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", protected(users.CurrentUser))
	mux.Handle("PATCH /api/v1/users/update-account", protected(users.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", protected(users.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", protected(users.UpdateCoverImage))
	mux.Handle("GET /api/v1/users/c/{username}", protected(users.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", protected(users.WatchHistory))

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.Handle("POST /api/v1/videos", protected(videos.Publish))
	mux.Handle("GET /api/v1/videos/{id}", protected(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{id}", protected(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{id}", protected(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/toggle/publish/{id}", protected(videos.TogglePublish))

	mux.Handle("POST /api/v1/playlist", protected(playlists.Create))
	mux.HandleFunc("GET /api/v1/playlist/{id}", playlists.Get)
	mux.Handle("PATCH /api/v1/playlist/{id}", protected(playlists.Update))
	mux.Handle("DELETE /api/v1/playlist/{id}", protected(playlists.Delete))
	mux.HandleFunc("GET /api/v1/playlist/user/{userId}", playlists.UserPlaylists)
	mux.Handle("PATCH /api/v1/playlist/add/{videoId}/{playlistId}", protected(playlists.AddVideo))
	mux.Handle("PATCH /api/v1/playlist/remove/{videoId}/{playlistId}", protected(playlists.RemoveVideo))

	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", protected(subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/c/{channelId}", protected(subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/u/{subscriberId}", protected(subscriptions.SubscribedChannels))

	mux.Handle("GET /api/v1/comments/{videoId}", protected(comments.List))
	mux.Handle("POST /api/v1/comments/{videoId}", protected(comments.Create))
	mux.Handle("PATCH /api/v1/comments/c/{commentId}", protected(comments.Update))
	mux.Handle("DELETE /api/v1/comments/c/{commentId}", protected(comments.Delete))

	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", protected(likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", protected(likes.ToggleComment))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", protected(likes.ToggleTweet))
	mux.Handle("GET /api/v1/likes/videos", protected(likes.LikedVideos))

	mux.Handle("POST /api/v1/tweets", protected(tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", protected(tweets.ListByUser))
	mux.Handle("PATCH /api/v1/tweets/{id}", protected(tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{id}", protected(tweets.Delete))
}
