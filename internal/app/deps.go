package app

import (
	"context"
	"fmt"
	"time"

	"github.com/clipstream/backend/internal/aggregate"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/config"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/handlers"
	"github.com/clipstream/backend/internal/middleware"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// buildDependencies assembles the repositories, session machinery, content
// store, and aggregation engine behind the route table.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	playlists := repositories.NewPostgresPlaylistRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)
	tweets := repositories.NewPostgresTweetRepository(pool)
	likes := repositories.NewPostgresLikeRepository(pool)
	history := repositories.NewPostgresWatchHistoryRepository(pool)

	signer := auth.NewTokenSigner(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	hasher := auth.BcryptHasher{}
	sessions := auth.NewManager(users, signer, hasher)

	content, err := storage.NewS3ContentStore(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure content store: %w", err)
	}

	engine := &aggregate.Engine{
		Users:         users,
		Videos:        videos,
		Playlists:     playlists,
		Subscriptions: subscriptions,
		Likes:         likes,
		History:       history,
	}

	// 10 credential attempts per minute per IP, small burst headroom.
	authLimiter := middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute)

	return handlers.Dependencies{
		Users:         users,
		Videos:        videos,
		Playlists:     playlists,
		Subscriptions: subscriptions,
		Comments:      comments,
		Tweets:        tweets,
		Likes:         likes,
		History:       history,

		Sessions: sessions,
		Verifier: signer,
		Identity: users,
		Hasher:   hasher,
		Content:  content,
		Engine:   engine,

		AuthLimiter:   authLimiter,
		SecureCookies: cfg.SecureCookies,
	}, nil
}
