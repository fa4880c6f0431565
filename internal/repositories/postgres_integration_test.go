package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndConflicts(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "ada")

	dup := user
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	fetched, err := repo.FindByUsername(ctx, "ADA")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if fetched.ID != user.ID {
		t.Fatalf("expected case-insensitive handle lookup, got %+v", fetched)
	}

	byEmail, err := repo.FindByHandleOrEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("find by email identifier: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	if _, err := repo.FindByHandleOrEmail(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "ada")

	first := "refresh-token-1"
	if err := repo.SetRefreshToken(ctx, user.ID, &first); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}

	if err := repo.RotateRefreshToken(ctx, user.ID, first, "refresh-token-2"); err != nil {
		t.Fatalf("rotate refresh token: %v", err)
	}

	// Rotating with the superseded value must fail the compare-and-swap.
	if err := repo.RotateRefreshToken(ctx, user.ID, first, "refresh-token-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale rotation, got %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.RefreshToken == nil || *fetched.RefreshToken != "refresh-token-2" {
		t.Fatalf("expected rotated token persisted, got %+v", fetched.RefreshToken)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, nil); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.RefreshToken != nil {
		t.Fatal("expected refresh token cleared to NULL")
	}
}

func TestPostgresVideoRepository_PublishFilterAndViews(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "ada")

	repo := NewPostgresVideoRepository(testPool)
	published := createTestVideo(t, repo, owner.ID, true, time.Now().UTC().Add(-time.Hour))
	newer := createTestVideo(t, repo, owner.ID, true, time.Now().UTC())
	createTestVideo(t, repo, owner.ID, false, time.Now().UTC())

	feed, err := repo.ListPublished(ctx, 10)
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected only published videos, got %d", len(feed))
	}
	if feed[0].ID != newer.ID || feed[1].ID != published.ID {
		t.Fatalf("expected newest-first order, got %+v", feed)
	}

	if err := repo.IncrementViews(ctx, published.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}
	if err := repo.IncrementViews(ctx, published.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}

	fetched, err := repo.Get(ctx, published.ID)
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if fetched.Views != 2 {
		t.Fatalf("expected 2 views, got %d", fetched.Views)
	}

	if err := repo.IncrementViews(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}
}

func TestPostgresPlaylistRepository_MembershipSemantics(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "ada")

	videoRepo := NewPostgresVideoRepository(testPool)
	first := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())
	second := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())

	repo := NewPostgresPlaylistRepository(testPool)
	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Name:      "Favourites",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := repo.AddVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("add first video: %v", err)
	}
	if err := repo.AddVideo(ctx, playlist.ID, second.ID); err != nil {
		t.Fatalf("add second video: %v", err)
	}

	// A duplicate add is an idempotent no-op.
	if err := repo.AddVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("expected idempotent add, got %v", err)
	}

	fetched, err := repo.Get(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if len(fetched.VideoIDs) != 2 || fetched.VideoIDs[0] != first.ID || fetched.VideoIDs[1] != second.ID {
		t.Fatalf("expected insertion order without duplicates, got %+v", fetched.VideoIDs)
	}

	// Referencing a missing video violates the foreign key.
	if err := repo.AddVideo(ctx, playlist.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	// Removing an absent video succeeds as a no-op.
	if err := repo.RemoveVideo(ctx, playlist.ID, uuid.NewString()); err != nil {
		t.Fatalf("expected no-op removal, got %v", err)
	}

	if err := repo.RemoveVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("remove video: %v", err)
	}
	fetched, err = repo.Get(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if len(fetched.VideoIDs) != 1 || fetched.VideoIDs[0] != second.ID {
		t.Fatalf("expected one remaining membership, got %+v", fetched.VideoIDs)
	}
}

func TestPostgresVideoRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "ada")
	viewer := createTestUser(t, userRepo, "grace")

	videoRepo := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())

	playlistRepo := NewPostgresPlaylistRepository(testPool)
	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Name:      "Favourites",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := playlistRepo.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	if err := playlistRepo.AddVideo(ctx, playlist.ID, video.ID); err != nil {
		t.Fatalf("add video: %v", err)
	}

	historyRepo := NewPostgresWatchHistoryRepository(testPool)
	if err := historyRepo.Append(ctx, viewer.ID, video.ID); err != nil {
		t.Fatalf("append history: %v", err)
	}

	if err := videoRepo.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}

	fetched, err := playlistRepo.Get(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if len(fetched.VideoIDs) != 0 {
		t.Fatalf("expected membership cascade, got %+v", fetched.VideoIDs)
	}

	ids, err := historyRepo.ListVideoIDs(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected history cascade, got %+v", ids)
	}
}

func TestPostgresSubscriptionRepository_EdgeSemantics(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	viewer := createTestUser(t, userRepo, "ada")
	channel := createTestUser(t, userRepo, "grace")

	repo := NewPostgresSubscriptionRepository(testPool)

	if err := repo.Add(ctx, viewer.ID, channel.ID); err != nil {
		t.Fatalf("add subscription: %v", err)
	}
	if err := repo.Add(ctx, viewer.ID, channel.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate edge, got %v", err)
	}
	if err := repo.Add(ctx, viewer.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}

	subscribers, err := repo.ListByChannel(ctx, channel.ID)
	if err != nil {
		t.Fatalf("list by channel: %v", err)
	}
	if len(subscribers) != 1 || subscribers[0].SubscriberID != viewer.ID {
		t.Fatalf("unexpected subscribers: %+v", subscribers)
	}

	if err := repo.Remove(ctx, viewer.ID, channel.ID); err != nil {
		t.Fatalf("remove subscription: %v", err)
	}
	if err := repo.Remove(ctx, viewer.ID, channel.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestPostgresLikeRepository_OneLikePerTarget(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	viewer := createTestUser(t, userRepo, "ada")
	owner := createTestUser(t, userRepo, "grace")

	videoRepo := NewPostgresVideoRepository(testPool)
	first := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())
	second := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())

	repo := NewPostgresLikeRepository(testPool)

	for _, videoID := range []string{first.ID, second.ID} {
		err := repo.Add(ctx, models.Like{
			UserID:     viewer.ID,
			TargetType: models.LikeTargetVideo,
			TargetID:   videoID,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("add like for %s: %v", videoID, err)
		}
	}

	err := repo.Add(ctx, models.Like{
		UserID:     viewer.ID,
		TargetType: models.LikeTargetVideo,
		TargetID:   first.ID,
		CreatedAt:  time.Now().UTC(),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate like, got %v", err)
	}

	ids, err := repo.ListVideoIDsLikedBy(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list liked videos: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 liked videos, got %+v", ids)
	}

	if err := repo.Remove(ctx, viewer.ID, models.LikeTargetVideo, first.ID); err != nil {
		t.Fatalf("remove like: %v", err)
	}
	if err := repo.Remove(ctx, viewer.ID, models.LikeTargetVideo, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestPostgresWatchHistoryRepository_OrderAndDedup(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	viewer := createTestUser(t, userRepo, "ada")
	owner := createTestUser(t, userRepo, "grace")

	videoRepo := NewPostgresVideoRepository(testPool)
	first := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())
	second := createTestVideo(t, videoRepo, owner.ID, true, time.Now().UTC())

	repo := NewPostgresWatchHistoryRepository(testPool)

	for _, videoID := range []string{first.ID, second.ID, first.ID} {
		if err := repo.Append(ctx, viewer.ID, videoID); err != nil {
			t.Fatalf("append %s: %v", videoID, err)
		}
	}

	ids, err := repo.ListVideoIDs(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(ids) != 2 || ids[0] != first.ID || ids[1] != second.ID {
		t.Fatalf("expected deduplicated insertion order, got %+v", ids)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `TRUNCATE TABLE watch_history, likes, tweets, comments,
        subscriptions, playlist_videos, playlists, videos, users CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		AvatarURL:    "https://cdn.example.com/avatars/" + username + ".png",
		AvatarKey:    "avatars/" + username + ".png",
		PasswordHash: "password-hash",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID string, published bool, createdAt time.Time) models.Video {
	t.Helper()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		VideoURL:     "https://cdn.example.com/videos/clip.mp4",
		VideoKey:     "videos/clip.mp4",
		ThumbnailURL: "https://cdn.example.com/thumbnails/clip.png",
		ThumbnailKey: "thumbnails/clip.png",
		Title:        "Clip",
		Description:  "A clip",
		Duration:     12.5,
		IsPublished:  published,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
