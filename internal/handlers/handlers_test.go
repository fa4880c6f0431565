package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/aggregate"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

type testHasher struct{}

func (testHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }
func (testHasher) Verify(plaintext, hash string) bool    { return "hashed:"+plaintext == hash }

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == strings.ToLower(username) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) FindByHandleOrEmail(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) GetByIDs(_ context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *fakeUserStore) UpdateAccount(_ context.Context, id, fullName, email string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.PasswordHash = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, url, key string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.AvatarURL = url
	user.AvatarKey = key
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id, url, key string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.CoverImageURL = url
	user.CoverImageKey = key
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, id string, token *string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) RotateRefreshToken(_ context.Context, id, current, next string) error {
	user, ok := s.users[id]
	if !ok || user.RefreshToken == nil || *user.RefreshToken != current {
		return repositories.ErrNotFound
	}
	user.RefreshToken = &next
	s.users[id] = user
	return nil
}

type fakeVideoStore struct {
	videos map[string]models.Video
	order  []string
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video)}
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	s.order = append(s.order, video.ID)
	return nil
}

func (s *fakeVideoStore) Get(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) GetByIDs(_ context.Context, ids []string) ([]models.Video, error) {
	var videos []models.Video
	for _, id := range ids {
		if video, ok := s.videos[id]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

func (s *fakeVideoStore) ListPublished(_ context.Context, limit int) ([]models.Video, error) {
	var videos []models.Video
	for _, id := range s.order {
		video := s.videos[id]
		if video.IsPublished {
			videos = append(videos, video)
		}
	}
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].CreatedAt.After(videos[j].CreatedAt) })
	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func (s *fakeVideoStore) UpdateDetails(_ context.Context, id, title, description, thumbnailURL, thumbnailKey string) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Title = title
	video.Description = description
	if thumbnailURL != "" {
		video.ThumbnailURL = thumbnailURL
		video.ThumbnailKey = thumbnailKey
	}
	s.videos[id] = video
	return nil
}

func (s *fakeVideoStore) SetPublished(_ context.Context, id string, published bool) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.IsPublished = published
	s.videos[id] = video
	return nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

type fakePlaylistStore struct {
	playlists map[string]models.Playlist
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{playlists: make(map[string]models.Playlist)}
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) Get(_ context.Context, id string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *fakePlaylistStore) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	var playlists []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			playlists = append(playlists, playlist)
		}
	}
	return playlists, nil
}

func (s *fakePlaylistStore) Update(_ context.Context, id, name, description string) error {
	playlist, ok := s.playlists[id]
	if !ok {
		return repositories.ErrNotFound
	}
	playlist.Name = name
	playlist.Description = description
	s.playlists[id] = playlist
	return nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return nil
		}
	}
	playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	s.playlists[playlistID] = playlist
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	playlist, ok := s.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	kept := playlist.VideoIDs[:0]
	for _, existing := range playlist.VideoIDs {
		if existing != videoID {
			kept = append(kept, existing)
		}
	}
	playlist.VideoIDs = kept
	s.playlists[playlistID] = playlist
	return nil
}

type fakeSubscriptionStore struct {
	edges []models.Subscription
}

func (s *fakeSubscriptionStore) Add(_ context.Context, subscriberID, channelID string) error {
	for _, edge := range s.edges {
		if edge.SubscriberID == subscriberID && edge.ChannelID == channelID {
			return repositories.ErrConflict
		}
	}
	s.edges = append(s.edges, models.Subscription{SubscriberID: subscriberID, ChannelID: channelID, CreatedAt: time.Now()})
	return nil
}

func (s *fakeSubscriptionStore) Remove(_ context.Context, subscriberID, channelID string) error {
	for i, edge := range s.edges {
		if edge.SubscriberID == subscriberID && edge.ChannelID == channelID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *fakeSubscriptionStore) ListByChannel(_ context.Context, channelID string) ([]models.Subscription, error) {
	var edges []models.Subscription
	for _, edge := range s.edges {
		if edge.ChannelID == channelID {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

func (s *fakeSubscriptionStore) ListBySubscriber(_ context.Context, subscriberID string) ([]models.Subscription, error) {
	var edges []models.Subscription
	for _, edge := range s.edges {
		if edge.SubscriberID == subscriberID {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

type fakeCommentStore struct {
	comments map[string]models.Comment
	order    []string
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment)}
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.comments[comment.ID] = comment
	s.order = append(s.order, comment.ID)
	return nil
}

func (s *fakeCommentStore) Get(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) ListByVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	var comments []models.Comment
	for _, id := range s.order {
		if comment, ok := s.comments[id]; ok && comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

func (s *fakeCommentStore) UpdateContent(_ context.Context, id, content string) error {
	comment, ok := s.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type fakeTweetStore struct {
	tweets map[string]models.Tweet
	order  []string
}

func newFakeTweetStore() *fakeTweetStore {
	return &fakeTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *fakeTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.tweets[tweet.ID] = tweet
	s.order = append(s.order, tweet.ID)
	return nil
}

func (s *fakeTweetStore) Get(_ context.Context, id string) (models.Tweet, error) {
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *fakeTweetStore) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	var tweets []models.Tweet
	for _, id := range s.order {
		if tweet, ok := s.tweets[id]; ok && tweet.OwnerID == ownerID {
			tweets = append(tweets, tweet)
		}
	}
	return tweets, nil
}

func (s *fakeTweetStore) UpdateContent(_ context.Context, id, content string) error {
	tweet, ok := s.tweets[id]
	if !ok {
		return repositories.ErrNotFound
	}
	tweet.Content = content
	s.tweets[id] = tweet
	return nil
}

func (s *fakeTweetStore) Delete(_ context.Context, id string) error {
	if _, ok := s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return nil
}

type fakeLikeStore struct {
	likes []models.Like
}

func (s *fakeLikeStore) Add(_ context.Context, like models.Like) error {
	for _, existing := range s.likes {
		if existing.UserID == like.UserID && existing.TargetType == like.TargetType && existing.TargetID == like.TargetID {
			return repositories.ErrConflict
		}
	}
	s.likes = append(s.likes, like)
	return nil
}

func (s *fakeLikeStore) Remove(_ context.Context, userID, targetType, targetID string) error {
	for i, existing := range s.likes {
		if existing.UserID == userID && existing.TargetType == targetType && existing.TargetID == targetID {
			s.likes = append(s.likes[:i], s.likes[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *fakeLikeStore) ListVideoIDsLikedBy(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for _, like := range s.likes {
		if like.UserID == userID && like.TargetType == models.LikeTargetVideo {
			ids = append(ids, like.TargetID)
		}
	}
	return ids, nil
}

type fakeHistoryStore struct {
	watched map[string][]string
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{watched: make(map[string][]string)}
}

func (s *fakeHistoryStore) Append(_ context.Context, userID, videoID string) error {
	for _, existing := range s.watched[userID] {
		if existing == videoID {
			return nil
		}
	}
	s.watched[userID] = append(s.watched[userID], videoID)
	return nil
}

func (s *fakeHistoryStore) ListVideoIDs(_ context.Context, userID string) ([]string, error) {
	return s.watched[userID], nil
}

type fakeContentStore struct {
	uploads []string
	deleted []string
}

func (s *fakeContentStore) Upload(_ context.Context, key string, r io.Reader) (storage.UploadResult, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return storage.UploadResult{}, err
	}
	s.uploads = append(s.uploads, key)
	return storage.UploadResult{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (s *fakeContentStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func subscriptionEdge(subscriberID, channelID string) models.Subscription {
	return models.Subscription{SubscriberID: subscriberID, ChannelID: channelID, CreatedAt: time.Now()}
}

type testEnv struct {
	mux           *http.ServeMux
	users         *fakeUserStore
	videos        *fakeVideoStore
	playlists     *fakePlaylistStore
	subscriptions *fakeSubscriptionStore
	comments      *fakeCommentStore
	tweets        *fakeTweetStore
	likes         *fakeLikeStore
	history       *fakeHistoryStore
	content       *fakeContentStore
	signer        *auth.TokenSigner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:         newFakeUserStore(),
		videos:        newFakeVideoStore(),
		playlists:     newFakePlaylistStore(),
		subscriptions: &fakeSubscriptionStore{},
		comments:      newFakeCommentStore(),
		tweets:        newFakeTweetStore(),
		likes:         &fakeLikeStore{},
		history:       newFakeHistoryStore(),
		content:       &fakeContentStore{},
	}

	env.signer = auth.NewTokenSigner("test-access-secret", "test-refresh-secret", 15*time.Minute, 240*time.Hour)
	sessions := auth.NewManager(env.users, env.signer, testHasher{})

	engine := &aggregate.Engine{
		Users:         env.users,
		Videos:        env.videos,
		Playlists:     env.playlists,
		Subscriptions: env.subscriptions,
		Likes:         env.likes,
		History:       env.history,
	}

	env.mux = http.NewServeMux()
	RegisterRoutes(env.mux, Dependencies{
		Users:         env.users,
		Videos:        env.videos,
		Playlists:     env.playlists,
		Subscriptions: env.subscriptions,
		Comments:      env.comments,
		Tweets:        env.tweets,
		Likes:         env.likes,
		History:       env.history,

		Sessions: sessions,
		Verifier: env.signer,
		Identity: env.users,
		Hasher:   testHasher{},
		Content:  env.content,
		Engine:   engine,

		SecureCookies: false,
	})

	return env
}

// createUser seeds an account whose password is "password123".
func (env *testEnv) createUser(t *testing.T, id, username string) models.User {
	t.Helper()
	user := models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		FullName:     strings.ToUpper(username[:1]) + username[1:],
		AvatarURL:    "https://cdn.test/avatars/" + username + ".png",
		AvatarKey:    "avatars/" + username + ".png",
		PasswordHash: "hashed:password123",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	env.users.users[id] = user
	return user
}

func (env *testEnv) createVideo(t *testing.T, id, ownerID string, published bool) models.Video {
	t.Helper()
	video := models.Video{
		ID:           id,
		OwnerID:      ownerID,
		VideoURL:     "https://cdn.test/videos/" + id + ".mp4",
		VideoKey:     "videos/" + id + ".mp4",
		ThumbnailURL: "https://cdn.test/thumbnails/" + id + ".png",
		ThumbnailKey: "thumbnails/" + id + ".png",
		Title:        "Video " + id,
		Description:  "About " + id,
		IsPublished:  published,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := env.videos.Create(context.Background(), video); err != nil {
		t.Fatalf("create video: %v", err)
	}
	return video
}

// do routes a request through the mux with an optional acting identity
// supplied as a bearer token.
func (env *testEnv) do(t *testing.T, method, target string, body io.Reader, as *models.User) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		token, _, err := env.signer.SignAccess(*as)
		if err != nil {
			t.Fatalf("sign access token: %v", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}
