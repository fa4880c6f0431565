package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVideoGetCountsViewAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")
	viewer := env.createUser(t, "viewer", "grace")
	video := env.createVideo(t, "v1", owner.ID, true)

	rec := env.do(t, http.MethodGet, "/api/v1/videos/"+video.ID, nil, &viewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if env.videos.videos[video.ID].Views != 1 {
		t.Fatalf("expected one view counted, got %d", env.videos.videos[video.ID].Views)
	}
	if got := env.history.watched[viewer.ID]; len(got) != 1 || got[0] != video.ID {
		t.Fatalf("expected the watch recorded, got %v", got)
	}

	_, data, _, _ := decodeEnvelope(t, rec)
	if !bytes.Contains(data, []byte(`"views":1`)) {
		t.Fatalf("expected the response to reflect the counted view, got %s", data)
	}
}

func TestVideoGetUnpublishedHiddenFromNonOwners(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")
	other := env.createUser(t, "other", "grace")
	draft := env.createVideo(t, "draft", owner.ID, false)

	rec := env.do(t, http.MethodGet, "/api/v1/videos/"+draft.ID, nil, &other)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 hiding the draft, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/videos/"+draft.ID, nil, &owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected the owner to see the draft, got %d", rec.Code)
	}
}

func TestVideoListOnlyPublished(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")
	env.createVideo(t, "pub", owner.ID, true)
	env.createVideo(t, "draft", owner.ID, false)

	rec := env.do(t, http.MethodGet, "/api/v1/videos", nil, &owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	_, data, _, _ := decodeEnvelope(t, rec)
	var videos []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &videos); err != nil {
		t.Fatalf("decode videos: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "pub" {
		t.Fatalf("expected only published videos, got %+v", videos)
	}
}

func TestVideoListAllowsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")
	env.createVideo(t, "pub", owner.ID, true)

	rec := env.do(t, http.MethodGet, "/api/v1/videos", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous feed, got %d: %s", rec.Code, rec.Body.String())
	}

	_, data, _, _ := decodeEnvelope(t, rec)
	if !bytes.Contains(data, []byte(`"id":"pub"`)) {
		t.Fatalf("expected the published video in the feed, got %s", data)
	}
}

func TestVideoDeleteOwnershipAndAssetCleanup(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")
	other := env.createUser(t, "other", "grace")
	video := env.createVideo(t, "v1", owner.ID, true)

	rec := env.do(t, http.MethodDelete, "/api/v1/videos/"+video.ID, nil, &other)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-owner delete, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/videos/"+video.ID, nil, &owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d", rec.Code)
	}

	if _, ok := env.videos.videos[video.ID]; ok {
		t.Fatal("expected video removed")
	}
	if len(env.content.deleted) != 2 {
		t.Fatalf("expected both media objects deleted, got %v", env.content.deleted)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/videos/"+video.ID, nil, &owner)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
}

func TestVideoTogglePublish(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")
	other := env.createUser(t, "other", "grace")
	video := env.createVideo(t, "v1", owner.ID, true)

	rec := env.do(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+video.ID, nil, &other)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-owner toggle, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+video.ID, nil, &owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env.videos.videos[video.ID].IsPublished {
		t.Fatal("expected the video unpublished after toggle")
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/videos/toggle/publish/"+video.ID, nil, &owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !env.videos.videos[video.ID].IsPublished {
		t.Fatal("expected the video republished after second toggle")
	}
}

func TestVideoPublishMultipart(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "ada")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("title", "My Video")
	_ = writer.WriteField("description", "About things")
	_ = writer.WriteField("duration", "42.5")

	part, err := writer.CreateFormFile("videoFile", "clip.mp4")
	if err != nil {
		t.Fatalf("create video part: %v", err)
	}
	if _, err := part.Write([]byte("fake-mp4")); err != nil {
		t.Fatalf("write video: %v", err)
	}
	part, err = writer.CreateFormFile("thumbnail", "thumb.png")
	if err != nil {
		t.Fatalf("create thumbnail part: %v", err)
	}
	if _, err := part.Write([]byte("fake-png")); err != nil {
		t.Fatalf("write thumbnail: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	token, _, err := env.signer.SignAccess(owner)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(env.videos.videos) != 1 {
		t.Fatalf("expected one video stored, got %d", len(env.videos.videos))
	}
	for _, video := range env.videos.videos {
		if video.OwnerID != owner.ID || video.Duration != 42.5 || !video.IsPublished {
			t.Fatalf("unexpected video: %+v", video)
		}
	}
	if len(env.content.uploads) != 2 {
		t.Fatalf("expected video and thumbnail uploaded, got %v", env.content.uploads)
	}
}
