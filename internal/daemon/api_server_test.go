package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"microlesson/internal/api"
	"microlesson/internal/config"
	"microlesson/internal/ingestion"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/testsupport"
	"microlesson/internal/workflow"
)

type ingestorStub struct {
	receipt *ingestion.Receipt
	err     error
}

func (s *ingestorStub) IngestUpload(ctx context.Context, path, title, subjectArea string) (*ingestion.Receipt, error) {
	return s.receipt, s.err
}

func (s *ingestorStub) IngestRemote(ctx context.Context, rawURL, title, subjectArea string) (*ingestion.Receipt, error) {
	return s.receipt, s.err
}

type rendererStub struct {
	seg *queue.Segment
	err error
}

func (s *rendererStub) RenderSegment(ctx context.Context, videoID int64, sequence int) (*queue.Segment, error) {
	return s.seg, s.err
}

func newTestServer(t *testing.T, cfg *config.Config, store *queue.Store, svc *api.VideoService) *apiServer {
	t.Helper()

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := New(cfg, store, logger, mgr, svc, "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		t.Fatalf("newAPIServer: %v", err)
	}
	return srv
}

func TestHandleVideoList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, nil, nil))

	testsupport.NewUpload(t, store, "Sorting Basics", "/media/sorting.mp4")
	testsupport.NewUpload(t, store, "Graph Traversal", "/media/graphs.mp4")

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	w := httptest.NewRecorder()
	srv.handleVideos(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.VideoListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(resp.Videos))
	}
}

func TestHandleVideoListRejectsUnknownStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/videos?status=bogus", nil)
	w := httptest.NewRecorder()
	srv.handleVideos(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleIngestAccepted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ingestor := &ingestorStub{receipt: &ingestion.Receipt{VideoID: 12, Title: "Calculus Intro"}}
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, ingestor, nil, nil))

	body := strings.NewReader(`{"path":"/media/calc.mp4","title":"Calculus Intro"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
	w := httptest.NewRecorder()
	srv.handleVideos(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.VideoID != 12 {
		t.Fatalf("unexpected video id: %d", resp.VideoID)
	}
}

func TestHandleIngestRejectsAmbiguousSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, &ingestorStub{}, nil, nil))

	body := strings.NewReader(`{"path":"/media/a.mp4","url":"https://example.com/v"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
	w := httptest.NewRecorder()
	srv.handleVideos(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleVideoStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, nil, nil))

	video := testsupport.NewUpload(t, store, "Recursion", "/media/recursion.mp4")

	req := httptest.NewRequest(http.MethodGet, "/api/videos/1", nil)
	w := httptest.NewRecorder()
	srv.handleVideoSubtree(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.VideoStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Video.ID != video.ID || resp.Video.Title != "Recursion" {
		t.Fatalf("unexpected payload: %+v", resp.Video)
	}
}

func TestHandleVideoStatusNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/videos/777", nil)
	w := httptest.NewRecorder()
	srv.handleVideoSubtree(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleSegmentRenderConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := &rendererStub{err: services.Wrap(
		services.ErrConflict, "rendering", "claim segment", "Segment 2 is already rendering", nil)}
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, renderer, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/videos/1/segments/2/render", nil)
	w := httptest.NewRecorder()
	srv.handleVideoSubtree(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestHandleSegmentRenderSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	renderer := &rendererStub{seg: &queue.Segment{Sequence: 2, Status: queue.SegmentRendered}}
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, renderer, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/videos/1/segments/2/render", nil)
	w := httptest.NewRecorder()
	srv.handleVideoSubtree(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.Segment
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(queue.SegmentRendered) {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
}

func TestHandleSearchRequiresTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := newTestServer(t, cfg, store, api.NewVideoService(store, nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	w := httptest.NewRecorder()
	srv.handleSearch(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", w.Code)
	}
}
