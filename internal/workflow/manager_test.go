package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
	"microlesson/internal/stage"
	"microlesson/internal/testsupport"
	"microlesson/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Video)
	executeHook func(*queue.Video)
	prepareErr  error
	executeErr  error
	health      stage.Health
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, video *queue.Video) error {
	if s.prepareHook != nil {
		s.prepareHook(video)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, video *queue.Video) error {
	if s.executeHook != nil {
		s.executeHook(video)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func fullStageSet() workflow.StageSet {
	return workflow.StageSet{
		Transcriber:  newStubStage("transcriber"),
		Analyzer:     newStubStage("analyzer"),
		ScriptWriter: newStubStage("script-writer"),
		Segmenter:    newStubStage("segmenter"),
		Synthesizer:  newStubStage("synthesizer"),
		Renderer:     newStubStage("renderer"),
	}
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Video {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		video, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if video.Status == want {
			return video
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesVideoThroughAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(fullStageSet())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	video := testsupport.NewUpload(t, store, "Lecture", "/tmp/lecture.mp4")
	done := waitForStatus(t, store, video.ID, queue.StatusCompleted)
	if done.ProgressPercent != 100 {
		t.Fatalf("expected 100%% progress at completion, got %v", done.ProgressPercent)
	}
}

func TestManagerRecordsStageFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)

	set := fullStageSet()
	analyzer := newStubStage("analyzer")
	analyzer.executeErr = services.Wrap(
		services.ErrExternalService, "analyzer", "complete",
		"Text generation backend unavailable", nil)
	set.Analyzer = analyzer

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	video := testsupport.NewUpload(t, store, "Failing", "/tmp/failing.mp4")
	failed := waitForStatus(t, store, video.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected failure message recorded")
	}
	if failed.ErrorMessage != "Text generation backend unavailable" {
		t.Fatalf("unexpected failure message: %q", failed.ErrorMessage)
	}
}

func TestManagerMultipleWorkersProcessAllVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(3))
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(fullStageSet())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	first := testsupport.NewUpload(t, store, "One", "/tmp/one.mp4")
	second := testsupport.NewUpload(t, store, "Two", "/tmp/two.mp4")
	third := testsupport.NewUpload(t, store, "Three", "/tmp/three.mp4")

	waitForStatus(t, store, first.ID, queue.StatusCompleted)
	waitForStatus(t, store, second.ID, queue.StatusCompleted)
	waitForStatus(t, store, third.ID, queue.StatusCompleted)
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set := fullStageSet()
	transcriber := newStubStage("transcriber")
	transcriber.health = stage.Unhealthy("transcriber", "dependency missing")
	set.Transcriber = transcriber

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(set)

	status := mgr.Status(context.Background())
	health, ok := status.StageHealth["transcriber"]
	if !ok {
		t.Fatal("expected stage health entry for transcriber")
	}
	if health.Ready {
		t.Fatal("expected transcriber to report unhealthy")
	}
	if status.Running {
		t.Fatal("expected manager not running")
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	if err := mgr.Start(context.Background()); err == nil {
		mgr.Stop()
		t.Fatal("expected error starting manager without stages")
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (r *recordingNotifier) NotifyIngestCompleted(_ context.Context, title string) error {
	return nil
}

func (r *recordingNotifier) NotifyLessonCompleted(_ context.Context, title string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, title)
	return nil
}

func (r *recordingNotifier) NotifyVideoFailed(_ context.Context, title, _ string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, title)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) snapshot() (completed, failed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completed...), append([]string(nil), r.failed...)
}

// titleFailStage fails only for one specific video title.
type titleFailStage struct {
	failTitle string
}

func (titleFailStage) Prepare(context.Context, *queue.Video) error { return nil }

func (s titleFailStage) Execute(_ context.Context, video *queue.Video) error {
	if video.Title == s.failTitle {
		return services.Wrap(
			services.ErrMediaProcessing, "renderer", "composite",
			"Encoder crashed", nil)
	}
	return nil
}

func (titleFailStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("renderer")
}

func TestManagerNotifiesOnCompletionAndFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)

	set := fullStageSet()
	set.Renderer = titleFailStage{failTitle: "Doomed"}

	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.SetNotifier(notifier)
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	good := testsupport.NewUpload(t, store, "Photosynthesis", "/tmp/photo.mp4")
	waitForStatus(t, store, good.ID, queue.StatusCompleted)

	bad := testsupport.NewUpload(t, store, "Doomed", "/tmp/doomed.mp4")
	waitForStatus(t, store, bad.ID, queue.StatusFailed)

	completed, failed := notifier.snapshot()
	if len(completed) != 1 || completed[0] != "Photosynthesis" {
		t.Fatalf("unexpected completion notifications: %v", completed)
	}
	if len(failed) != 1 || failed[0] != "Doomed" {
		t.Fatalf("unexpected failure notifications: %v", failed)
	}
}
