package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"microlesson/internal/api"
	"microlesson/internal/daemon"
	"microlesson/internal/ipc"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/stage"
	"microlesson/internal/testsupport"
	"microlesson/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Video) error { return nil }
func (noopStage) Execute(context.Context, *queue.Video) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Transcriber: noopStage{}})
	videoSvc := api.NewVideoService(store, nil, nil, nil)
	d, err := daemon.New(cfg, store, logger, mgr, videoSvc, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "microlessond.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", status.PID)
	}

	videoA := testsupport.NewUpload(t, store, "Photosynthesis Basics", filepath.Join(cfg.Paths.StagingDir, "a.mp4"))
	videoB := testsupport.NewUpload(t, store, "Chain Rule", filepath.Join(cfg.Paths.StagingDir, "b.mp4"))
	videoB.Status = queue.StatusFailed
	if err := store.Update(ctx, videoB); err != nil {
		t.Fatalf("Update videoB: %v", err)
	}
	videoC := testsupport.NewUpload(t, store, "Ohm's Law", filepath.Join(cfg.Paths.StagingDir, "c.mp4"))
	videoC.Status = queue.StatusAnalyzing
	if err := store.Update(ctx, videoC); err != nil {
		t.Fatalf("Update videoC: %v", err)
	}

	segments := []*queue.Segment{
		{Sequence: 1, Phase: "hook", StartTime: 0, EndTime: 12.5, ScriptText: "Why do leaves look green?", Status: queue.SegmentSegmented},
		{Sequence: 2, Phase: "core", StartTime: 12.5, EndTime: 48, ScriptText: "Chlorophyll absorbs red and blue light.", Status: queue.SegmentSegmented},
	}
	if err := store.ReplaceSegments(ctx, videoA.ID, segments); err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}

	statusResp, err := client.VideoStatus(videoA.ID)
	if err != nil {
		t.Fatalf("VideoStatus failed: %v", err)
	}
	if statusResp.Status.Video.ID != videoA.ID {
		t.Fatalf("expected video %d, got %d", videoA.ID, statusResp.Status.Video.ID)
	}
	if len(statusResp.Status.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(statusResp.Status.Segments))
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	stopDuring, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopDuring.Stopped {
		t.Fatalf("expected Stop to report stopped, got: %#v", stopDuring)
	}

	videoA.Status = queue.StatusCompleted
	if err := store.Update(ctx, videoA); err != nil {
		t.Fatalf("Update videoA: %v", err)
	}

	listResp, err := client.VideoList(nil)
	if err != nil {
		t.Fatalf("VideoList failed: %v", err)
	}
	if len(listResp.Videos) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(listResp.Videos))
	}

	failedResp, err := client.VideoList([]string{string(queue.StatusFailed)})
	if err != nil {
		t.Fatalf("VideoList failed filter: %v", err)
	}
	if len(failedResp.Videos) != 1 || failedResp.Videos[0].ID != videoB.ID {
		t.Fatalf("expected failed video %d", videoB.ID)
	}

	resetResp, err := client.QueueReset()
	if err != nil {
		t.Fatalf("QueueReset failed: %v", err)
	}
	if resetResp.Updated != 1 {
		t.Fatalf("expected 1 video reset, got %d", resetResp.Updated)
	}
	updatedC, err := store.GetByID(ctx, videoC.ID)
	if err != nil {
		t.Fatalf("GetByID videoC: %v", err)
	}
	if updatedC.Status != queue.StatusTranscribed {
		t.Fatalf("expected videoC to resume at analysis input after reset, got %s", updatedC.Status)
	}

	clearFailedResp, err := client.QueueClearFailed()
	if err != nil {
		t.Fatalf("QueueClearFailed failed: %v", err)
	}
	if clearFailedResp.Removed != 1 {
		t.Fatalf("expected 1 failed video removed, got %d", clearFailedResp.Removed)
	}

	clearCompletedResp, err := client.QueueClearCompleted()
	if err != nil {
		t.Fatalf("QueueClearCompleted failed: %v", err)
	}
	if clearCompletedResp.Removed != 1 {
		t.Fatalf("expected 1 completed video removed, got %d", clearCompletedResp.Removed)
	}

	retryResp, err := client.QueueRetry(nil)
	if err != nil {
		t.Fatalf("QueueRetry failed: %v", err)
	}
	if retryResp.Updated != 0 {
		t.Fatalf("expected 0 retried videos, got %d", retryResp.Updated)
	}

	healthResp, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if healthResp.Total != 1 || healthResp.Failed != 0 {
		t.Fatalf("unexpected health response: %#v", healthResp)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !strings.HasSuffix(dbHealth.DBPath, "queue.db") {
		t.Fatalf("unexpected db path: %s", dbHealth.DBPath)
	}

	clearResp, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear failed: %v", err)
	}
	if clearResp.Removed != 1 {
		t.Fatalf("expected 1 video cleared, got %d", clearResp.Removed)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestIPCIngestWithoutIngestor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Transcriber: noopStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, api.NewVideoService(store, nil, nil, nil), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "microlessond-ingest.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	if _, err := client.Ingest(ipc.IngestRequest{Path: "/tmp/lesson.mp4"}); err == nil {
		t.Fatal("expected ingest without ingestor to fail")
	}
}
