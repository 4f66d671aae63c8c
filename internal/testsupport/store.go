package testsupport

import (
	"context"
	"testing"

	"microlesson/internal/config"
	"microlesson/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUpload creates a new uploaded video row for tests using the provided store.
func NewUpload(t testing.TB, store *queue.Store, title, sourcePath string) *queue.Video {
	t.Helper()

	video, err := store.NewUpload(context.Background(), title, sourcePath)
	if err != nil {
		t.Fatalf("store.NewUpload: %v", err)
	}
	return video
}
