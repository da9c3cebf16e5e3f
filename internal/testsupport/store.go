package testsupport

import (
	"context"
	"testing"

	"hlspack/internal/config"
	"hlspack/internal/queue"
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

// NewFile enqueues a source file for tests using the provided store.
func NewFile(t testing.TB, store *queue.Store, sourcePath string) *queue.Item {
	t.Helper()

	item, err := store.NewFile(context.Background(), sourcePath)
	if err != nil {
		t.Fatalf("store.NewFile: %v", err)
	}
	return item
}
