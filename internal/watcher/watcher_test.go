package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centy-io/centy-daemon/internal/server/events"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []events.EventType
}

func (p *capturingPublisher) Publish(eventType events.EventType, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, eventType)
}

func (p *capturingPublisher) count(eventType events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.published {
		if t == eventType {
			n++
		}
	}
	return n
}

func startWatcher(t *testing.T) (string, *capturingPublisher) {
	t.Helper()

	dir := t.TempDir()
	rec := reconcile.NewService()
	_, err := rec.Init(context.Background(), dir)
	require.NoError(t, err)

	pub := &capturingPublisher{}
	logger := zerolog.Nop()
	w := New(dir, rec, pub, &logger)
	w.debounce = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Give fsnotify time to establish watches before mutating.
	time.Sleep(50 * time.Millisecond)
	return dir, pub
}

func waitForDrift(t *testing.T, pub *capturingPublisher) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if pub.count(events.DriftDetected) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no drift event published")
}

func TestWatcherPublishesDriftOnEdit(t *testing.T) {
	dir, pub := startWatcher(t)

	readme := filepath.Join(manifest.CentyPath(dir), "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("locally edited\n"), 0o644))

	waitForDrift(t, pub)
}

func TestWatcherPublishesDriftOnDelete(t *testing.T) {
	dir, pub := startWatcher(t)

	require.NoError(t, os.Remove(filepath.Join(manifest.CentyPath(dir), "README.md")))

	waitForDrift(t, pub)
}

func TestWatcherIgnoresManifestWrites(t *testing.T) {
	dir, pub := startWatcher(t)

	// Rewriting the manifest itself is the engine's own bookkeeping,
	// not drift.
	manifestPath := manifest.Path(dir)
	data, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(manifestPath, data, 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, pub.count(events.DriftDetected))
}
