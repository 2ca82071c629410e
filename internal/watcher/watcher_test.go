package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelError,
		Format: "text",
		Output: io.Discard,
	})
}

func startTestWatcher(t *testing.T, debounce time.Duration, roots ...string) (*FileWatcher, chan []ChangeEvent) {
	t.Helper()

	fw, err := NewFileWatcher(debounce, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { fw.Stop() })

	batches := make(chan []ChangeEvent, 10)
	fw.AddHandler(func(events []ChangeEvent) error {
		batches <- events
		return nil
	})

	for _, root := range roots {
		require.NoError(t, fw.AddRecursive(root))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fw.Start(ctx)

	// Give the watch loops a moment to come up.
	time.Sleep(50 * time.Millisecond)
	return fw, batches
}

func waitForBatch(t *testing.T, batches chan []ChangeEvent, timeout time.Duration) []ChangeEvent {
	t.Helper()
	select {
	case batch := <-batches:
		return batch
	case <-time.After(timeout):
		t.Fatal("no change batch arrived")
		return nil
	}
}

func expectNoBatch(t *testing.T, batches chan []ChangeEvent, wait time.Duration) {
	t.Helper()
	select {
	case batch := <-batches:
		t.Fatalf("unexpected change batch: %v", batch)
	case <-time.After(wait):
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.eventType.String())
	}
}

func TestExtensionFilter(t *testing.T) {
	filter := ExtensionFilter([]string{".flow", ".css", ".js"})

	tests := []struct {
		path string
		want bool
	}{
		{"src/flows/home.flow", true},
		{"src/flows/HOME.FLOW", true},
		{"src/assets/app.css", true},
		{"src/flows/.home.flow.swp", false},
		{"src/flows/home.flow~", false},
		{"dist/bundle.map", false},
		{"Makefile", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, filter(tt.path), "path %q", tt.path)
	}
}

func TestNoHiddenFilter(t *testing.T) {
	root := filepath.Join("/home", "dev", ".projects", "demo")
	filter := NoHiddenFilter(root)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "flows", "home.flow"), true},
		{filepath.Join(root, "src", ".cache", "state.json"), false},
		{filepath.Join(root, ".env"), false},
		// Dot components above the project root do not count.
		{filepath.Join(root, "src", "app.flow"), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, filter(tt.path), "path %q", tt.path)
	}
}

func TestWatcherDeliversDebouncedBatch(t *testing.T) {
	dir := t.TempDir()
	fw, batches := startTestWatcher(t, 100*time.Millisecond, dir)
	fw.AddFilter(ExtensionFilter([]string{".flow"}))

	file := filepath.Join(dir, "home.flow")
	require.NoError(t, os.WriteFile(file, []byte("page:\n  title: Home\n"), 0644))

	batch := waitForBatch(t, batches, 3*time.Second)
	require.NotEmpty(t, batch)
	assert.Equal(t, file, batch[0].Path)
}

func TestWatcherCoalescesRapidSaves(t *testing.T) {
	dir := t.TempDir()
	fw, batches := startTestWatcher(t, 200*time.Millisecond, dir)
	fw.AddFilter(ExtensionFilter([]string{".flow"}))

	file := filepath.Join(dir, "home.flow")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte("page:\n  title: Home\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	batch := waitForBatch(t, batches, 3*time.Second)
	assert.Len(t, batch, 1, "rapid saves of one file must deduplicate")
	expectNoBatch(t, batches, 500*time.Millisecond)
}

func TestWatcherIgnoresFilteredExtensions(t *testing.T) {
	dir := t.TempDir()
	fw, batches := startTestWatcher(t, 100*time.Millisecond, dir)
	fw.AddFilter(ExtensionFilter([]string{".flow"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.tmp"), []byte("x"), 0644))
	expectNoBatch(t, batches, 400*time.Millisecond)
}

func TestWatcherIgnoresExcludedDir(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dist := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.MkdirAll(dist, 0755))

	fw, err := NewFileWatcher(100*time.Millisecond, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { fw.Stop() })

	batches := make(chan []ChangeEvent, 10)
	fw.AddHandler(func(events []ChangeEvent) error {
		batches <- events
		return nil
	})
	fw.AddFilter(ExtensionFilter([]string{".flow", ".js"}))
	fw.Exclude(dist)
	require.NoError(t, fw.AddRecursive(root))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fw.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	// Build output must never feed back into the loop.
	require.NoError(t, os.WriteFile(filepath.Join(dist, "bundle.js"), []byte("out"), 0644))
	expectNoBatch(t, batches, 400*time.Millisecond)

	// The loop is still alive for real sources.
	require.NoError(t, os.WriteFile(filepath.Join(src, "home.flow"), []byte("page:\n"), 0644))
	waitForBatch(t, batches, 3*time.Second)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	fw, batches := startTestWatcher(t, 100*time.Millisecond, dir)
	fw.AddFilter(ExtensionFilter([]string{".flow"}))

	sub := filepath.Join(dir, "admin")
	require.NoError(t, os.MkdirAll(sub, 0755))
	// Let the create event register the new directory.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "users.flow"), []byte("page:\n"), 0644))
	batch := waitForBatch(t, batches, 3*time.Second)
	require.NotEmpty(t, batch)
	assert.Equal(t, filepath.Join(sub, "users.flow"), batch[0].Path)
}

func TestWatcherSkipsDotDirectories(t *testing.T) {
	root := t.TempDir()
	state := filepath.Join(root, ".flashflow")
	require.NoError(t, os.MkdirAll(state, 0755))

	fw, batches := startTestWatcher(t, 100*time.Millisecond, root)
	fw.AddFilter(ExtensionFilter([]string{".flow", ".json"}))

	require.NoError(t, os.WriteFile(filepath.Join(state, "cache.json"), []byte("{}"), 0644))
	expectNoBatch(t, batches, 400*time.Millisecond)
}

func TestStopReleasesWatcher(t *testing.T) {
	fw, err := NewFileWatcher(time.Second, testLogger())
	require.NoError(t, err)
	assert.NoError(t, fw.Stop())
}
