package engine

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

func writeScript(t *testing.T, content string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+content), 0755))
	return script
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Options{
		Command: "flashflow-engine-that-does-not-exist",
		Root:    t.TempDir(),
		Host:    "localhost",
		Port:    8012,
	}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStartEmptyCommand(t *testing.T) {
	_, err := Start(context.Background(), Options{Command: "  ", Root: t.TempDir()}, testLogger())
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	script := writeScript(t, "exec sleep 30\n")

	h, err := Start(context.Background(), Options{
		Command: script,
		Root:    t.TempDir(),
		Host:    "localhost",
		Port:    8012,
	}, testLogger())
	require.NoError(t, err)

	assert.True(t, h.Running())
	assert.Greater(t, h.PID(), 0)

	start := time.Now()
	h.Stop(context.Background())
	assert.Less(t, time.Since(start), 3*time.Second, "interrupt should stop the engine quickly")
	assert.False(t, h.Running())
}

func TestStopIsIdempotent(t *testing.T) {
	script := writeScript(t, "exec sleep 30\n")

	h, err := Start(context.Background(), Options{Command: script, Root: t.TempDir(), Port: 8012}, testLogger())
	require.NoError(t, err)

	h.Stop(context.Background())
	h.Stop(context.Background())
	assert.False(t, h.Running())
}

func TestStopAfterExit(t *testing.T) {
	script := writeScript(t, "exit 0\n")

	h, err := Start(context.Background(), Options{Command: script, Root: t.TempDir(), Port: 8012}, testLogger())
	require.NoError(t, err)

	// Wait for the process to finish on its own.
	deadline := time.After(5 * time.Second)
	for h.Running() {
		select {
		case <-deadline:
			t.Fatal("engine never exited")
		case <-time.After(10 * time.Millisecond):
		}
	}

	h.Stop(context.Background())
	assert.NoError(t, h.Err())
}

func TestEngineEnvironment(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "env.txt")
	script := writeScript(t, "echo port=$FLASHFLOW_DIRECT_PORT root=$1 > "+out+"\nexec sleep 30\n")

	h, err := Start(context.Background(), Options{
		Command: script,
		Root:    dir,
		Host:    "localhost",
		Port:    8012,
	}, testLogger())
	require.NoError(t, err)
	defer h.Stop(context.Background())

	var data []byte
	require.Eventually(t, func() bool {
		var readErr error
		data, readErr = os.ReadFile(out)
		return readErr == nil && len(data) > 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.Contains(t, string(data), "port=8012")
	assert.Contains(t, string(data), "root="+dir)
}
