package watcher

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notifierFor(t *testing.T, server *httptest.Server) *Notifier {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return NewNotifier(host, port, testLogger())
}

func TestNotifyPostsReload(t *testing.T) {
	var hits atomic.Int64
	var method, path atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		method.Store(r.Method)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := notifierFor(t, server)
	n.Notify(context.Background())

	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, http.MethodPost, method.Load())
	assert.Equal(t, ReloadPath, path.Load())
}

func TestNotifySurvivesDeadServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	n := notifierFor(t, server)
	server.Close()

	// Must log and return, not panic or block the loop.
	n.Notify(context.Background())
}

func TestNotifierURL(t *testing.T) {
	n := NewNotifier("localhost", 8000, testLogger())
	assert.Equal(t, "http://localhost:8000/__reload", n.URL())
}
