package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
)

// ReloadPath is where the build loop posts its reload notifications.
const ReloadPath = "/__reload"

// writeWait bounds how long a reload write may block on one client.
const writeWait = 10 * time.Second

// reloadMessage is the signal pushed to every connected browser.
var reloadMessage = []byte(`{"type": "reload"}`)

// handleReload accepts a notification from the build loop and fans it
// out to every connected browser. The loop runs in another process, so
// this stays a plain HTTP POST rather than an in-process call.
func (s *DevServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.hub.Broadcast()
	s.logger.Debug(r.Context(), "reload broadcast", "clients", s.hub.Len())

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.logger.Warn(r.Context(), err, "writing reload response")
	}
}

// handleWebSocket upgrades the connection and pushes a reload message
// for every hub signal until the client goes away or the hub closes.
func (s *DevServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin is checked above
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	sub := s.hub.Subscribe()
	defer sub.Cancel()

	s.logger.Debug(r.Context(), "reload client connected", "clients", s.hub.Len())

	// The socket is push only. CloseRead watches for the client going
	// away and closes the connection if it tries to send.
	readCtx := conn.CloseRead(r.Context())

	for {
		select {
		case <-readCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case _, ok := <-sub.C():
			if !ok {
				// The hub shut down or pruned this client.
				conn.Close(websocket.StatusGoingAway, "server closing")
				return
			}
			writeCtx, cancel := context.WithTimeout(readCtx, writeWait)
			err := conn.Write(writeCtx, websocket.MessageText, reloadMessage)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// checkOrigin validates the Origin header of a websocket request.
// Browser clients must come from the server's own origin or a localhost
// alias of it; clients without an Origin header, such as CLI tooling,
// are let through.
func (s *DevServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if originURL.Host == r.Host {
		return true
	}
	allowed := []string{
		fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		fmt.Sprintf("localhost:%d", s.cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", s.cfg.Server.Port),
	}
	for _, host := range allowed {
		if originURL.Host == host {
			return true
		}
	}
	return false
}
