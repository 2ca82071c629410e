package watcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

// ReloadPath is the endpoint a dev server exposes for reload requests.
const ReloadPath = "/__reload"

// Notifier tells a dev server that browsers should reload. The target is
// addressed by host and port so the build loop can notify a server in
// another process, which is also why the hub is not called directly.
type Notifier struct {
	url    string
	client *http.Client
	logger logging.Logger
}

// NewNotifier returns a notifier posting to the dev server at host:port.
func NewNotifier(host string, port int, logger logging.Logger) *Notifier {
	return &Notifier{
		url:    fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), ReloadPath),
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger.WithComponent("notifier"),
	}
}

// URL returns the reload endpoint being targeted.
func (n *Notifier) URL() string {
	return n.url
}

// Notify posts the reload request. Failures are logged and swallowed; an
// unreachable dev server must not break the build loop.
func (n *Notifier) Notify(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, nil)
	if err != nil {
		n.logger.Warn(ctx, err, "building reload request")
		return
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn(ctx, err, "reload notification failed", "url", n.url)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Warn(ctx, nil, "reload notification rejected", "url", n.url, "status", resp.StatusCode)
		return
	}
	n.logger.Debug(ctx, "reload notification sent", "url", n.url)
}
