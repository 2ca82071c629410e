package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/boifagusy/flashflow-sub000/internal/flow"
	"github.com/boifagusy/flashflow-sub000/internal/history"
	"github.com/boifagusy/flashflow-sub000/internal/version"
)

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
    <title>FlashFlow Dev</title>
    <style>
        body {
            font-family: system-ui, -apple-system, sans-serif;
            margin: 0;
            background: #f5f6f8;
            color: #1f2430;
        }
        header {
            background: #1f2430;
            color: #fff;
            padding: 14px 24px;
            display: flex;
            align-items: baseline;
            gap: 12px;
        }
        header h1 { margin: 0; font-size: 18px; }
        header .project { color: #8fd3ff; font-weight: 600; }
        header .version { color: #9aa3b2; font-size: 12px; margin-left: auto; }
        nav { background: #2a3142; padding: 8px 24px; }
        nav a {
            color: #c7d0de;
            text-decoration: none;
            margin-right: 18px;
            font-size: 14px;
        }
        nav a:hover { color: #fff; }
        .status {
            position: fixed;
            top: 12px;
            right: 24px;
            padding: 4px 12px;
            border-radius: 12px;
            color: #fff;
            font-size: 12px;
            font-weight: 600;
        }
        .status.connected { background: #2e9e5b; }
        .status.disconnected { background: #c74343; }
        main { max-width: 1100px; margin: 24px auto; padding: 0 24px; }
        section {
            background: #fff;
            border: 1px solid #e3e6eb;
            border-radius: 8px;
            padding: 18px 20px;
            margin-bottom: 20px;
        }
        section h2 { margin: 0 0 12px; font-size: 15px; }
        table { width: 100%; border-collapse: collapse; font-size: 14px; }
        th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #eef0f3; }
        th { color: #6a7281; font-weight: 600; font-size: 12px; text-transform: uppercase; }
        td a { color: #2563b0; text-decoration: none; }
        .ok { color: #2e9e5b; font-weight: 600; }
        .fail { color: #c74343; font-weight: 600; }
        .empty { color: #9aa3b2; padding: 10px; }
    </style>
</head>
<body>
    <header>
        <h1>FlashFlow Dev</h1>
        <span class="project" id="project">&hellip;</span>
        <span class="version" id="version"></span>
    </header>
    <nav>
        <a href="/admin/">Admin</a>
        <a href="/api/docs">API Docs</a>
        <a href="/api/tester">API Tester</a>
        <a href="/preview/desktop">Preview</a>
        <a href="/backend">Backend</a>
    </nav>
    <div id="status" class="status disconnected">Disconnected</div>
    <main>
        <section>
            <h2>Flows</h2>
            <table>
                <thead><tr><th>File</th><th>Route</th><th>Title</th><th>Components</th><th>Blocks</th></tr></thead>
                <tbody id="flows"><tr><td colspan="5" class="empty">Loading&hellip;</td></tr></tbody>
            </table>
        </section>
        <section>
            <h2>Recent Builds</h2>
            <table>
                <thead><tr><th>When</th><th>Scope</th><th>Environment</th><th>Result</th><th>Duration</th></tr></thead>
                <tbody id="builds"><tr><td colspan="5" class="empty">Loading&hellip;</td></tr></tbody>
            </table>
        </section>
    </main>

    <script>
        let ws;
        let reconnectInterval;

        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + window.location.host + '/ws');

            ws.onopen = function() {
                document.getElementById('status').className = 'status connected';
                document.getElementById('status').textContent = 'Connected';
                clearInterval(reconnectInterval);
                refresh();
            };

            ws.onmessage = function(event) {
                const message = JSON.parse(event.data);
                if (message.type === 'reload') {
                    refresh();
                }
            };

            ws.onclose = function() {
                document.getElementById('status').className = 'status disconnected';
                document.getElementById('status').textContent = 'Disconnected';
                reconnectInterval = setInterval(connect, 2000);
            };
        }

        function cell(row, text) {
            const td = document.createElement('td');
            td.textContent = text;
            row.appendChild(td);
            return td;
        }

        function emptyRow(tbody, span, text) {
            const tr = document.createElement('tr');
            const td = cell(tr, text);
            td.className = 'empty';
            td.colSpan = span;
            tbody.replaceChildren(tr);
        }

        function loadHealth() {
            fetch('/api/health')
                .then(response => response.json())
                .then(health => {
                    document.getElementById('project').textContent = health.project;
                    document.getElementById('version').textContent = 'v' + health.version;
                });
        }

        function loadFlows() {
            fetch('/api/flows')
                .then(response => response.json())
                .then(flows => {
                    const tbody = document.getElementById('flows');
                    if (flows.length === 0) {
                        emptyRow(tbody, 5, 'No flow files yet. Create src/flows/app.flow to get started.');
                        return;
                    }
                    tbody.replaceChildren();
                    flows.forEach(flow => {
                        const tr = document.createElement('tr');
                        cell(tr, flow.file);
                        if (flow.error) {
                            const td = cell(tr, flow.error);
                            td.className = 'fail';
                            td.colSpan = 4;
                        } else {
                            const td = document.createElement('td');
                            const link = document.createElement('a');
                            link.href = flow.route;
                            link.textContent = flow.route;
                            td.appendChild(link);
                            tr.appendChild(td);
                            cell(tr, flow.title || '');
                            cell(tr, String(flow.components));
                            cell(tr, (flow.blocks || []).join(', '));
                        }
                        tbody.appendChild(tr);
                    });
                });
        }

        function loadBuilds() {
            fetch('/api/builds?limit=10')
                .then(response => response.json())
                .then(builds => {
                    const tbody = document.getElementById('builds');
                    if (builds.length === 0) {
                        emptyRow(tbody, 5, 'No builds recorded yet. Save a watched file to trigger one.');
                        return;
                    }
                    tbody.replaceChildren();
                    builds.forEach(build => {
                        const tr = document.createElement('tr');
                        cell(tr, new Date(build.created_at).toLocaleTimeString());
                        cell(tr, build.scope);
                        cell(tr, build.environment);
                        const result = cell(tr, build.success ? 'ok' : 'failed');
                        result.className = build.success ? 'ok' : 'fail';
                        cell(tr, build.duration_ms + ' ms');
                        tbody.appendChild(tr);
                    });
                });
        }

        function refresh() {
            loadHealth();
            loadFlows();
            loadBuilds();
        }

        connect();
        refresh();
    </script>
</body>
</html>`

// handleRoot serves the project's own root page when one resolves and
// the dashboard landing when none does, so a fresh project still gets a
// useful front door.
func (s *DevServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handlePage(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, err := s.resolver.Resolve("/")
	if err != nil {
		var parseErr *flow.ParseError
		if errors.As(err, &parseErr) && parseErr.Kind == flow.KindNotFound {
			s.handleDashboard(w, r)
			return
		}
		s.renderError(w, r, err)
		return
	}

	page, err := s.renderer.RenderPage(r.Context(), doc, "/")
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.writeHTML(w, r, page)
}

func (s *DevServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, dashboardHTML)
}

const adminHTML = `<!DOCTYPE html>
<html>
<head>
    <title>FlashFlow Admin</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
        header { background: #1f2430; color: #fff; padding: 14px 24px; }
        header h1 { margin: 0; font-size: 18px; }
        main { max-width: 900px; margin: 24px auto; padding: 0 24px; }
        section { background: #fff; border: 1px solid #e3e6eb; border-radius: 8px; padding: 18px 20px; margin-bottom: 20px; }
        section h2 { margin: 0 0 12px; font-size: 15px; }
        dl { display: grid; grid-template-columns: 160px auto; gap: 6px 16px; font-size: 14px; margin: 0; }
        dt { color: #6a7281; }
        dd { margin: 0; font-family: ui-monospace, monospace; font-size: 13px; }
        ul { margin: 0; padding-left: 20px; font-size: 14px; }
        li { margin: 4px 0; }
        a { color: #2563b0; }
    </style>
</head>
<body>
    <header><h1>FlashFlow Admin &middot; %s</h1></header>
    <main>
        <section>
            <h2>Project</h2>
            <dl>
                <dt>Root</dt><dd>%s</dd>
                <dt>Flows</dt><dd>%s</dd>
                <dt>Build output</dt><dd>%s</dd>
                <dt>Assets</dt><dd>%s</dd>
            </dl>
        </section>
        <section>
            <h2>Surfaces</h2>
            <ul>
                <li><a href="/dashboard">Dashboard</a> build and flow overview</li>
                <li><a href="/api/docs">API documentation</a></li>
                <li><a href="/api/tester">API tester</a></li>
                <li><a href="/preview/android">Android preview</a>, <a href="/preview/ios">iOS preview</a>, <a href="/preview/desktop">desktop preview</a></li>
                <li><a href="/backend">Backend status</a></li>
                <li><a href="/flows/">Raw flow files</a>, <a href="/dist/">build output</a>, <a href="/assets/">assets</a></li>
            </ul>
        </section>
    </main>
</body>
</html>`

func (s *DevServer) handleAdmin(w http.ResponseWriter, r *http.Request) {
	page := fmt.Sprintf(adminHTML,
		html.EscapeString(s.project.Name()),
		html.EscapeString(s.project.Root),
		html.EscapeString(s.project.FlowsDir),
		html.EscapeString(s.project.DistDir),
		html.EscapeString(s.project.AssetsDir))
	s.writeHTML(w, r, page)
}

const apiDocsHTML = `<!DOCTYPE html>
<html>
<head>
    <title>FlashFlow API</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
        header { background: #1f2430; color: #fff; padding: 14px 24px; }
        header h1 { margin: 0; font-size: 18px; }
        main { max-width: 900px; margin: 24px auto; padding: 0 24px; }
        table { width: 100%; border-collapse: collapse; font-size: 14px; background: #fff; border: 1px solid #e3e6eb; border-radius: 8px; }
        th, td { text-align: left; padding: 10px 14px; border-bottom: 1px solid #eef0f3; vertical-align: top; }
        th { color: #6a7281; font-size: 12px; text-transform: uppercase; }
        code { font-family: ui-monospace, monospace; font-size: 13px; background: #eef0f3; padding: 1px 5px; border-radius: 3px; }
        pre { background: #1f2430; color: #d8dee9; padding: 12px; border-radius: 6px; font-size: 13px; overflow-x: auto; }
    </style>
</head>
<body>
    <header><h1>FlashFlow API</h1></header>
    <main>
        <table>
            <tr><th>Endpoint</th><th>Description</th></tr>
            <tr>
                <td><code>GET /api/health</code></td>
                <td>Orchestrator health. Returns status, timestamp, project and version.</td>
            </tr>
            <tr>
                <td><code>GET /api/flows</code></td>
                <td>Every flow file with its route, title, component count and extra blocks. Files that fail to parse report the error instead.</td>
            </tr>
            <tr>
                <td><code>GET /api/builds?limit=N</code></td>
                <td>Recent build results, newest first. Defaults to 20 entries.</td>
            </tr>
            <tr>
                <td><code>POST /api/render/component</code></td>
                <td>Renders a single component definition to an HTML fragment. Body: <code>{"type": "button", "attrs": {"text": "Go"}}</code></td>
            </tr>
            <tr>
                <td><code>POST /__reload</code></td>
                <td>Pushes a reload signal to every connected browser. The build loop calls this after each build.</td>
            </tr>
            <tr>
                <td><code>GET /ws</code></td>
                <td>Reload socket. Sends <code>{"type": "reload"}</code> whenever the project should refresh.</td>
            </tr>
        </table>
        <pre>curl -s localhost:8000/api/health
curl -s localhost:8000/api/flows
curl -s -X POST localhost:8000/api/render/component \
    -H 'Content-Type: application/json' \
    -d '{"type": "header", "attrs": {"text": "Hello"}}'</pre>
    </main>
</body>
</html>`

func (s *DevServer) handleAPIDocs(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, apiDocsHTML)
}

const apiTesterHTML = `<!DOCTYPE html>
<html>
<head>
    <title>FlashFlow API Tester</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
        header { background: #1f2430; color: #fff; padding: 14px 24px; }
        header h1 { margin: 0; font-size: 18px; }
        main { max-width: 900px; margin: 24px auto; padding: 0 24px; }
        .panel { background: #fff; border: 1px solid #e3e6eb; border-radius: 8px; padding: 18px 20px; margin-bottom: 20px; }
        label { display: block; font-size: 13px; color: #6a7281; margin-bottom: 4px; }
        select, textarea { width: 100%; box-sizing: border-box; font-family: ui-monospace, monospace; font-size: 13px; padding: 8px; border: 1px solid #cfd5dd; border-radius: 6px; margin-bottom: 12px; }
        textarea { min-height: 90px; }
        button { background: #2563b0; color: #fff; border: 0; border-radius: 6px; padding: 8px 18px; font-size: 14px; cursor: pointer; }
        pre { background: #1f2430; color: #d8dee9; padding: 12px; border-radius: 6px; font-size: 13px; min-height: 60px; white-space: pre-wrap; }
    </style>
</head>
<body>
    <header><h1>FlashFlow API Tester</h1></header>
    <main>
        <div class="panel">
            <label for="endpoint">Endpoint</label>
            <select id="endpoint">
                <option value="GET /api/health">GET /api/health</option>
                <option value="GET /api/flows">GET /api/flows</option>
                <option value="GET /api/builds?limit=10">GET /api/builds?limit=10</option>
                <option value="POST /api/render/component">POST /api/render/component</option>
                <option value="POST /__reload">POST /__reload</option>
            </select>
            <label for="body">Request body (POST only)</label>
            <textarea id="body">{"type": "button", "attrs": {"text": "Click me"}}</textarea>
            <button id="send">Send</button>
        </div>
        <div class="panel">
            <label>Response</label>
            <pre id="output">Pick an endpoint and hit Send.</pre>
        </div>
    </main>

    <script>
        document.getElementById('send').addEventListener('click', function() {
            const choice = document.getElementById('endpoint').value.split(' ');
            const method = choice[0];
            const path = choice[1];
            const output = document.getElementById('output');

            const options = { method: method };
            if (method === 'POST' && path.indexOf('/api/') === 0) {
                options.headers = { 'Content-Type': 'application/json' };
                options.body = document.getElementById('body').value;
            }

            output.textContent = 'Sending ' + method + ' ' + path + ' ...';
            fetch(path, options)
                .then(response => {
                    const contentType = response.headers.get('Content-Type') || '';
                    const status = response.status + ' ' + response.statusText;
                    return response.text().then(text => {
                        if (contentType.indexOf('application/json') === 0) {
                            try {
                                text = JSON.stringify(JSON.parse(text), null, 2);
                            } catch (ignored) {}
                        }
                        output.textContent = status + '\n\n' + text;
                    });
                })
                .catch(error => {
                    output.textContent = 'Request failed: ' + error;
                });
        });
    </script>
</body>
</html>`

func (s *DevServer) handleAPITester(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, apiTesterHTML)
}

// previewDevices maps a preview frame name to its viewport size.
var previewDevices = map[string][2]int{
	"android": {360, 740},
	"ios":     {390, 844},
	"desktop": {1280, 800},
}

const previewHTML = `<!DOCTYPE html>
<html>
<head>
    <title>FlashFlow Preview &middot; %s</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; background: #2a3142; color: #c7d0de; }
        header { padding: 14px 24px; display: flex; align-items: center; gap: 18px; }
        header h1 { margin: 0; font-size: 16px; color: #fff; }
        header a { color: #8fd3ff; text-decoration: none; font-size: 14px; }
        header a.active { color: #fff; font-weight: 600; }
        .stage { display: flex; justify-content: center; padding: 24px; }
        .frame {
            width: %dpx;
            height: %dpx;
            background: #fff;
            border: 10px solid #11141c;
            border-radius: 24px;
            overflow: hidden;
        }
        iframe { width: %dpx; height: %dpx; border: 0; }
    </style>
</head>
<body>
    <header>
        <h1>Preview</h1>
        <a href="/preview/android"%s>Android</a>
        <a href="/preview/ios"%s>iOS</a>
        <a href="/preview/desktop"%s>Desktop</a>
        <a href="/dashboard">Back to dashboard</a>
    </header>
    <div class="stage">
        <div class="frame"><iframe src="%s"></iframe></div>
    </div>
</body>
</html>`

func (s *DevServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	device := strings.TrimPrefix(r.URL.Path, "/preview/")
	size, ok := previewDevices[device]
	if !ok {
		names := make([]string, 0, len(previewDevices))
		for name := range previewDevices {
			names = append(names, name)
		}
		sort.Strings(names)
		http.Error(w, "unknown device, expected one of: "+strings.Join(names, ", "), http.StatusNotFound)
		return
	}

	// The framed page defaults to the app flow; ?page=/route previews
	// any other route. Absolute URLs are rejected so the frame cannot
	// be pointed off the dev server.
	page := r.URL.Query().Get("page")
	if page == "" || !strings.HasPrefix(page, "/") || strings.HasPrefix(page, "//") {
		page = "/app"
	}

	active := func(name string) string {
		if name == device {
			return ` class="active"`
		}
		return ""
	}

	out := fmt.Sprintf(previewHTML,
		html.EscapeString(device),
		size[0], size[1], size[0], size[1],
		active("android"), active("ios"), active("desktop"),
		html.EscapeString(page))
	s.writeHTML(w, r, out)
}

const backendHTML = `<!DOCTYPE html>
<html>
<head>
    <title>FlashFlow Backend</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
        header { background: #1f2430; color: #fff; padding: 14px 24px; }
        header h1 { margin: 0; font-size: 18px; }
        main { max-width: 700px; margin: 24px auto; padding: 0 24px; }
        section { background: #fff; border: 1px solid #e3e6eb; border-radius: 8px; padding: 18px 20px; margin-bottom: 20px; }
        section h2 { margin: 0 0 12px; font-size: 15px; }
        dl { display: grid; grid-template-columns: 140px auto; gap: 6px 16px; font-size: 14px; margin: 0; }
        dt { color: #6a7281; }
        dd { margin: 0; }
        .ok { color: #2e9e5b; font-weight: 600; }
        .off { color: #c74343; font-weight: 600; }
        a { color: #2563b0; }
    </style>
</head>
<body>
    <header><h1>Backend &middot; %s</h1></header>
    <main>
        <section>
            <h2>Rendering engine</h2>
            <dl>
                <dt>Status</dt><dd>%s</dd>
                <dt>Address</dt><dd><a href="http://%s">http://%s</a></dd>
            </dl>
        </section>
        <section>
            <h2>Build pipeline</h2>
            <dl>
                <dt>Status</dt><dd>%s</dd>
                <dt>History</dt><dd><a href="/api/builds">/api/builds</a></dd>
            </dl>
        </section>
    </main>
</body>
</html>`

func (s *DevServer) handleBackend(w http.ResponseWriter, r *http.Request) {
	engineState := `<span class="off">not running</span>`
	if s.engine != nil && s.engine.Running() {
		engineState = fmt.Sprintf(`<span class="ok">running</span> pid %d, up %s`,
			s.engine.PID(), s.engine.Uptime().Round(time.Second))
	}

	buildState := `<span class="ok">idle</span>`
	if s.builds != nil && s.builds.Busy() {
		buildState = `<span class="ok">building</span>`
	}

	engineAddr := fmt.Sprintf("%s:%d", s.cfg.Engine.Host, s.cfg.Engine.Port)
	out := fmt.Sprintf(backendHTML,
		html.EscapeString(s.project.Name()),
		engineState,
		html.EscapeString(engineAddr), html.EscapeString(engineAddr),
		buildState)
	s.writeHTML(w, r, out)
}

// healthResponse is the wire shape of /api/health.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Project   string `json:"project"`
	Version   string `json:"version"`
}

func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Project:   s.project.Name(),
		Version:   version.Version,
	})
}

// flowSummary is one entry of /api/flows.
type flowSummary struct {
	File       string   `json:"file"`
	Route      string   `json:"route,omitempty"`
	Title      string   `json:"title,omitempty"`
	Components int      `json:"components"`
	Blocks     []string `json:"blocks,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func (s *DevServer) handleFlows(w http.ResponseWriter, r *http.Request) {
	files, err := s.resolver.List()
	if err != nil {
		http.Error(w, "listing flows: "+err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]flowSummary, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(s.resolver.Dir(), file)
		if err != nil {
			rel = filepath.Base(file)
		}
		rel = filepath.ToSlash(rel)

		summary := flowSummary{File: rel}
		doc, err := s.cache.Load(file)
		if err != nil {
			summary.Error = err.Error()
			summaries = append(summaries, summary)
			continue
		}

		summary.Route = "/" + strings.TrimSuffix(rel, ".flow")
		if doc.Page != nil {
			if doc.Page.Path != "" {
				summary.Route = doc.Page.Route()
			}
			summary.Title = doc.Page.Title
			summary.Components = len(doc.Page.Components)
		}
		summary.Blocks = doc.BlockNames()
		summaries = append(summaries, summary)
	}

	s.writeJSON(w, r, summaries)
}

func (s *DevServer) handleBuilds(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	if s.history == nil {
		s.writeJSON(w, r, []history.Entry{})
		return
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "reading build history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, r, entries)
}

// renderRequest is the body of POST /api/render/component.
type renderRequest struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs"`
}

func (s *DevServer) handleRenderComponent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req renderRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		http.Error(w, "component type is required", http.StatusBadRequest)
		return
	}

	fragment, err := s.renderer.RenderComponent(r.Context(), flow.Component{
		Type:  req.Type,
		Attrs: req.Attrs,
	})
	if err != nil {
		http.Error(w, "rendering component: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeHTML(w, r, fragment)
}

// handlePage is the catch-all: any path not claimed by a dashboard
// surface, API route, or static mount is resolved against the flow
// files and rendered directly.
func (s *DevServer) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Browsers ask for this on every page; it must not fall through to
	// the app flow.
	if r.URL.Path == "/favicon.ico" {
		http.NotFound(w, r)
		return
	}

	doc, err := s.resolver.Resolve(r.URL.Path)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	page, err := s.renderer.RenderPage(r.Context(), doc, r.URL.Path)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.writeHTML(w, r, page)
}

// renderError serves the diagnostic page for a failed resolution or
// render. Missing routes get 404, everything else 500; both carry the
// reload script so the browser recovers on its own once the flow is
// fixed.
func (s *DevServer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var parseErr *flow.ParseError
	if errors.As(err, &parseErr) && parseErr.Kind == flow.KindNotFound {
		status = http.StatusNotFound
	}

	s.logger.Debug(r.Context(), "page render failed",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error())

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(s.renderer.RenderError(r.URL.Path, err))); err != nil {
		s.logger.Warn(r.Context(), err, "writing error page", "path", r.URL.Path)
	}
}

func (s *DevServer) writeHTML(w http.ResponseWriter, r *http.Request, page string) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(page)); err != nil {
		s.logger.Warn(r.Context(), err, "writing response", "path", r.URL.Path)
	}
}

func (s *DevServer) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "encoding response", "path", r.URL.Path)
	}
}
