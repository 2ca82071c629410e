// Package renderer turns parsed flow documents into HTML pages without a
// build step. Components are composed with the templ runtime and injected
// into an html/template page shell, so a saved .flow file is visible on the
// next request even while the real build pipeline is still running.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/boifagusy/flashflow-sub000/internal/flow"
)

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}} - {{.Project}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0; background: #f8f9fa; color: #212529; }
        .ff-page { max-width: 860px; margin: 0 auto; padding: 32px 24px 72px; }
        .ff-header h1 { font-size: 2em; margin: 0 0 16px; }
        .ff-text { line-height: 1.6; margin: 12px 0; }
        .ff-button { background: #007acc; color: white; border: none; border-radius: 6px; padding: 10px 20px; font-size: 1em; cursor: pointer; }
        .ff-button:hover { background: #005fa3; }
        .ff-card { background: white; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,0.1); padding: 20px; margin: 16px 0; }
        .ff-card h2 { margin-top: 0; font-size: 1.2em; }
        .ff-field { display: block; margin: 12px 0; font-weight: 500; }
        .ff-field input { display: block; width: 100%; margin-top: 6px; padding: 8px 10px; border: 1px solid #ced4da; border-radius: 6px; font-size: 1em; box-sizing: border-box; }
        .ff-image { max-width: 100%; border-radius: 6px; }
        .ff-link { color: #007acc; }
        .ff-list { padding-left: 24px; line-height: 1.8; }
        .ff-empty { color: #6c757d; font-style: italic; padding: 24px 0; }
        .ff-unknown { background: #fff3cd; border: 1px dashed #856404; color: #856404; border-radius: 6px; padding: 12px 16px; margin: 12px 0; font-family: monospace; }
        .ff-meta { position: fixed; bottom: 0; left: 0; right: 0; background: #212529; color: #adb5bd; font-size: 12px; font-family: monospace; padding: 6px 16px; display: flex; gap: 24px; }
    </style>
</head>
<body>
    <main class="ff-page">
{{.Body}}    </main>
    <footer class="ff-meta">
        <span>{{.Project}}</span>
        <span>route {{.Route}}</span>
        <span>{{.File}}</span>
    </footer>
    <script>
        (function () {
            const ws = new WebSocket('ws://' + window.location.host + '/ws');
            ws.onmessage = function (event) {
                const message = JSON.parse(event.data);
                if (message.type === 'reload') {
                    window.location.reload();
                }
            };
        })();
    </script>
</body>
</html>
`

const errorShell = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>%s - %s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0; background: #f8f9fa; color: #212529; }
        .ff-error { max-width: 860px; margin: 48px auto; padding: 0 24px; }
        .ff-error h1 { color: #dc3545; }
        .ff-error-route { font-family: monospace; color: #6c757d; }
        .ff-error-detail { background: #212529; color: #f8d7da; border-radius: 8px; padding: 16px 20px; overflow-x: auto; white-space: pre-wrap; }
    </style>
</head>
<body>
    <div class="ff-error">
        <h1>%s</h1>
        <p class="ff-error-route">%s</p>
        <pre class="ff-error-detail">%s</pre>
        <p>This page reloads automatically once the flow is fixed.</p>
    </div>
    <script>
        (function () {
            const ws = new WebSocket('ws://' + window.location.host + '/ws');
            ws.onmessage = function (event) {
                const message = JSON.parse(event.data);
                if (message.type === 'reload') {
                    window.location.reload();
                }
            };
        })();
    </script>
</body>
</html>
`

var pageTemplate = template.Must(template.New("page").Parse(pageShell))

type pageData struct {
	Title   string
	Project string
	Route   string
	File    string
	Body    template.HTML
}

// Renderer renders flow documents for a single project.
type Renderer struct {
	project string
}

// New returns a renderer labelling its output with the project name.
func New(project string) *Renderer {
	if project == "" {
		project = "flashflow"
	}
	return &Renderer{project: project}
}

// RenderPage renders a full HTML page for the document as resolved for
// route. Rendering the same document twice yields identical output.
func (r *Renderer) RenderPage(ctx context.Context, doc *flow.Document, route string) (string, error) {
	var parts []templ.Component
	if doc.Page == nil || len(doc.Page.Components) == 0 {
		parts = append(parts, emptyNotice(doc))
	} else {
		for _, c := range doc.Page.Components {
			parts = append(parts, componentFor(c))
		}
	}

	body, err := templ.ToGoHTML(ctx, templ.Join(parts...))
	if err != nil {
		return "", fmt.Errorf("rendering components for %s: %w", doc.Path, err)
	}

	if route == "" {
		route = doc.Page.Route()
	}
	data := pageData{
		Title:   r.pageTitle(doc),
		Project: r.project,
		Route:   route,
		File:    filepath.Base(doc.Path),
		Body:    body,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering page shell for %s: %w", doc.Path, err)
	}
	return buf.String(), nil
}

// RenderComponent renders a single component as an HTML fragment with no
// page shell around it.
func (r *Renderer) RenderComponent(ctx context.Context, c flow.Component) (string, error) {
	var buf bytes.Buffer
	if err := componentFor(c).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("rendering %s component: %w", c.Type, err)
	}
	return buf.String(), nil
}

// RenderError builds the diagnostic page shown when a route cannot be
// rendered. It never fails; a broken flow must not take the dev loop down.
func (r *Renderer) RenderError(route string, err error) string {
	title := "Flow error"
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}

	var parseErr *flow.ParseError
	if errors.As(err, &parseErr) && parseErr.Kind == flow.KindNotFound {
		title = "No flow for this route"
		detail = "No flow file matches this route and the project has no app.flow fallback."
	}

	return fmt.Sprintf(errorShell,
		templ.EscapeString(title),
		templ.EscapeString(r.project),
		templ.EscapeString(title),
		templ.EscapeString(route),
		templ.EscapeString(detail),
	)
}

// pageTitle returns the declared page title, falling back to the flow file
// stem in title case: user_profile.flow becomes "User Profile".
func (r *Renderer) pageTitle(doc *flow.Document) string {
	if doc.Page != nil && doc.Page.Title != "" {
		return doc.Page.Title
	}
	stem := flow.Stem(doc.Path)
	if stem == "" {
		return r.project
	}
	words := strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return cases.Title(language.English).String(words)
}

func emptyNotice(doc *flow.Document) templ.Component {
	message := "This page has no components yet."
	if doc.Page == nil {
		message = "This flow defines no page block."
	}
	return templ.Raw(fmt.Sprintf(`<p class="ff-empty">%s</p>`+"\n", templ.EscapeString(message)))
}
