package renderer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/boifagusy/flashflow-sub000/internal/flow"
)

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	node, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return node
}

func findByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "class" && attr.Val == class {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func TestRenderPage(t *testing.T) {
	src := `
page:
  title: "Home"
  path: "/"
  components:
    - type: header
      text: "Welcome to FlashFlow"
    - type: text
      text: "Build apps from flow files."
    - type: button
      text: "Get started"
      action: "start"
`
	doc, err := flow.ParseBytes("/project/src/flows/home.flow", []byte(src))
	require.NoError(t, err)

	r := New("demo")
	out, err := r.RenderPage(context.Background(), doc, "/")
	require.NoError(t, err)

	root := parseHTML(t, out)

	title := findByTag(root, "title")
	require.NotNil(t, title)
	assert.Equal(t, "Home - demo", textOf(title))

	h1 := findByTag(root, "h1")
	require.NotNil(t, h1)
	assert.Equal(t, "Welcome to FlashFlow", textOf(h1))

	button := findByTag(root, "button")
	require.NotNil(t, button)
	assert.Equal(t, "Get started", textOf(button))

	footer := findByClass(root, "ff-meta")
	require.NotNil(t, footer)
	assert.Contains(t, textOf(footer), "route /")
	assert.Contains(t, textOf(footer), "home.flow")

	assert.Contains(t, out, "new WebSocket", "page must subscribe to reload events")
	assert.Contains(t, out, "/ws")
}

func TestRenderPageEscapesUserContent(t *testing.T) {
	src := "page:\n  title: \"XSS\"\n  components:\n    - type: text\n      text: \"<script>alert('x')</script>\"\n"
	doc, err := flow.ParseBytes("evil.flow", []byte(src))
	require.NoError(t, err)

	r := New("demo")
	out, err := r.RenderPage(context.Background(), doc, "/")
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>alert")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderPageTitleFallback(t *testing.T) {
	doc, err := flow.ParseBytes("/project/src/flows/user_profile.flow", []byte("page:\n  components: []\n"))
	require.NoError(t, err)

	r := New("demo")
	out, err := r.RenderPage(context.Background(), doc, "/user_profile")
	require.NoError(t, err)

	title := findByTag(parseHTML(t, out), "title")
	require.NotNil(t, title)
	assert.Equal(t, "User Profile - demo", textOf(title))
}

func TestRenderPageEmptyStates(t *testing.T) {
	t.Run("page without components", func(t *testing.T) {
		doc, err := flow.ParseBytes("blank.flow", []byte("page:\n  title: Blank\n"))
		require.NoError(t, err)

		out, err := New("demo").RenderPage(context.Background(), doc, "/blank")
		require.NoError(t, err)

		notice := findByClass(parseHTML(t, out), "ff-empty")
		require.NotNil(t, notice)
		assert.Contains(t, textOf(notice), "no components")
	})

	t.Run("flow without page block", func(t *testing.T) {
		doc, err := flow.ParseBytes("jobs.flow", []byte("api:\n  endpoints: []\n"))
		require.NoError(t, err)

		out, err := New("demo").RenderPage(context.Background(), doc, "/jobs")
		require.NoError(t, err)

		notice := findByClass(parseHTML(t, out), "ff-empty")
		require.NotNil(t, notice)
		assert.Contains(t, textOf(notice), "no page block")
	})
}

func TestRenderPageIdempotent(t *testing.T) {
	src := `
page:
  title: "Stable"
  components:
    - type: card
      title: "A"
      content: "First"
    - type: list
      items: ["x", "y", "z"]
    - type: input
      label: "Email"
      name: "email"
      placeholder: "you@example.com"
`
	doc, err := flow.ParseBytes("stable.flow", []byte(src))
	require.NoError(t, err)

	r := New("demo")
	first, err := r.RenderPage(context.Background(), doc, "/stable")
	require.NoError(t, err)
	second, err := r.RenderPage(context.Background(), doc, "/stable")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderComponent(t *testing.T) {
	tests := []struct {
		name      string
		component flow.Component
		want      []string
	}{
		{
			name:      "header",
			component: flow.Component{Type: "header", Attrs: map[string]any{"text": "Hello"}},
			want:      []string{"<h1>Hello</h1>"},
		},
		{
			name:      "button with action",
			component: flow.Component{Type: "button", Attrs: map[string]any{"text": "Send", "action": "submit_form"}},
			want:      []string{`data-action="submit_form"`, ">Send</button>"},
		},
		{
			name:      "link",
			component: flow.Component{Type: "link", Attrs: map[string]any{"url": "https://example.com", "text": "Docs"}},
			want:      []string{`href="https://example.com"`, ">Docs</a>"},
		},
		{
			name:      "image blocks javascript urls",
			component: flow.Component{Type: "image", Attrs: map[string]any{"src": "javascript:alert(1)", "alt": "pic"}},
			want:      []string{"about:invalid"},
		},
		{
			name:      "list",
			component: flow.Component{Type: "list", Attrs: map[string]any{"items": []any{"One", "Two"}}},
			want:      []string{"<li>One</li>", "<li>Two</li>"},
		},
		{
			name:      "unknown kind stays visible",
			component: flow.Component{Type: "hero"},
			want:      []string{"Unknown component: hero"},
		},
	}

	r := New("demo")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.RenderComponent(context.Background(), tt.component)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			assert.NotContains(t, out, "<html", "fragments carry no page shell")
		})
	}
}

func TestRenderError(t *testing.T) {
	t.Run("parse failure", func(t *testing.T) {
		_, err := flow.ParseBytes("broken.flow", []byte("page: [unclosed\n"))
		require.Error(t, err)

		out := New("demo").RenderError("/broken", err)
		assert.Contains(t, out, "Flow error")
		assert.Contains(t, out, "/broken")
		assert.Contains(t, out, "broken.flow")
		assert.Contains(t, out, "new WebSocket", "error page must reload once the flow is fixed")
	})

	t.Run("route without flow", func(t *testing.T) {
		err := &flow.ParseError{Path: "/nowhere", Kind: flow.KindNotFound}
		out := New("demo").RenderError("/nowhere", err)
		assert.Contains(t, out, "No flow for this route")
		assert.Contains(t, out, "/nowhere")
	})
}
