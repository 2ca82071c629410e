package renderer

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/boifagusy/flashflow-sub000/internal/flow"
)

// componentFor maps a flow component onto its templ renderer. Known kinds
// are header, text, button, card, input, image, link and list; anything
// else renders as a visible placeholder so typos show up in the page.
func componentFor(c flow.Component) templ.Component {
	switch c.Type {
	case "header":
		return header(c)
	case "text":
		return text(c)
	case "button":
		return button(c)
	case "card":
		return card(c)
	case "input":
		return input(c)
	case "image":
		return image(c)
	case "link":
		return link(c)
	case "list":
		return list(c)
	default:
		return unknown(c)
	}
}

func header(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<header class=\"ff-header\"><h1>%s</h1></header>\n",
			templ.EscapeString(c.AttrOr("text", c.Attr("title"))))
		return err
	})
}

func text(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p class=\"ff-text\">%s</p>\n",
			templ.EscapeString(c.AttrOr("text", c.Attr("content"))))
		return err
	})
}

func button(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		action := ""
		if a := c.Attr("action"); a != "" {
			action = fmt.Sprintf(" data-action=\"%s\"", templ.EscapeString(a))
		}
		_, err := fmt.Fprintf(w, "<button class=\"ff-button\"%s>%s</button>\n",
			action, templ.EscapeString(c.AttrOr("text", c.Attr("label"))))
		return err
	})
}

func card(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<div class=\"ff-card\">\n"); err != nil {
			return err
		}
		if title := c.Attr("title"); title != "" {
			if _, err := fmt.Fprintf(w, "  <h2>%s</h2>\n", templ.EscapeString(title)); err != nil {
				return err
			}
		}
		if content := c.AttrOr("content", c.Attr("text")); content != "" {
			if _, err := fmt.Fprintf(w, "  <p>%s</p>\n", templ.EscapeString(content)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</div>\n")
		return err
	})
}

func input(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<label class=\"ff-field\">"); err != nil {
			return err
		}
		if label := c.Attr("label"); label != "" {
			if _, err := io.WriteString(w, templ.EscapeString(label)); err != nil {
				return err
			}
		}
		attrs := fmt.Sprintf(" type=\"%s\"", templ.EscapeString(c.AttrOr("input_type", "text")))
		if name := c.Attr("name"); name != "" {
			attrs += fmt.Sprintf(" name=\"%s\"", templ.EscapeString(name))
		}
		if placeholder := c.Attr("placeholder"); placeholder != "" {
			attrs += fmt.Sprintf(" placeholder=\"%s\"", templ.EscapeString(placeholder))
		}
		_, err := fmt.Fprintf(w, "<input%s></label>\n", attrs)
		return err
	})
}

func image(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		src := string(templ.URL(c.Attr("src")))
		_, err := fmt.Fprintf(w, "<img class=\"ff-image\" src=\"%s\" alt=\"%s\">\n",
			templ.EscapeString(src), templ.EscapeString(c.Attr("alt")))
		return err
	})
}

func link(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		href := string(templ.URL(c.AttrOr("url", c.Attr("href"))))
		label := c.Attr("text")
		if label == "" {
			label = href
		}
		_, err := fmt.Fprintf(w, "<a class=\"ff-link\" href=\"%s\">%s</a>\n",
			templ.EscapeString(href), templ.EscapeString(label))
		return err
	})
}

func list(c flow.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<ul class=\"ff-list\">\n"); err != nil {
			return err
		}
		for _, item := range c.List("items") {
			if _, err := fmt.Fprintf(w, "  <li>%s</li>\n", templ.EscapeString(item)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>\n")
		return err
	})
}

// unknown keeps authoring mistakes visible in the page instead of dropping
// them silently.
func unknown(c flow.Component) templ.Component {
	kind := c.Type
	if kind == "" {
		kind = "(untyped)"
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"ff-unknown\">Unknown component: %s</div>\n",
			templ.EscapeString(kind))
		return err
	})
}
