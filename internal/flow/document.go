// Package flow parses .flow definition files into documents the renderer
// and API handlers consume. A .flow file is a YAML mapping whose page block
// describes the UI; other top-level blocks (api, database, logic) are kept
// as raw nodes so backend-only definitions still parse.
package flow

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrorKind classifies parse failures so callers can distinguish a missing
// file from a broken one.
type ErrorKind int

const (
	// KindNotFound means the flow file does not exist or is unreadable.
	KindNotFound ErrorKind = iota
	// KindSyntax means the file exists but is not a valid flow document.
	KindSyntax
)

// ParseError reports why a flow file failed to parse.
type ParseError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Kind == KindNotFound {
		return fmt.Sprintf("flow %s: not found", e.Path)
	}
	return fmt.Sprintf("flow %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Component is a single entry in a page's component list. The type key
// selects the renderer; every other key is kept as an attribute.
type Component struct {
	Type  string
	Attrs map[string]any
}

// UnmarshalYAML splits the type key out of the component mapping and
// collects the remaining keys as attributes.
func (c *Component) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Attrs = make(map[string]any, len(raw))
	for key, val := range raw {
		if key == "type" {
			if s, ok := val.(string); ok {
				c.Type = s
			}
			continue
		}
		c.Attrs[key] = val
	}
	return nil
}

// Attr returns the named attribute as a string. Non-string scalars are
// formatted with fmt.Sprint; missing attributes return "".
func (c Component) Attr(key string) string {
	val, ok := c.Attrs[key]
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// AttrOr returns the named attribute, or fallback when it is absent.
func (c Component) AttrOr(key, fallback string) string {
	if s := c.Attr(key); s != "" {
		return s
	}
	return fallback
}

// List returns the named attribute as a string slice. Scalar and missing
// attributes return nil.
func (c Component) List(key string) []string {
	val, ok := c.Attrs[key]
	if !ok {
		return nil
	}
	items, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// Page is the UI block of a flow document.
type Page struct {
	Title      string      `yaml:"title"`
	Path       string      `yaml:"path"`
	Components []Component `yaml:"components"`
}

// Route returns the request path this page claims. An empty or unset path
// declares the root route.
func (p *Page) Route() string {
	if p == nil || p.Path == "" {
		return "/"
	}
	return NormalizePath(p.Path)
}

// Document is one parsed .flow file.
type Document struct {
	// Path is the file the document was parsed from.
	Path string
	// Page is nil for backend-only flows that declare no page block.
	Page *Page
	// Blocks holds the non-page top-level blocks keyed by block name.
	Blocks map[string]yaml.Node
}

// BlockNames returns the names of the non-page blocks in sorted order.
func (d *Document) BlockNames() []string {
	if len(d.Blocks) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.Blocks))
	for name := range d.Blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse reads and parses the flow file at path.
func Parse(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Kind: KindNotFound, Err: err}
	}
	return ParseBytes(path, data)
}

// ParseBytes parses flow source held in memory. The path is recorded on the
// document and in any error, but the file system is not touched.
func ParseBytes(path string, data []byte) (*Document, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Kind: KindSyntax, Err: err}
	}
	doc := &Document{Path: path, Blocks: make(map[string]yaml.Node)}
	for key, node := range raw {
		if key == "page" {
			page := &Page{}
			if err := node.Decode(page); err != nil {
				return nil, &ParseError{Path: path, Kind: KindSyntax, Err: err}
			}
			doc.Page = page
			continue
		}
		doc.Blocks[key] = node
	}
	return doc, nil
}

// Stem returns the file name of a flow file without directory or extension,
// so flows/home.flow becomes home.
func Stem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizePath cleans a request path into the canonical form routes are
// matched against: leading slash, no trailing slash except for the root.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
