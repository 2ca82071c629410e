package flow

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AppFlow is the file every unmatched page request falls back to, so a
// project with a single app.flow behaves like a single-page app.
const AppFlow = "app.flow"

// Resolver maps request paths onto the flow files of a project. It scans
// the flows directory on every resolution so newly created or deleted
// files take effect without restart; parse results come from the cache.
type Resolver struct {
	dir   string
	cache *Cache
}

// NewResolver returns a resolver over the flow files under dir.
func NewResolver(dir string, cache *Cache) *Resolver {
	return &Resolver{dir: dir, cache: cache}
}

// Dir returns the flows directory the resolver scans.
func (r *Resolver) Dir() string {
	return r.dir
}

// List returns the flow files under the resolver's directory in sorted
// order. A missing directory is treated as an empty project.
func (r *Resolver) List() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".flow") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Resolve maps a request path to a parsed flow document. Matching order:
// a page that declares the path, then a file whose stem spells the path,
// then app.flow. The returned error is a *ParseError with KindNotFound
// when nothing matches, or the parse failure of the matched file.
func (r *Resolver) Resolve(requestPath string) (*Document, error) {
	norm := NormalizePath(requestPath)

	files, err := r.List()
	if err != nil {
		return nil, &ParseError{Path: norm, Kind: KindNotFound, Err: err}
	}
	for _, file := range files {
		doc, err := r.cache.Load(file)
		if err != nil {
			// A broken file must not shadow routes declared by the
			// others. Its own route still reaches it via the stem
			// match below, which surfaces the parse failure.
			continue
		}
		if doc.Page != nil && doc.Page.Route() == norm {
			return doc, nil
		}
	}

	if candidate, ok := r.fileFor(norm); ok {
		return r.cache.Load(candidate)
	}

	fallback := filepath.Join(r.dir, AppFlow)
	if _, err := os.Stat(fallback); err == nil {
		return r.cache.Load(fallback)
	}

	return nil, &ParseError{Path: norm, Kind: KindNotFound, Err: fs.ErrNotExist}
}

// fileFor turns a normalized request path into the flow file it names,
// rejecting anything that would escape the flows directory.
func (r *Resolver) fileFor(norm string) (string, bool) {
	stem := strings.TrimPrefix(norm, "/")
	if stem == "" || strings.Contains(stem, "..") {
		return "", false
	}
	candidate := filepath.Join(r.dir, filepath.FromSlash(stem)+".flow")
	if !strings.HasPrefix(candidate, r.dir+string(filepath.Separator)) {
		return "", false
	}
	if info, err := os.Stat(candidate); err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}
