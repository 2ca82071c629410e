// Package project resolves and validates a flashflow project root. A
// directory is a project only if it carries a parseable flashflow.json
// manifest; everything else in the orchestrator takes its paths from the
// Descriptor built here.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrManifestMissing reports a directory without a flashflow.json manifest.
// It is the startup-fatal condition: the orchestrator refuses to run at all
// without a valid project.
var ErrManifestMissing = errors.New("flashflow.json not found")

// Manifest is the parsed flashflow.json project manifest.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Author       string            `json:"author"`
	Frameworks   map[string]string `json:"frameworks"`
	Dependencies []string          `json:"dependencies"`
}

// Descriptor represents a validated project root. Created once at process
// start and read-only thereafter.
type Descriptor struct {
	Root         string
	ManifestPath string
	SrcDir       string
	FlowsDir     string
	DistDir      string
	AssetsDir    string
	Manifest     Manifest
}

// Load resolves root into a Descriptor, failing if the manifest is missing
// or malformed. The flows directory prefers the conventional src/flows
// layout and falls back to a top-level flows directory when src/flows is
// absent.
func Load(root string) (*Descriptor, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	d := &Descriptor{
		Root:         absRoot,
		ManifestPath: filepath.Join(absRoot, "flashflow.json"),
		SrcDir:       filepath.Join(absRoot, "src"),
		DistDir:      filepath.Join(absRoot, "dist"),
	}
	d.FlowsDir = filepath.Join(d.SrcDir, "flows")
	d.AssetsDir = filepath.Join(d.SrcDir, "assets")

	if _, err := os.Stat(d.ManifestPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s", ErrManifestMissing, absRoot)
	}

	data, err := os.ReadFile(d.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("read flashflow.json: %w", err)
	}

	if err := json.Unmarshal(data, &d.Manifest); err != nil {
		return nil, fmt.Errorf("parse flashflow.json: %w", err)
	}

	if _, err := os.Stat(d.FlowsDir); os.IsNotExist(err) {
		fallback := filepath.Join(absRoot, "flows")
		if info, err := os.Stat(fallback); err == nil && info.IsDir() {
			d.FlowsDir = fallback
		}
	}

	return d, nil
}

// IsProject reports whether dir carries a flashflow.json manifest without
// parsing it.
func IsProject(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "flashflow.json"))
	return err == nil
}

// WatchRoots returns the directories the watcher should observe: the source
// tree when present, otherwise the flows directory alone. The generated
// output directory is deliberately never part of the result so builds
// cannot re-trigger themselves.
func (d *Descriptor) WatchRoots() []string {
	if info, err := os.Stat(d.SrcDir); err == nil && info.IsDir() {
		return []string{d.SrcDir}
	}
	if info, err := os.Stat(d.FlowsDir); err == nil && info.IsDir() {
		return []string{d.FlowsDir}
	}
	return nil
}

// Name returns the project name, falling back to the root directory base
// name when the manifest leaves it empty.
func (d *Descriptor) Name() string {
	if d.Manifest.Name != "" {
		return d.Manifest.Name
	}
	return filepath.Base(d.Root)
}
