package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "flashflow.json"), []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("valid project", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{
			"name": "demo-app",
			"version": "1.2.0",
			"description": "demo",
			"author": "dev",
			"frameworks": {"backend": "laravel", "frontend": "react"},
			"dependencies": ["auth", "storage"]
		}`)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "flows"), 0755))

		d, err := Load(dir)
		require.NoError(t, err)

		assert.Equal(t, "demo-app", d.Manifest.Name)
		assert.Equal(t, "1.2.0", d.Manifest.Version)
		assert.Equal(t, "laravel", d.Manifest.Frameworks["backend"])
		assert.Equal(t, filepath.Join(d.Root, "flashflow.json"), d.ManifestPath)
		assert.Equal(t, filepath.Join(d.Root, "src", "flows"), d.FlowsDir)
		assert.Equal(t, filepath.Join(d.Root, "dist"), d.DistDir)
		assert.Equal(t, "demo-app", d.Name())
	})

	t.Run("missing manifest", func(t *testing.T) {
		dir := t.TempDir()

		d, err := Load(dir)
		assert.Nil(t, d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrManifestMissing))
	})

	t.Run("malformed manifest", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{"name": "broken"`)

		d, err := Load(dir)
		assert.Nil(t, d)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrManifestMissing))
	})

	t.Run("flows dir fallback", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{"name": "flat"}`)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "flows"), 0755))

		d, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(d.Root, "flows"), d.FlowsDir)
	})

	t.Run("name falls back to directory", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{}`)

		d, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(d.Root), d.Name())
	})
}

func TestIsProject(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsProject(dir))

	writeManifest(t, dir, `{"name": "x"}`)
	assert.True(t, IsProject(dir))
}

func TestWatchRoots(t *testing.T) {
	t.Run("src tree present", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{"name": "x"}`)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "flows"), 0755))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0755))

		d, err := Load(dir)
		require.NoError(t, err)

		roots := d.WatchRoots()
		require.Len(t, roots, 1)
		assert.Equal(t, d.SrcDir, roots[0])
		assert.NotContains(t, roots, d.DistDir)
	})

	t.Run("flows fallback only", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{"name": "x"}`)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "flows"), 0755))

		d, err := Load(dir)
		require.NoError(t, err)

		roots := d.WatchRoots()
		require.Len(t, roots, 1)
		assert.Equal(t, d.FlowsDir, roots[0])
	})

	t.Run("no watchable directories", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, `{"name": "x"}`)

		d, err := Load(dir)
		require.NoError(t, err)
		assert.Empty(t, d.WatchRoots())
	})
}
