package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("xml"))
}

func TestSkipDir(t *testing.T) {
	t.Parallel()
	assert.True(t, skipDir(".git"))
	assert.True(t, skipDir("vendor"))
	assert.True(t, skipDir("node_modules"))
	assert.False(t, skipDir("internal"))
	assert.False(t, skipDir("."))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverDocumentsSkipsHiddenAndVendor(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "sub", "util.go"), "package sub\n")
	writeFile(t, filepath.Join(root, ".hidden", "x.go"), "package x\n")
	writeFile(t, filepath.Join(root, "vendor", "dep.go"), "package dep\n")
	writeFile(t, filepath.Join(root, ".env"), "SECRET=1\n")

	docs, err := discoverDocuments("app", root)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "app/main.go", docs[0].ID)
	assert.Equal(t, "main.go", docs[0].Path)
	assert.Equal(t, "package main\n", docs[0].Text)
	assert.Equal(t, "app/sub/util.go", docs[1].ID)
}

func TestLoadWorkspaceFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "arbor.yml")
	writeFile(t, path, `
projects:
  - name: lib
    root: lib
  - name: app
    root: app
    deps: [lib]
config:
  workers: 2
`)

	wf, err := loadWorkspaceFile(path)
	require.NoError(t, err)
	require.Len(t, wf.Projects, 2)
	assert.Equal(t, []string{"lib"}, wf.Projects[1].Deps)
	assert.Equal(t, 2, wf.Config.Workers)
}

func TestLoadWorkspaceFileRejectsDuplicates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "arbor.yml")
	writeFile(t, path, `
projects:
  - name: lib
    root: a
  - name: lib
    root: b
`)

	_, err := loadWorkspaceFile(path)
	assert.Error(t, err)
}

func TestBuildSpecsResolvesRelativeRoots(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "a.go"), "package lib\n")

	wf := &WorkspaceFile{Projects: []ProjectEntry{{Name: "lib", Root: "lib"}}}
	specs, err := buildSpecs(wf, dir)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Len(t, specs[0].Documents, 1)
	assert.Equal(t, "lib/a.go", specs[0].Documents[0].ID)
}
