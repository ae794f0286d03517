package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor"
)

// buildFixtureWorkspace writes a two-project workspace to disk and points
// the --workspace flag at it.
func buildFixtureWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "shapes.go"), `package lib

type Circle struct {
	Radius float64
}
`)
	writeFile(t, filepath.Join(dir, "app", "main.go"), `package app

func Draw() {
	render()
}
`)
	writeFile(t, filepath.Join(dir, "arbor.yml"), `
projects:
  - name: lib
    root: lib
  - name: app
    root: app
    deps: [lib]
`)
	prev := flagWorkspace
	flagWorkspace = filepath.Join(dir, "arbor.yml")
	t.Cleanup(func() { flagWorkspace = prev })
	return dir
}

func TestOpenEngineLoadsWorkspaceFromDisk(t *testing.T) {
	buildFixtureWorkspace(t)

	engine, wf, err := openEngine()
	require.NoError(t, err)
	defer engine.Close()
	require.Len(t, wf.Projects, 2)

	ctx := context.Background()
	comp, err := engine.GetCompilation(ctx, "app")
	require.NoError(t, err)
	assert.Contains(t, comp.ByFQN, "app.Draw")

	matches, err := engine.ResolveSymbol(ctx, "lib.Circle", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "lib.Circle", matches[0].FQN)
}

func TestWorkspaceEditIsVisibleAfterReload(t *testing.T) {
	dir := buildFixtureWorkspace(t)

	engine, _, err := openEngine()
	require.NoError(t, err)
	defer engine.Close()
	ctx := context.Background()

	before, err := engine.GetCompilation(ctx, "lib")
	require.NoError(t, err)
	require.Contains(t, before.ByFQN, "lib.Circle")

	// Apply an on-disk edit the way the watch loop would.
	edited := "package lib\n\ntype Oval struct {\n\tRadius float64\n}\n"
	path := filepath.Join(dir, "lib", "shapes.go")
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))
	require.NoError(t, engine.UpdateDocumentText("lib/shapes.go", edited))

	after, err := engine.GetCompilation(ctx, "lib")
	require.NoError(t, err)
	assert.Contains(t, after.ByFQN, "lib.Oval")
	assert.NotContains(t, after.ByFQN, "lib.Circle")

	res, err := engine.RunQuery(ctx, arbor.Query{Kind: arbor.QuerySearch, Needle: "oval"}, arbor.Scope{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "lib/shapes.go", res.Results[0].DocumentID)
}
