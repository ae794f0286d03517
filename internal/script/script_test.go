package script

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSourceEmit(t *testing.T) {
	r := NewRunner("")
	doc := Doc{ID: "d1", Path: "a.txt", Project: "p1", Text: "alpha beta alpha"}

	emissions, err := r.RunSource(context.Background(), `
if strings.contains(doc["text"], "beta") {
    emit("found beta", 6)
}
emit(doc["id"])
`, doc)
	require.NoError(t, err)
	require.Len(t, emissions, 2)
	assert.Equal(t, "found beta", emissions[0].Text)
	assert.Equal(t, 6, emissions[0].Offset)
	assert.Equal(t, "d1", emissions[1].Text)
	assert.Zero(t, emissions[1].Offset)
}

func TestRunSourceError(t *testing.T) {
	r := NewRunner("")
	_, err := r.RunSource(context.Background(), `undefined_function()`, Doc{ID: "d1"})
	assert.Error(t, err)
}

func TestRunScriptFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"checks/todo.risor": &fstest.MapFile{Data: []byte(`
if strings.contains(doc["text"], "TODO") {
    emit("todo marker")
}
`)},
	}
	r := NewRunner("", WithScriptFS(fsys))

	emissions, err := r.RunScript(context.Background(), "checks/todo.risor", Doc{ID: "d1", Text: "// TODO fix"})
	require.NoError(t, err)
	require.Len(t, emissions, 1)
	assert.Equal(t, "todo marker", emissions[0].Text)
}
