package arbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectGraph(t *testing.T) {
	e := newTestEngine(t)
	loadTwoProjects(t, e)

	g, err := e.ProjectGraph(context.Background())
	require.NoError(t, err)

	require.Len(t, g.Projects, 2)
	assert.Equal(t, "p1", g.Projects[0].ID)
	assert.Equal(t, 1, g.Projects[0].DocumentCount)
	assert.Equal(t, 2, g.Projects[0].SymbolCount)
	assert.Equal(t, "p2", g.Projects[1].ID)
	assert.Equal(t, 1, g.Projects[1].SymbolCount)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, DependencyEdge{From: "p2", To: "p1"}, g.Edges[0])
}

func TestProjectGraphMarksUnresolvedDeps(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Load([]ProjectSpec{
		{ID: "solo", Deps: []string{"missing"}, Documents: []DocumentSpec{
			{ID: "solo/a.go", Path: "a.go", Text: "package solo\n\nfunc A() {}\n"},
		}},
	}))

	g, err := e.ProjectGraph(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.True(t, g.Edges[0].Unresolved)
	assert.Equal(t, "missing", g.Edges[0].To)
}
