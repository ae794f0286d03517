package arbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/meta"
)

type staticProvider struct {
	modules map[string][]meta.RawType
}

func (p *staticProvider) Modules(context.Context) ([]string, error) {
	names := make([]string, 0, len(p.modules))
	for name := range p.modules {
		names = append(names, name)
	}
	return names, nil
}

func (p *staticProvider) Read(_ context.Context, module string) ([]meta.RawType, error) {
	return p.modules[module], nil
}

func newResolveEngine(t *testing.T) *Engine {
	t.Helper()
	provider := &staticProvider{modules: map[string][]meta.RawType{
		"geometry": {
			{FQN: "geometry.Circle"},
			{FQN: "geometry.Vector"},
		},
		"text": {
			{FQN: "text.Builder"},
		},
	}}
	e := newTestEngine(t, WithMetadataProvider(provider))
	loadTwoProjects(t, e)
	return e
}

func TestResolveExactSourceWinsOutright(t *testing.T) {
	e := newResolveEngine(t)

	// core.Circle exists in source; geometry.Circle exists externally.
	matches, err := e.ResolveSymbol(context.Background(), "core.Circle", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, OriginSource, matches[0].Origin)
	assert.Equal(t, "core.Circle", matches[0].FQN)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, "p1", matches[0].ProjectID)
	assert.Positive(t, matches[0].Line)
}

func TestResolveExactRanksProjectOrderBeforePath(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Load([]ProjectSpec{
		{ID: "p1", Documents: []DocumentSpec{
			{ID: "p1/z.go", Path: "z.go", Text: "package n\n\nfunc Foo() {}\n"},
		}},
		{ID: "p2", Deps: []string{"p1"}, Documents: []DocumentSpec{
			{ID: "p2/a.go", Path: "a.go", Text: "package n\n\nfunc Foo() {}\n"},
		}},
	}))

	// p2's path sorts before p1's, but the dependency comes first.
	matches, err := e.ResolveSymbol(context.Background(), "n.Foo", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "p1", matches[0].ProjectID)
	assert.Equal(t, "z.go", matches[0].Path)
	assert.Equal(t, "p2", matches[1].ProjectID)
	assert.Equal(t, "a.go", matches[1].Path)
}

func TestResolveExactExternalBeforeFuzzy(t *testing.T) {
	e := newResolveEngine(t)

	matches, err := e.ResolveSymbol(context.Background(), "geometry.Vector", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, OriginExternal, matches[0].Origin)
	assert.Equal(t, "geometry", matches[0].Module)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestResolveFuzzyPrefersSourceAndIsDeterministic(t *testing.T) {
	e := newResolveEngine(t)
	ctx := context.Background()

	first, err := e.ResolveSymbol(ctx, "Circle", 10)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	// Trailing-segment agreement puts both Circle definitions on top; the
	// shorter source name outranks the external one.
	assert.Equal(t, "core.Circle", first[0].FQN)
	assert.Equal(t, OriginSource, first[0].Origin)

	var sawExternal bool
	for _, m := range first {
		assert.Less(t, m.Score, 1.0)
		if m.FQN == "geometry.Circle" {
			sawExternal = true
			assert.Equal(t, OriginExternal, m.Origin)
		}
	}
	assert.True(t, sawExternal)

	for range 5 {
		again, err := e.ResolveSymbol(ctx, "Circle", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveRelevanceFloorDropsNoise(t *testing.T) {
	e := newResolveEngine(t)

	matches, err := e.ResolveSymbol(context.Background(), "Zzyzx", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResolveMaxResultsCapsOutput(t *testing.T) {
	e := newResolveEngine(t)

	matches, err := e.ResolveSymbol(context.Background(), "Circle", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "core.Circle", matches[0].FQN)
}

func TestResolveUnknownNameReturnsEmpty(t *testing.T) {
	e := newTestEngine(t)
	loadTwoProjects(t, e)

	matches, err := e.ResolveSymbol(context.Background(), "no.Such.Name", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
