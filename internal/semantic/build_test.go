package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGo = `package shapes

const Pi = 3.14159

var Debug, Trace = false, false

type Circle struct {
	Radius float64
}

func (c *Circle) Area() float64 {
	return Pi * c.Radius * c.Radius
}

func NewCircle(r float64) *Circle {
	return &Circle{Radius: r}
}
`

func TestBuildCompilationExtractsGoSymbols(t *testing.T) {
	docs := []DocumentInput{{ID: "d1", Path: "shapes.go", Text: sampleGo}}
	comp, err := BuildCompilation(context.Background(), "p1", "v1", docs, nil)
	require.NoError(t, err)

	fqns := make([]string, len(comp.Symbols))
	for i, s := range comp.Symbols {
		fqns[i] = s.FQN
	}
	assert.Contains(t, fqns, "shapes.Pi")
	assert.Contains(t, fqns, "shapes.Debug")
	assert.Contains(t, fqns, "shapes.Trace")
	assert.Contains(t, fqns, "shapes.Circle")
	assert.Contains(t, fqns, "shapes.Circle.Area")
	assert.Contains(t, fqns, "shapes.NewCircle")

	require.Contains(t, comp.ByFQN, "shapes.Circle.Area")
	idx := comp.ByFQN["shapes.Circle.Area"][0]
	assert.Equal(t, KindMethod, comp.Symbols[idx].Kind)
	assert.False(t, comp.Partial)
	assert.Empty(t, comp.Diagnostics)
}

func TestBuildCompilationPartialOnSyntaxError(t *testing.T) {
	docs := []DocumentInput{
		{ID: "good", Path: "good.go", Text: "package a\n\nfunc Fine() {}\n"},
		{ID: "bad", Path: "bad.go", Text: "package a\n\nfunc Broken( {\n"},
	}
	comp, err := BuildCompilation(context.Background(), "p1", "v1", docs, nil)
	require.NoError(t, err)

	assert.True(t, comp.Partial)
	require.NotEmpty(t, comp.Diagnostics)
	assert.Equal(t, "bad", comp.Diagnostics[0].DocumentID)

	// The readable document still contributed its symbols.
	assert.Contains(t, comp.ByFQN, "a.Fine")
}

func TestBuildCompilationUnresolvedDeps(t *testing.T) {
	comp, err := BuildCompilation(context.Background(), "p1", "v1", nil, []string{"missing"})
	require.NoError(t, err)
	assert.True(t, comp.Partial)
	require.Len(t, comp.Diagnostics, 1)
	assert.Equal(t, SeverityWarning, comp.Diagnostics[0].Severity)
}

func TestBuildModelTokenIndex(t *testing.T) {
	doc := DocumentInput{ID: "d1", Path: "notes.txt", Text: "Retry budget\nretry LIMIT exceeded\n"}
	m, err := BuildModel(context.Background(), "p1", "v1", doc)
	require.NoError(t, err)

	assert.Empty(t, m.Symbols)
	assert.Equal(t, 3, m.Lines)
	texts := make([]string, len(m.Tokens))
	for i, tok := range m.Tokens {
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"retry", "budget", "retry", "limit", "exceeded"}, texts)
	assert.Equal(t, 1, m.Tokens[0].Line)
	assert.Equal(t, 2, m.Tokens[2].Line)
}

func TestBuildModelGoDocument(t *testing.T) {
	doc := DocumentInput{ID: "d1", Path: "shapes.go", Text: sampleGo}
	m, err := BuildModel(context.Background(), "p1", "v1", doc)
	require.NoError(t, err)
	assert.NotEmpty(t, m.Symbols)
	assert.NotEmpty(t, m.Tokens)
	assert.Positive(t, m.Size())
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildCompilation(ctx, "p1", "v1", []DocumentInput{{ID: "d", Path: "a.go", Text: "package a"}}, nil)
	assert.Error(t, err)
}
