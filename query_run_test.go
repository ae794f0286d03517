package arbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadQueryWorkspace(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Load([]ProjectSpec{
		{ID: "lib", Name: "lib", Documents: []DocumentSpec{
			{ID: "lib/notes.txt", Path: "notes.txt", Text: "retry budget exceeded so retry later"},
			{ID: "lib/util.go", Path: "util.go", Text: "package lib\n\nfunc Retry() {\n\tfor {\n\t\tif done() {\n\t\t\treturn\n\t\t}\n\t}\n}\n"},
		}},
		{ID: "app", Name: "app", Deps: []string{"lib"}, Documents: []DocumentSpec{
			{ID: "app/main.go", Path: "main.go", Text: "package app\n\nfunc Run() {\n\tretry()\n}\n"},
		}},
	}))
}

func TestRunQuerySearchIsOrderedAndRepeatable(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)
	ctx := context.Background()

	first, err := e.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{})
	require.NoError(t, err)
	require.Empty(t, first.Failures)
	require.NotEmpty(t, first.Results)

	// lib ranks before its dependent app; within lib, notes.txt sorts
	// before util.go; within a document, earlier offsets first.
	var order []string
	for _, r := range first.Results {
		order = append(order, r.DocumentID)
	}
	assert.Equal(t, []string{"lib/notes.txt", "lib/notes.txt", "lib/util.go", "app/main.go"}, order)
	assert.Less(t, first.Results[0].Offset, first.Results[1].Offset)

	for range 5 {
		again, err := e.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{})
		require.NoError(t, err)
		assert.Equal(t, first.Results, again.Results)
	}
}

func TestRunQueryResultsIndependentOfWorkerCount(t *testing.T) {
	wide := newTestEngine(t)
	loadQueryWorkspace(t, wide)

	cfg := DefaultConfig()
	cfg.Workers = 1
	narrow := newTestEngine(t, WithConfig(cfg))
	loadQueryWorkspace(t, narrow)

	ctx := context.Background()
	a, err := wide.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{})
	require.NoError(t, err)
	b, err := narrow.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{})
	require.NoError(t, err)
	assert.Equal(t, a.Results, b.Results)
	assert.Equal(t, 1, b.Workers)
}

func TestRunQueryScopeSelectsProjectsAndDocuments(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)
	ctx := context.Background()

	res, err := e.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{Projects: []string{"app"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "app/main.go", res.Results[0].DocumentID)

	res, err = e.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{Documents: []string{"lib/notes.txt"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "lib/notes.txt", res.Results[0].DocumentID)

	_, err = e.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{Projects: []string{"ghost"}})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
}

func TestRunQuerySimilarity(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)
	ctx := context.Background()

	res, err := e.RunQuery(ctx,
		Query{Kind: QuerySimilarity, Needle: "retry budget"},
		Scope{Documents: []string{"lib/notes.txt"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Positive(t, res.Results[0].Score)

	res, err = e.RunQuery(ctx,
		Query{Kind: QuerySimilarity, Needle: "retry budget", MinScore: 0.99},
		Scope{Documents: []string{"lib/notes.txt"}})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestRunQueryComplexity(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)

	res, err := e.RunQuery(context.Background(),
		Query{Kind: QueryComplexity}, Scope{Documents: []string{"lib/util.go"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	// util.go has one for and one if.
	assert.Positive(t, res.Results[0].Score)
	assert.Contains(t, res.Results[0].Text, "2 decision points")
}

func TestRunQueryScriptFailureIsolation(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)

	src := `
if doc["id"] == "lib/notes.txt" {
    error("refusing " + doc["id"])
}
emit("saw " + doc["id"])
`
	res, err := e.RunQuery(context.Background(),
		Query{Kind: QueryScript, Script: src}, Scope{})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "lib/notes.txt", res.Failures[0].DocumentID)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "saw lib/util.go", res.Results[0].Text)
	assert.Equal(t, "saw app/main.go", res.Results[1].Text)
	assert.False(t, res.Truncated)
}

func TestRunQueryCancelledMarksTruncated(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.RunQuery(ctx, Query{Kind: QuerySearch, Needle: "retry"}, Scope{})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Empty(t, res.Failures)
}

func TestRunQueryWorkerCountRespondsToLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 8

	cases := []struct {
		name string
		load float64
		want int
	}{
		{"calm", 0.1, 3},
		{"pressure", 0.75, 1},
		{"high", 0.95, 1},
	}
	// Three documents in scope, so the calm pool clamps to three.
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, WithConfig(cfg), WithLoadFactor(func() float64 { return tc.load }))
			loadQueryWorkspace(t, e)
			res, err := e.RunQuery(context.Background(),
				Query{Kind: QuerySearch, Needle: "retry"}, Scope{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Workers)
		})
	}
}

func TestRunQueryValidatesInput(t *testing.T) {
	e := newTestEngine(t)
	loadQueryWorkspace(t, e)
	ctx := context.Background()

	_, err := e.RunQuery(ctx, Query{Kind: QuerySearch}, Scope{})
	assert.Error(t, err)
	_, err = e.RunQuery(ctx, Query{Kind: QueryScript}, Scope{})
	assert.Error(t, err)
	_, err = e.RunQuery(ctx, Query{Kind: QueryKind("mystery")}, Scope{})
	assert.Error(t, err)
}
