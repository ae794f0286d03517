package arbor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// docRef is one unit of query work, carrying the ordering key used for
// deterministic aggregation.
type docRef struct {
	ID        string
	ProjectID string
	Path      string
	// rank is the owning project's position in dependency order.
	rank int
}

// RunQuery runs one analysis query over the scoped documents.
//
// The scope is flattened to a single document list up front and fanned out
// to one bounded worker pool; per-document failures land in the failure
// manifest without stopping the run. Cancellation stops dispatch and
// returns whatever completed, with Truncated set. Results are ordered by
// (project dependency rank, document path, offset) regardless of which
// worker finished first.
func (e *Engine) RunQuery(ctx context.Context, q Query, scope Scope) (*QueryResult, error) {
	switch q.Kind {
	case QuerySearch, QuerySimilarity:
		if strings.TrimSpace(q.Needle) == "" {
			return nil, fmt.Errorf("arbor: %s query needs a needle", q.Kind)
		}
	case QueryComplexity:
	case QueryScript:
		if q.Script == "" && q.ScriptPath == "" {
			return nil, fmt.Errorf("arbor: script query needs a script")
		}
	default:
		return nil, fmt.Errorf("arbor: unknown query kind %q", q.Kind)
	}

	docs, err := e.flattenScope(scope)
	if err != nil {
		return nil, err
	}

	out := &QueryResult{RunID: uuid.NewString()}
	if len(docs) == 0 {
		out.Workers = 0
		return out, nil
	}

	workers := e.workerCount(len(docs))
	out.Workers = workers
	e.logger.Debug("query run starting",
		"run", out.RunID, "kind", q.Kind, "documents", len(docs), "workers", workers)

	perDoc := make([][]Result, len(docs))
	perErr := make([]error, len(docs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, ref := range docs {
		if ctx.Err() != nil {
			out.Truncated = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				perErr[i] = ctx.Err()
				return nil
			}
			m, err := e.GetSemanticModel(ctx, ref.ID)
			if err != nil {
				perErr[i] = err
				return nil
			}
			results, err := e.evalDocument(ctx, q, m)
			perDoc[i] = results
			perErr[i] = err
			return nil
		})
	}
	// Workers record failures instead of returning them, so Wait cannot
	// short-circuit the rest of the scope.
	_ = g.Wait()

	rankByDoc := make(map[string]int, len(docs))
	for _, d := range docs {
		rankByDoc[d.ID] = d.rank
	}
	for i, ref := range docs {
		if err := perErr[i]; err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Dispatch stopped; not a document failure.
				out.Truncated = true
			} else {
				out.Failures = append(out.Failures, Failure{DocumentID: ref.ID, Err: err})
			}
		}
		out.Results = append(out.Results, perDoc[i]...)
	}
	if ctx.Err() != nil {
		out.Truncated = true
	}

	// Work completion order must never show through.
	slices.SortStableFunc(out.Results, func(a, b Result) int {
		ra, rb := rankByDoc[a.DocumentID], rankByDoc[b.DocumentID]
		if ra != rb {
			return ra - rb
		}
		if a.Path != b.Path {
			return strings.Compare(a.Path, b.Path)
		}
		if a.Offset != b.Offset {
			return a.Offset - b.Offset
		}
		return strings.Compare(a.Text, b.Text)
	})

	e.logger.Debug("query run finished",
		"run", out.RunID, "results", len(out.Results),
		"failures", len(out.Failures), "truncated", out.Truncated)
	return out, nil
}

// flattenScope expands a scope to its document list in deterministic order:
// projects in dependency order, documents by path within a project.
func (e *Engine) flattenScope(scope Scope) ([]docRef, error) {
	order, err := e.ws.DependencyOrder()
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}

	wantProject := make(map[string]bool, len(scope.Projects))
	for _, id := range scope.Projects {
		if _, err := e.ws.Project(id); err != nil {
			return nil, err
		}
		wantProject[id] = true
	}
	wholeWorkspace := len(scope.Projects) == 0 && len(scope.Documents) == 0

	var docs []docRef
	included := make(map[string]bool)
	for _, projectID := range order {
		if !wholeWorkspace && !wantProject[projectID] {
			continue
		}
		pdocs, err := e.ws.DocumentsOf(projectID)
		if err != nil {
			return nil, err
		}
		for _, d := range pdocs {
			docs = append(docs, docRef{ID: d.ID, ProjectID: projectID, Path: d.Path, rank: rank[projectID]})
			included[d.ID] = true
		}
	}
	for _, id := range scope.Documents {
		if included[id] {
			continue
		}
		d, err := e.ws.Document(id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docRef{ID: d.ID, ProjectID: d.ProjectID, Path: d.Path, rank: rank[d.ProjectID]})
		included[id] = true
	}

	slices.SortStableFunc(docs, func(a, b docRef) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		if a.Path != b.Path {
			return strings.Compare(a.Path, b.Path)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return docs, nil
}

// workerCount sizes the pool for n documents, applying the memory-pressure
// sample taken once per run.
func (e *Engine) workerCount(n int) int {
	workers := min(e.cfg.Workers, n)
	lf := e.loadFactor()
	switch {
	case lf >= e.cfg.HighLoadFactor:
		workers /= 4
	case lf >= e.cfg.PressureLoadFactor:
		workers /= 2
	}
	return max(workers, 1)
}
