package arbor

import (
	"context"
	"slices"
	"strings"
)

// DependencyGraph is the project-to-project dependency graph.
type DependencyGraph struct {
	Projects []ProjectNode
	Edges    []DependencyEdge
}

// ProjectNode is one project with its aggregate document stats.
type ProjectNode struct {
	ID            string
	Name          string
	DocumentCount int
	SymbolCount   int
}

// DependencyEdge is one declared dependency. Unresolved means the target
// project is not part of the workspace.
type DependencyEdge struct {
	From       string
	To         string
	Unresolved bool
}

// ProjectGraph returns the workspace's dependency graph with per-project
// stats, projects in dependency order and edges sorted.
func (e *Engine) ProjectGraph(ctx context.Context) (*DependencyGraph, error) {
	order, err := e.ws.DependencyOrder()
	if err != nil {
		return nil, err
	}

	g := &DependencyGraph{}
	for _, projectID := range order {
		p, err := e.ws.Project(projectID)
		if err != nil {
			return nil, err
		}
		docs, err := e.ws.DocumentsOf(projectID)
		if err != nil {
			return nil, err
		}
		node := ProjectNode{ID: p.ID, Name: p.Name, DocumentCount: len(docs)}
		if comp, err := e.GetCompilation(ctx, projectID); err == nil {
			node.SymbolCount = len(comp.Symbols)
		} else if IsCode(err, ErrCancelled) {
			return nil, err
		}
		g.Projects = append(g.Projects, node)

		deps := slices.Clone(p.Deps)
		slices.Sort(deps)
		for _, dep := range deps {
			_, depErr := e.ws.Project(dep)
			g.Edges = append(g.Edges, DependencyEdge{
				From:       p.ID,
				To:         dep,
				Unresolved: depErr != nil,
			})
		}
	}
	slices.SortFunc(g.Edges, func(a, b DependencyEdge) int {
		if a.From != b.From {
			return strings.Compare(a.From, b.From)
		}
		return strings.Compare(a.To, b.To)
	})
	return g, nil
}
