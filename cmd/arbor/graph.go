package main

import (
	"context"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the project dependency graph",
	Long:  "Prints every project with its document and symbol counts plus the declared dependency edges.",
	RunE:  runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return outputError("graph", err)
	}
	defer engine.Close()

	g, err := engine.ProjectGraph(context.Background())
	if err != nil {
		return outputError("graph", err)
	}

	out := CLIDependencyGraph{
		Projects: make([]CLIProjectNode, len(g.Projects)),
		Edges:    make([]CLIDependencyEdge, len(g.Edges)),
	}
	for i, p := range g.Projects {
		out.Projects[i] = CLIProjectNode{
			ID:            p.ID,
			Name:          p.Name,
			DocumentCount: p.DocumentCount,
			SymbolCount:   p.SymbolCount,
		}
	}
	for i, e := range g.Edges {
		out.Edges[i] = CLIDependencyEdge{From: e.From, To: e.To, Unresolved: e.Unresolved}
	}
	return outputResult(CLIResult{Command: "graph", Results: out})
}
