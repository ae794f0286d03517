package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var flagMaxResults int

var resolveCmd = &cobra.Command{
	Use:   "resolve <fqn>",
	Short: "Resolve a fully qualified name",
	Long:  "Resolves a fully qualified name against workspace source and external type metadata. Exact matches win; otherwise ranked fuzzy matches are returned.",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().IntVar(&flagMaxResults, "max-results", 10, "maximum matches to return")
}

func runResolve(cmd *cobra.Command, args []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return outputError("resolve", err)
	}
	defer engine.Close()

	matches, err := engine.ResolveSymbol(context.Background(), args[0], flagMaxResults)
	if err != nil {
		return outputError("resolve", err)
	}
	out := make([]CLIMatch, len(matches))
	for i, m := range matches {
		out[i] = matchToCLI(m)
	}
	return outputResult(CLIResult{Command: "resolve", Results: out})
}

func matchToCLI(m arbor.Match) CLIMatch {
	return CLIMatch{
		FQN:     m.FQN,
		Score:   m.Score,
		Origin:  string(m.Origin),
		Kind:    string(m.Kind),
		Project: m.ProjectID,
		Path:    m.Path,
		Line:    m.Line,
		Col:     m.Col,
		Module:  m.Module,
	}
}
