package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var compileCmd = &cobra.Command{
	Use:   "compile [project...]",
	Short: "Compile projects and report their symbols and diagnostics",
	Long:  "Builds (or fetches from cache) the compilation of each named project, or of every project in dependency order when none are named.",
	RunE:  runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return outputError("compile", err)
	}
	defer engine.Close()

	ctx := context.Background()
	ids := args
	if len(ids) == 0 {
		ids, err = engine.Workspace().DependencyOrder()
		if err != nil {
			return outputError("compile", err)
		}
	}

	comps := make([]CLICompilation, 0, len(ids))
	for _, id := range ids {
		comp, err := engine.GetCompilation(ctx, id)
		if err != nil {
			return outputError("compile", err)
		}
		comps = append(comps, compilationToCLI(comp))
	}
	return outputResult(CLIResult{Command: "compile", Results: comps})
}

func compilationToCLI(comp *arbor.Compilation) CLICompilation {
	out := CLICompilation{
		Project:     comp.ProjectID,
		Version:     comp.Version,
		SymbolCount: len(comp.Symbols),
		Partial:     comp.Partial,
	}
	for _, d := range comp.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, CLIDiagnostic{
			Severity: string(d.Severity),
			Document: d.DocumentID,
			Line:     d.Line,
			Col:      d.Col,
			Message:  d.Message,
		})
	}
	return out
}
