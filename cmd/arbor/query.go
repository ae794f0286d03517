package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var (
	flagMinScore   float64
	flagScriptPath string
	flagProjects   []string
	flagDocuments  []string
)

var queryCmd = &cobra.Command{
	Use:   "query <kind> [needle]",
	Short: "Run an analysis query over the workspace",
	Long: `Runs one analysis query over the scoped documents in parallel.

Kinds:
  search      case-insensitive token search for <needle>
  similarity  token-set similarity of each document against <needle>
  complexity  decision points per document
  script      run the Risor script given by --script per document`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Float64Var(&flagMinScore, "min-score", 0, "similarity score floor")
	queryCmd.Flags().StringVar(&flagScriptPath, "script", "", "path of the Risor script for script queries")
	queryCmd.Flags().StringSliceVar(&flagProjects, "project", nil, "restrict the scope to these projects")
	queryCmd.Flags().StringSliceVar(&flagDocuments, "doc", nil, "add these documents to the scope")
}

func runQuery(cmd *cobra.Command, args []string) error {
	q := arbor.Query{
		Kind:       arbor.QueryKind(args[0]),
		MinScore:   flagMinScore,
		ScriptPath: flagScriptPath,
	}
	if len(args) > 1 {
		q.Needle = args[1]
	}
	if q.Kind == arbor.QueryScript && q.ScriptPath == "" {
		return outputError("query", fmt.Errorf("script queries need --script"))
	}

	engine, _, err := openEngine()
	if err != nil {
		return outputError("query", err)
	}
	defer engine.Close()

	scope := arbor.Scope{Projects: flagProjects, Documents: flagDocuments}
	res, err := engine.RunQuery(context.Background(), q, scope)
	if err != nil {
		return outputError("query", err)
	}
	return outputResult(CLIResult{Command: "query", Results: queryRunToCLI(res)})
}

func queryRunToCLI(res *arbor.QueryResult) CLIQueryRun {
	out := CLIQueryRun{
		RunID:     res.RunID,
		Workers:   res.Workers,
		Truncated: res.Truncated,
		Hits:      make([]CLIQueryHit, len(res.Results)),
	}
	for i, r := range res.Results {
		out.Hits[i] = CLIQueryHit{
			Document: r.DocumentID,
			Project:  r.ProjectID,
			Path:     r.Path,
			Offset:   r.Offset,
			Line:     r.Line,
			Text:     r.Text,
			Score:    r.Score,
		}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, CLIFailure{
			Document: f.DocumentID,
			Error:    f.Err.Error(),
		})
	}
	return out
}
