package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var (
	flagLimit       int
	flagOffset      int
	flagSort        string
	flagOrder       string
	flagKinds       []string
	flagNamePattern string
	flagPathPrefix  string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List workspace symbols",
	Long:  "Lists symbols across compiled projects with filtering, sorting, and pagination.",
	RunE:  runSymbols,
}

func init() {
	symbolsCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	symbolsCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	symbolsCmd.Flags().StringVar(&flagSort, "sort", "", "sort field: fqn|kind|path")
	symbolsCmd.Flags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")
	symbolsCmd.Flags().StringSliceVar(&flagKinds, "kind", nil, "restrict to these symbol kinds")
	symbolsCmd.Flags().StringVar(&flagNamePattern, "name", "", "glob on the FQN, '*' matches any run")
	symbolsCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "restrict to documents under this path")
	symbolsCmd.Flags().StringSliceVar(&flagProjects, "project", nil, "restrict to these projects")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return outputError("symbols", err)
	}
	defer engine.Close()

	filter := arbor.SymbolFilter{
		NamePattern: flagNamePattern,
		Projects:    flagProjects,
		PathPrefix:  flagPathPrefix,
	}
	for _, k := range flagKinds {
		filter.Kinds = append(filter.Kinds, arbor.SymbolKind(k))
	}

	page, err := engine.Symbols(context.Background(), filter, buildSort(), buildPagination())
	if err != nil {
		return outputError("symbols", err)
	}

	out := make([]CLISymbol, len(page.Items))
	for i, sym := range page.Items {
		out[i] = symbolToCLI(engine, sym)
	}
	return outputResult(CLIResult{
		Command:    "symbols",
		Results:    out,
		TotalCount: &page.TotalCount,
	})
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() arbor.Pagination {
	return arbor.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

// buildSort creates a Sort from CLI flags.
func buildSort() arbor.Sort {
	var field arbor.SortField
	switch flagSort {
	case "kind":
		field = arbor.SortByKind
	case "path":
		field = arbor.SortByPath
	default:
		field = arbor.SortByFQN
	}

	var order arbor.SortOrder
	switch flagOrder {
	case "desc":
		order = arbor.Desc
	default:
		order = arbor.Asc
	}

	return arbor.Sort{Field: field, Order: order}
}

func symbolToCLI(engine *arbor.Engine, sym arbor.Symbol) CLISymbol {
	out := CLISymbol{
		FQN:      sym.FQN,
		Kind:     string(sym.Kind),
		Document: sym.DocumentID,
		Path:     sym.Path,
		Line:     sym.Line,
		Col:      sym.Col,
	}
	if doc, err := engine.Workspace().Document(sym.DocumentID); err == nil {
		out.Project = doc.ProjectID
	}
	return out
}
