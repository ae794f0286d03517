package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatMatchesText formats resolution matches as aligned columns.
func formatMatchesText(w io.Writer, matches []CLIMatch) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FQN\tSCORE\tORIGIN\tKIND\tLOCATION")
	for _, m := range matches {
		location := m.Module
		if m.Origin == "source" {
			location = fmt.Sprintf("%s:%d:%d", m.Path, m.Line, m.Col)
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\t%s\n",
			m.FQN, m.Score, m.Origin, m.Kind, location)
	}
	tw.Flush()
}

// formatQueryRunText formats a query run as hit lines plus a footer.
func formatQueryRunText(w io.Writer, run CLIQueryRun) {
	for _, h := range run.Hits {
		fmt.Fprintf(w, "%s:%d: %s", h.Path, h.Line, h.Text)
		if h.Score != 1.0 {
			fmt.Fprintf(w, " (%.3f)", h.Score)
		}
		fmt.Fprintln(w)
	}
	for _, f := range run.Failures {
		fmt.Fprintf(w, "FAILED %s: %s\n", f.Document, f.Error)
	}
	if run.Truncated {
		fmt.Fprintln(w, "(truncated)")
	}
	fmt.Fprintf(w, "%d hits, %d failures, %d workers\n",
		len(run.Hits), len(run.Failures), run.Workers)
}

// formatSymbolsText formats workspace symbols as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FQN\tKIND\tPROJECT\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			s.FQN, s.Kind, s.Project, s.Path, s.Line)
	}
	tw.Flush()
}

// formatCompilationsText formats compilation summaries with diagnostics.
func formatCompilationsText(w io.Writer, comps []CLICompilation) {
	for _, c := range comps {
		status := "ok"
		if c.Partial {
			status = "partial"
		}
		fmt.Fprintf(w, "%s: %d symbols (%s)\n", c.Project, c.SymbolCount, status)
		for _, d := range c.Diagnostics {
			if d.Document != "" {
				fmt.Fprintf(w, "  %s: %s:%d:%d: %s\n",
					d.Severity, d.Document, d.Line, d.Col, d.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", d.Severity, d.Message)
			}
		}
	}
}

// formatGraphText formats the project dependency graph.
func formatGraphText(w io.Writer, g CLIDependencyGraph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tDOCUMENTS\tSYMBOLS")
	for _, p := range g.Projects {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", p.ID, p.DocumentCount, p.SymbolCount)
	}
	tw.Flush()
	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		for _, e := range g.Edges {
			suffix := ""
			if e.Unresolved {
				suffix = " (unresolved)"
			}
			fmt.Fprintf(w, "%s -> %s%s\n", e.From, e.To, suffix)
		}
	}
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLIMatch:
		formatMatchesText(w, v)
	case CLIQueryRun:
		formatQueryRunText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLICompilation:
		formatCompilationsText(w, v)
	case CLIDependencyGraph:
		formatGraphText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}

	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIMatch:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLICompilation:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as
// a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
