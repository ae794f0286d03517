package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIMatch is a JSON-friendly resolution match.
type CLIMatch struct {
	FQN     string  `json:"fqn"`
	Score   float64 `json:"score"`
	Origin  string  `json:"origin"`
	Kind    string  `json:"kind,omitempty"`
	Project string  `json:"project,omitempty"`
	Path    string  `json:"path,omitempty"`
	Line    int     `json:"line,omitempty"`
	Col     int     `json:"col,omitempty"`
	Module  string  `json:"module,omitempty"`
}

// CLIQueryHit is a JSON-friendly query result row.
type CLIQueryHit struct {
	Document string  `json:"document"`
	Project  string  `json:"project"`
	Path     string  `json:"path"`
	Offset   int     `json:"offset"`
	Line     int     `json:"line,omitempty"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// CLIFailure is one document whose analysis failed during a query run.
type CLIFailure struct {
	Document string `json:"document"`
	Error    string `json:"error"`
}

// CLIQueryRun is a JSON-friendly query run outcome.
type CLIQueryRun struct {
	RunID     string        `json:"run_id"`
	Workers   int           `json:"workers"`
	Truncated bool          `json:"truncated,omitempty"`
	Hits      []CLIQueryHit `json:"hits"`
	Failures  []CLIFailure  `json:"failures,omitempty"`
}

// CLISymbol is a JSON-friendly workspace symbol.
type CLISymbol struct {
	FQN      string `json:"fqn"`
	Kind     string `json:"kind"`
	Project  string `json:"project"`
	Document string `json:"document"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// CLIDiagnostic is a JSON-friendly compilation diagnostic.
type CLIDiagnostic struct {
	Severity string `json:"severity"`
	Document string `json:"document,omitempty"`
	Line     int    `json:"line,omitempty"`
	Col      int    `json:"col,omitempty"`
	Message  string `json:"message"`
}

// CLICompilation summarizes one project's compilation.
type CLICompilation struct {
	Project     string          `json:"project"`
	Version     string          `json:"version"`
	SymbolCount int             `json:"symbol_count"`
	Partial     bool            `json:"partial,omitempty"`
	Diagnostics []CLIDiagnostic `json:"diagnostics,omitempty"`
}

// CLIProjectNode is a project in the dependency graph.
type CLIProjectNode struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	DocumentCount int    `json:"document_count"`
	SymbolCount   int    `json:"symbol_count"`
}

// CLIDependencyEdge is a dependency between two projects.
type CLIDependencyEdge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// CLIDependencyGraph is a JSON-friendly project dependency graph.
type CLIDependencyGraph struct {
	Projects []CLIProjectNode    `json:"projects"`
	Edges    []CLIDependencyEdge `json:"edges"`
}
