package semantic

// SymbolKind classifies an extracted symbol.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindType     SymbolKind = "type"
	KindConst    SymbolKind = "const"
	KindVar      SymbolKind = "var"
)

// Symbol is one declaration extracted from a document.
type Symbol struct {
	FQN        string
	Name       string
	Kind       SymbolKind
	DocumentID string
	Path       string
	Offset     int
	Line       int
	Col        int
}

// Severity grades a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a problem found while building an artifact. Diagnostics are
// data on the artifact, never a reason to withhold it.
type Diagnostic struct {
	DocumentID string
	Severity   Severity
	Message    string
	Line       int
	Col        int
}

// Compilation is the per-project artifact: every symbol declared by the
// project's documents, indexed by FQN.
type Compilation struct {
	ProjectID   string
	Version     string
	Symbols     []Symbol
	ByFQN       map[string][]int
	Diagnostics []Diagnostic
	// Partial marks a compilation that carries diagnostics or was built
	// with unresolved dependencies.
	Partial bool
}

// Token is one lowercased word of a document with its position.
type Token struct {
	Text   string
	Offset int
	Line   int
}

// Model is the per-document artifact: the document's own symbols plus a
// token index used by search and similarity queries.
type Model struct {
	DocumentID  string
	ProjectID   string
	Path        string
	Version     string
	Symbols     []Symbol
	Tokens      []Token
	Lines       int
	Diagnostics []Diagnostic
}

// Size approximates the artifact's memory footprint in bytes.
func (c *Compilation) Size() int64 {
	size := int64(len(c.ProjectID) + len(c.Version))
	for _, s := range c.Symbols {
		size += symbolSize(s)
	}
	for _, d := range c.Diagnostics {
		size += diagnosticSize(d)
	}
	size += int64(len(c.ByFQN)) * 48
	return size
}

// Size approximates the artifact's memory footprint in bytes.
func (m *Model) Size() int64 {
	size := int64(len(m.DocumentID) + len(m.ProjectID) + len(m.Path) + len(m.Version))
	for _, s := range m.Symbols {
		size += symbolSize(s)
	}
	for _, t := range m.Tokens {
		size += int64(len(t.Text)) + 24
	}
	for _, d := range m.Diagnostics {
		size += diagnosticSize(d)
	}
	return size
}

func symbolSize(s Symbol) int64 {
	return int64(len(s.FQN)+len(s.Name)+len(s.Kind)+len(s.DocumentID)+len(s.Path)) + 32
}

func diagnosticSize(d Diagnostic) int64 {
	return int64(len(d.DocumentID)+len(d.Message)) + 32
}
