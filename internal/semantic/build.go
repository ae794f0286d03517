// Package semantic builds the derived analysis artifacts: per-project
// compilations and per-document semantic models.
//
// Builders are pure with respect to workspace state: callers pass in the
// documents and version under which to build, and cache the result keyed by
// that version. Go documents get full symbol extraction; any other document
// still gets a token index so text queries can see it.
package semantic

import (
	"context"
	"fmt"

	"github.com/jward/arbor/internal/fault"
)

// DocumentInput is the slice of workspace state a builder needs.
type DocumentInput struct {
	ID   string
	Path string
	Text string
}

// BuildCompilation extracts every symbol declared by the project's
// documents. Parse failures and unresolved dependencies become diagnostics
// on a partial artifact; only cancellation aborts the build.
func BuildCompilation(ctx context.Context, projectID, version string, docs []DocumentInput, unresolvedDeps []string) (*Compilation, error) {
	comp := &Compilation{
		ProjectID: projectID,
		Version:   version,
		ByFQN:     make(map[string][]int),
	}
	for _, dep := range unresolvedDeps {
		comp.Diagnostics = append(comp.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("dependency %s is not part of the workspace", dep),
		})
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.CodeCancelled, err, "compiling %s", projectID)
		}
		if !extractable(doc.Path) {
			continue
		}
		symbols, diags, err := extractGo(ctx, doc.ID, doc.Path, []byte(doc.Text))
		if err != nil {
			comp.Diagnostics = append(comp.Diagnostics, Diagnostic{
				DocumentID: doc.ID,
				Severity:   SeverityError,
				Message:    err.Error(),
			})
			continue
		}
		for _, sym := range symbols {
			comp.ByFQN[sym.FQN] = append(comp.ByFQN[sym.FQN], len(comp.Symbols))
			comp.Symbols = append(comp.Symbols, sym)
		}
		comp.Diagnostics = append(comp.Diagnostics, diags...)
	}
	comp.Partial = len(comp.Diagnostics) > 0
	return comp, nil
}

// BuildModel builds the per-document artifact: the document's own symbols
// plus its token index.
func BuildModel(ctx context.Context, projectID, version string, doc DocumentInput) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.CodeCancelled, err, "modeling %s", doc.ID)
	}
	m := &Model{
		DocumentID: doc.ID,
		ProjectID:  projectID,
		Path:       doc.Path,
		Version:    version,
	}
	if extractable(doc.Path) {
		symbols, diags, err := extractGo(ctx, doc.ID, doc.Path, []byte(doc.Text))
		if err != nil {
			m.Diagnostics = append(m.Diagnostics, Diagnostic{
				DocumentID: doc.ID,
				Severity:   SeverityError,
				Message:    err.Error(),
			})
		} else {
			m.Symbols = symbols
			m.Diagnostics = append(m.Diagnostics, diags...)
		}
	}
	m.Tokens, m.Lines = tokenize(doc.Text)
	return m, nil
}
