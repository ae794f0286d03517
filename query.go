package arbor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/arbor/internal/script"
	"github.com/jward/arbor/internal/semantic"
)

// QueryKind selects the analysis a query runs per document.
type QueryKind string

const (
	// QuerySearch finds case-insensitive token matches of Needle.
	QuerySearch QueryKind = "search"
	// QuerySimilarity scores each document's token set against Needle and
	// reports documents at or above MinScore.
	QuerySimilarity QueryKind = "similarity"
	// QueryComplexity estimates decision points per document.
	QueryComplexity QueryKind = "complexity"
	// QueryScript runs a Risor script per document; its emissions become
	// results.
	QueryScript QueryKind = "script"
)

// Query describes one analysis run.
type Query struct {
	Kind   QueryKind
	Needle string
	// MinScore filters similarity results. Zero means any overlap counts.
	MinScore float64
	// Script is Risor source for QueryScript. When empty, ScriptPath is
	// loaded instead.
	Script     string
	ScriptPath string
}

// Scope selects the documents a query runs over. Empty means the whole
// workspace.
type Scope struct {
	Projects  []string
	Documents []string
}

// Result is one query finding.
type Result struct {
	DocumentID string
	ProjectID  string
	Path       string
	Offset     int
	Line       int
	Text       string
	Score      float64
}

// Failure records a document whose analysis failed. Other documents in the
// scope are unaffected.
type Failure struct {
	DocumentID string
	Err        error
}

// QueryResult is the aggregate outcome of one run.
type QueryResult struct {
	// RunID identifies this run in logs.
	RunID    string
	Results  []Result
	Failures []Failure
	// Truncated is set when cancellation stopped the run before the whole
	// scope was analyzed.
	Truncated bool
	// Workers is the concurrency the run actually used.
	Workers int
}

func (e *Engine) evalDocument(ctx context.Context, q Query, m *semantic.Model) ([]Result, error) {
	switch q.Kind {
	case QuerySearch:
		return e.evalSearch(ctx, q, m)
	case QuerySimilarity:
		return evalSimilarity(q, m), nil
	case QueryComplexity:
		return evalComplexity(m), nil
	case QueryScript:
		return e.evalScript(ctx, q, m)
	default:
		return nil, fmt.Errorf("unknown query kind %q", q.Kind)
	}
}

func (e *Engine) evalSearch(ctx context.Context, q Query, m *semantic.Model) ([]Result, error) {
	needle := strings.ToLower(q.Needle)
	var results []Result
	for i, tok := range m.Tokens {
		// Long documents: stay responsive to cancellation mid-scan.
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return results, err
			}
		}
		if !strings.Contains(tok.Text, needle) {
			continue
		}
		results = append(results, Result{
			DocumentID: m.DocumentID,
			ProjectID:  m.ProjectID,
			Path:       m.Path,
			Offset:     tok.Offset,
			Line:       tok.Line,
			Text:       tok.Text,
			Score:      1.0,
		})
		if len(results) >= e.cfg.MaxResultsPerDoc {
			break
		}
	}
	return results, nil
}

func evalSimilarity(q Query, m *semantic.Model) []Result {
	needleSet := tokenSet(strings.Fields(strings.ToLower(q.Needle)))
	if len(needleSet) == 0 {
		return nil
	}
	docSet := make(map[string]bool, len(m.Tokens))
	for _, tok := range m.Tokens {
		docSet[tok.Text] = true
	}
	score := jaccard(needleSet, docSet)
	if score <= 0 || score < q.MinScore {
		return nil
	}
	return []Result{{
		DocumentID: m.DocumentID,
		ProjectID:  m.ProjectID,
		Path:       m.Path,
		Text:       fmt.Sprintf("similarity %.3f over %d tokens", score, len(m.Tokens)),
		Score:      score,
	}}
}

// decisionTokens are the control-flow words counted as decision points.
var decisionTokens = map[string]bool{
	"if": true, "else": true, "for": true, "while": true,
	"switch": true, "case": true, "select": true, "catch": true,
}

func evalComplexity(m *semantic.Model) []Result {
	decisions := 0
	for _, tok := range m.Tokens {
		if decisionTokens[tok.Text] {
			decisions++
		}
	}
	score := float64(decisions)
	if m.Lines > 0 {
		score = float64(decisions) / float64(m.Lines)
	}
	return []Result{{
		DocumentID: m.DocumentID,
		ProjectID:  m.ProjectID,
		Path:       m.Path,
		Text:       fmt.Sprintf("%d decision points in %d lines", decisions, m.Lines),
		Score:      score,
	}}
}

func (e *Engine) evalScript(ctx context.Context, q Query, m *semantic.Model) ([]Result, error) {
	doc, err := e.ws.Document(m.DocumentID)
	if err != nil {
		return nil, err
	}
	source := q.Script
	if source == "" {
		source, err = e.scripts.LoadScript(q.ScriptPath)
		if err != nil {
			return nil, err
		}
	}
	emissions, err := e.scripts.RunSource(ctx, source, script.Doc{
		ID:      doc.ID,
		Path:    doc.Path,
		Project: doc.ProjectID,
		Text:    doc.Text,
	})
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(emissions))
	for i, em := range emissions {
		results[i] = Result{
			DocumentID: m.DocumentID,
			ProjectID:  m.ProjectID,
			Path:       m.Path,
			Offset:     em.Offset,
			Text:       em.Text,
			Score:      1.0,
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Offset != results[j].Offset {
			return results[i].Offset < results[j].Offset
		}
		return results[i].Text < results[j].Text
	})
	return results, nil
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
