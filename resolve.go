package arbor

import (
	"context"
	"slices"
	"strings"

	"github.com/jward/arbor/internal/semantic"
)

// MatchOrigin tells whether a match came from workspace source or from
// external type metadata.
type MatchOrigin string

const (
	OriginSource   MatchOrigin = "source"
	OriginExternal MatchOrigin = "external"
)

// Match is one resolution candidate. Exact matches score 1.0; fuzzy
// matches score in (0, 1).
type Match struct {
	FQN    string
	Score  float64
	Origin MatchOrigin
	Kind   SymbolKind

	// Source location, populated for OriginSource matches.
	ProjectID  string
	DocumentID string
	Path       string
	Line       int
	Col        int

	// Module is the owning external module for OriginExternal matches.
	Module string
}

// ResolveSymbol resolves a fully qualified name against workspace source
// and external metadata.
//
// An exact source match wins outright: fuzzy candidates and external
// definitions of the same name are not consulted. Failing that, an exact
// external match wins. Only then does fuzzy matching rank the union of all
// known names; candidates below the relevance floor are dropped. The result
// order is a total order, so equal inputs always resolve identically.
func (e *Engine) ResolveSymbol(ctx context.Context, fqn string, maxResults int) ([]Match, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	order, err := e.ws.DependencyOrder()
	if err != nil {
		return nil, err
	}

	type candidate struct {
		fqn       string
		origin    MatchOrigin
		rank      int // project dependency rank for source candidates
		kind      semantic.SymbolKind
		projectID string
		docID     string
		path      string
		line, col int
		module    string
	}

	var exact []Match
	var candidates []candidate
	seen := make(map[string]bool)

	for rank, projectID := range order {
		comp, err := e.GetCompilation(ctx, projectID)
		if err != nil {
			if IsCode(err, ErrCancelled) {
				return nil, err
			}
			// A project that cannot compile contributes nothing.
			continue
		}
		for _, idx := range comp.ByFQN[fqn] {
			sym := comp.Symbols[idx]
			exact = append(exact, Match{
				FQN:        sym.FQN,
				Score:      1.0,
				Origin:     OriginSource,
				Kind:       sym.Kind,
				ProjectID:  projectID,
				DocumentID: sym.DocumentID,
				Path:       sym.Path,
				Line:       sym.Line,
				Col:        sym.Col,
			})
		}
		for name, idxs := range comp.ByFQN {
			// The earliest project in dependency order owns the name.
			if seen[name] {
				continue
			}
			seen[name] = true
			sym := comp.Symbols[idxs[0]]
			candidates = append(candidates, candidate{
				fqn:       name,
				origin:    OriginSource,
				rank:      rank,
				kind:      sym.Kind,
				projectID: projectID,
				docID:     sym.DocumentID,
				path:      sym.Path,
				line:      sym.Line,
				col:       sym.Col,
			})
		}
	}
	if len(exact) > 0 {
		// Exact tier ranking: project dependency order first, then path
		// and position within a project.
		projectRank := make(map[string]int, len(order))
		for i, id := range order {
			projectRank[id] = i
		}
		slices.SortStableFunc(exact, func(a, b Match) int {
			if ra, rb := projectRank[a.ProjectID], projectRank[b.ProjectID]; ra != rb {
				return ra - rb
			}
			if a.Path != b.Path {
				return strings.Compare(a.Path, b.Path)
			}
			return a.Line - b.Line
		})
		if len(exact) > maxResults {
			exact = exact[:maxResults]
		}
		return exact, nil
	}

	if td, err := e.metadata.Resolve(ctx, fqn); err != nil {
		return nil, err
	} else if td != nil {
		return []Match{{
			FQN:    td.FQN,
			Score:  1.0,
			Origin: OriginExternal,
			Module: td.Module,
		}}, nil
	}

	names, err := e.metadata.AllKnownNames(ctx)
	if err != nil {
		return nil, err
	}
	for name := range names {
		if seen[name] {
			// A source definition shadows the external one.
			continue
		}
		candidates = append(candidates, candidate{fqn: name, origin: OriginExternal})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []Match
	for _, c := range candidates {
		score := fuzzyScore(fqn, c.fqn)
		if score < e.cfg.MinRelevance {
			continue
		}
		matches = append(matches, Match{
			FQN:        c.fqn,
			Score:      score,
			Origin:     c.origin,
			Kind:       c.kind,
			ProjectID:  c.projectID,
			DocumentID: c.docID,
			Path:       c.path,
			Line:       c.line,
			Col:        c.col,
		})
	}
	slices.SortStableFunc(matches, compareMatches)
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

// compareMatches imposes a total order: score descending, source before
// external, shorter name first, then lexical.
func compareMatches(a, b Match) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	if a.Origin != b.Origin {
		if a.Origin == OriginSource {
			return -1
		}
		return 1
	}
	if len(a.FQN) != len(b.FQN) {
		return len(a.FQN) - len(b.FQN)
	}
	return strings.Compare(a.FQN, b.FQN)
}

// fuzzyScore rates how well candidate matches query, in [0, 1). Shared
// trailing segments dominate (a query of "Circle" should prefer
// "shapes.Circle" to "circles.Shape"), shared leading segments help, and a
// large length difference costs a little.
func fuzzyScore(query, candidate string) float64 {
	q := strings.Split(strings.ToLower(query), ".")
	c := strings.Split(strings.ToLower(candidate), ".")

	trailing := 0
	for trailing < len(q) && trailing < len(c) &&
		q[len(q)-1-trailing] == c[len(c)-1-trailing] {
		trailing++
	}
	leading := 0
	for leading < len(q) && leading < len(c) && q[leading] == c[leading] {
		leading++
	}

	score := 0.6*float64(trailing)/float64(len(q)) +
		0.2*float64(leading)/float64(len(q))
	if strings.Contains(strings.ToLower(candidate), q[len(q)-1]) {
		score += 0.15
	}
	diff := len(candidate) - len(query)
	if diff < 0 {
		diff = -diff
	}
	score -= 0.002 * float64(diff)
	if score < 0 {
		score = 0
	}
	if score >= 1 {
		score = 0.999
	}
	return score
}
