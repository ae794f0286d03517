package arbor

import (
	"context"
	"slices"
	"strings"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order listing results.
type SortField string

const (
	SortByFQN  SortField = "fqn"
	SortByKind SortField = "kind"
	SortByPath SortField = "path"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with the total count before paging.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int
}

// SymbolFilter specifies which symbols to include. All fields are optional.
type SymbolFilter struct {
	Kinds []SymbolKind // match any of these kinds
	// NamePattern is a glob on the FQN; '*' matches any run of characters.
	NamePattern string
	Projects    []string // restrict to these projects
	PathPrefix  string   // restrict to documents under this path
}

// Symbols lists workspace symbols across compilations, filtered, sorted,
// and paged. The default sort is by FQN, so identical inputs always page
// identically.
func (e *Engine) Symbols(ctx context.Context, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[Symbol], error) {
	page = page.normalize()

	projects, err := e.ws.DependencyOrder()
	if err != nil {
		return nil, err
	}
	if len(filter.Projects) > 0 {
		want := make(map[string]bool, len(filter.Projects))
		for _, id := range filter.Projects {
			want[id] = true
		}
		projects = slices.DeleteFunc(slices.Clone(projects), func(id string) bool {
			return !want[id]
		})
	}

	wantKind := make(map[SymbolKind]bool, len(filter.Kinds))
	for _, k := range filter.Kinds {
		wantKind[k] = true
	}
	prefix := normalizePathPrefix(filter.PathPrefix)

	var items []Symbol
	for _, projectID := range projects {
		comp, err := e.GetCompilation(ctx, projectID)
		if err != nil {
			if IsCode(err, ErrCancelled) {
				return nil, err
			}
			continue
		}
		for _, sym := range comp.Symbols {
			if len(wantKind) > 0 && !wantKind[sym.Kind] {
				continue
			}
			if prefix != "" && !strings.HasPrefix(sym.Path, prefix) {
				continue
			}
			if filter.NamePattern != "" && !globMatch(filter.NamePattern, sym.FQN) {
				continue
			}
			items = append(items, sym)
		}
	}

	sortSymbols(items, sort)
	total := len(items)
	if page.Offset >= len(items) {
		items = nil
	} else {
		items = items[page.Offset:]
	}
	if len(items) > page.Limit {
		items = items[:page.Limit]
	}
	return &PagedResult[Symbol]{Items: slices.Clone(items), TotalCount: total}, nil
}

func sortSymbols(items []Symbol, sort Sort) {
	desc := sort.Order == Desc
	slices.SortStableFunc(items, func(a, b Symbol) int {
		var c int
		switch sort.Field {
		case SortByKind:
			c = strings.Compare(string(a.Kind), string(b.Kind))
		case SortByPath:
			c = strings.Compare(a.Path, b.Path)
		}
		if c == 0 {
			c = strings.Compare(a.FQN, b.FQN)
		}
		if c == 0 {
			c = a.Offset - b.Offset
		}
		if desc {
			c = -c
		}
		return c
	})
}

// normalizePathPrefix ensures a path prefix ends with "/" so "internal/x"
// cannot match "internal/xylophone/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// globMatch matches pattern against s where '*' matches any run of
// characters. Matching is case-insensitive.
func globMatch(pattern, s string) bool {
	pattern = strings.ToLower(pattern)
	s = strings.ToLower(s)
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
