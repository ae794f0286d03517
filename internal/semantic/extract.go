package semantic

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// extractable reports whether a document gets full symbol extraction.
// Everything else still contributes a token index to queries.
func extractable(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".go"
}

// extractGo parses src as Go and returns its declared symbols. A document
// with syntax errors still yields the symbols that could be read, plus a
// diagnostic per damaged region.
func extractGo(ctx context.Context, docID, path string, src []byte) ([]Symbol, []Diagnostic, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ns := packageName(root, src)

	var symbols []Symbol
	var diags []Diagnostic

	add := func(node *sitter.Node, name string, kind SymbolKind, fqn string) {
		pt := node.StartPoint()
		symbols = append(symbols, Symbol{
			FQN:        fqn,
			Name:       name,
			Kind:       kind,
			DocumentID: docID,
			Path:       path,
			Offset:     int(node.StartByte()),
			Line:       int(pt.Row) + 1,
			Col:        int(pt.Column) + 1,
		})
	}
	qualify := func(parts ...string) string {
		all := parts
		if ns != "" {
			all = append([]string{ns}, parts...)
		}
		return strings.Join(all, ".")
	}

	for i := range int(root.NamedChildCount()) {
		decl := root.NamedChild(i)
		switch decl.Type() {
		case "function_declaration":
			if name := decl.ChildByFieldName("name"); name != nil {
				add(decl, name.Content(src), KindFunction, qualify(name.Content(src)))
			}
		case "method_declaration":
			name := decl.ChildByFieldName("name")
			if name == nil {
				continue
			}
			recv := receiverTypeName(decl, src)
			if recv == "" {
				add(decl, name.Content(src), KindMethod, qualify(name.Content(src)))
				continue
			}
			add(decl, name.Content(src), KindMethod, qualify(recv, name.Content(src)))
		case "type_declaration":
			for j := range int(decl.NamedChildCount()) {
				spec := decl.NamedChild(j)
				if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					add(spec, name.Content(src), KindType, qualify(name.Content(src)))
				}
			}
		case "const_declaration":
			for _, name := range specNames(decl, "const_spec", src) {
				add(decl, name, KindConst, qualify(name))
			}
		case "var_declaration":
			for _, name := range specNames(decl, "var_spec", src) {
				add(decl, name, KindVar, qualify(name))
			}
		}
	}

	if root.HasError() {
		line, col := 1, 1
		if errNode := firstErrorNode(root); errNode != nil {
			pt := errNode.StartPoint()
			line, col = int(pt.Row)+1, int(pt.Column)+1
		}
		diags = append(diags, Diagnostic{
			DocumentID: docID,
			Severity:   SeverityError,
			Message:    fmt.Sprintf("syntax error in %s", path),
			Line:       line,
			Col:        col,
		})
	}
	return symbols, diags, nil
}

func packageName(root *sitter.Node, src []byte) string {
	for i := range int(root.NamedChildCount()) {
		child := root.NamedChild(i)
		if child.Type() != "package_clause" {
			continue
		}
		for j := range int(child.NamedChildCount()) {
			if id := child.NamedChild(j); id.Type() == "package_identifier" {
				return id.Content(src)
			}
		}
	}
	return ""
}

// receiverTypeName extracts the receiver's base type name, with pointer
// markers and type parameters stripped.
func receiverTypeName(decl *sitter.Node, src []byte) string {
	recv := decl.ChildByFieldName("receiver")
	if recv == nil || recv.NamedChildCount() == 0 {
		return ""
	}
	param := recv.NamedChild(0)
	typ := param.ChildByFieldName("type")
	if typ == nil {
		return ""
	}
	name := typ.Content(src)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.IndexByte(name, '['); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// specNames collects the declared identifiers of const/var spec groups.
func specNames(decl *sitter.Node, specType string, src []byte) []string {
	var names []string
	for i := range int(decl.NamedChildCount()) {
		spec := decl.NamedChild(i)
		if spec.Type() != specType {
			continue
		}
		for j := range int(spec.NamedChildCount()) {
			child := spec.NamedChild(j)
			if child.Type() == "identifier" {
				names = append(names, child.Content(src))
			}
		}
	}
	return names
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := range int(node.ChildCount()) {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
