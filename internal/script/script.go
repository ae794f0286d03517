// Package script embeds a Risor VM so analysis queries can be written as
// small user scripts instead of built-in query kinds.
//
// A script runs once per document in scope. It sees the document through
// the `doc` global and reports findings through the `emit` host function;
// everything emitted becomes an ordinary query result for the caller.
package script

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// Emission is one finding reported by a script via emit(text [, offset]).
type Emission struct {
	Text   string
	Offset int
}

// Runner evaluates Risor scripts against documents.
type Runner struct {
	scriptsDir string
	fsys       fs.FS
}

// Option configures a Runner.
type Option func(*Runner)

// WithScriptFS loads scripts from an fs.FS instead of from disk.
func WithScriptFS(fsys fs.FS) Option {
	return func(r *Runner) {
		r.fsys = fsys
	}
}

// NewRunner creates a Runner that loads scripts relative to scriptsDir.
func NewRunner(scriptsDir string, opts ...Option) *Runner {
	r := &Runner{scriptsDir: scriptsDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Doc is the document view handed to a script.
type Doc struct {
	ID      string
	Path    string
	Project string
	Text    string
}

// RunScript loads a .risor file and runs it against one document.
func (r *Runner) RunScript(ctx context.Context, scriptPath string, doc Doc) ([]Emission, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.RunSource(ctx, src, doc)
}

// RunSource runs Risor source directly against one document.
func (r *Runner) RunSource(ctx context.Context, source string, doc Doc) ([]Emission, error) {
	var mu sync.Mutex
	var emissions []Emission

	emit := object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("emit: expected 1 or 2 arguments, got %d", len(args))
		}
		text, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("emit: text must be a string, got %s", args[0].Type())
		}
		offset := 0
		if len(args) == 2 {
			off, ok := args[1].(*object.Int)
			if !ok {
				return object.Errorf("emit: offset must be an int, got %s", args[1].Type())
			}
			offset = int(off.Value())
		}
		mu.Lock()
		emissions = append(emissions, Emission{Text: text.Value(), Offset: offset})
		mu.Unlock()
		return object.Nil
	})

	docMap := object.NewMap(map[string]object.Object{
		"id":      object.NewString(doc.ID),
		"path":    object.NewString(doc.Path),
		"project": object.NewString(doc.Project),
		"text":    object.NewString(doc.Text),
	})

	_, err := risor.Eval(ctx, source,
		risor.WithGlobal("doc", docMap),
		risor.WithGlobal("emit", emit),
	)
	if err != nil {
		return nil, fmt.Errorf("script: evaluating against %s: %w", doc.ID, err)
	}
	return emissions, nil
}

// LoadScript reads a .risor file from the configured fs.FS or directory.
func (r *Runner) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := filepath.ToSlash(path)
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("script: loading %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}
	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("script: loading %s: %w", fullPath, err)
	}
	return string(data), nil
}
