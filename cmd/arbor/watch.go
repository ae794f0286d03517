package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var watchCmd = &cobra.Command{
	Use:   "watch [kind [needle]]",
	Short: "Watch project roots and react to edits",
	Long: `Watches every project root for file changes, feeds edits into the
workspace, and reports after each change. With a query kind (and needle),
the query is re-run after every change; without one, changed projects are
recompiled and their diagnostics printed. Stop with Ctrl-C.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Float64Var(&flagMinScore, "min-score", 0, "similarity score floor")
	watchCmd.Flags().StringVar(&flagScriptPath, "script", "", "path of the Risor script for script queries")
}

// watchedRoot maps an absolute project root to its project name.
type watchedRoot struct {
	root    string
	project string
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, wf, err := openEngine()
	if err != nil {
		return outputError("watch", err)
	}
	defer engine.Close()

	var query *arbor.Query
	if len(args) > 0 {
		q := arbor.Query{Kind: arbor.QueryKind(args[0]), MinScore: flagMinScore, ScriptPath: flagScriptPath}
		if len(args) > 1 {
			q.Needle = args[1]
		}
		query = &q
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return outputError("watch", fmt.Errorf("creating watcher: %w", err))
	}
	defer watcher.Close()

	baseDir := filepath.Dir(flagWorkspace)
	roots := make([]watchedRoot, 0, len(wf.Projects))
	for _, p := range wf.Projects {
		root := p.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(baseDir, root)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return outputError("watch", err)
		}
		roots = append(roots, watchedRoot{root: abs, project: p.Name})
		if err := watchTree(watcher, abs); err != nil {
			return outputError("watch", err)
		}
	}
	// Longest root first so nested roots resolve to the inner project.
	sort.Slice(roots, func(i, j int) bool { return len(roots[i].root) > len(roots[j].root) })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Watching %d project roots\n", len(roots))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %s\n", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed, err := applyEvent(engine, watcher, roots, ev)
			if err != nil {
				fmt.Fprintf(os.Stderr, "applying %s: %s\n", ev, err)
				continue
			}
			if changed == "" {
				continue
			}
			if err := reportChange(ctx, engine, query, changed); err != nil {
				fmt.Fprintf(os.Stderr, "reporting: %s\n", err)
			}
		}
	}
}

// watchTree registers path and every non-skipped directory under it.
func watchTree(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

// applyEvent feeds one filesystem event into the workspace and returns the
// affected project ID, or "" when the event was irrelevant.
func applyEvent(engine *arbor.Engine, watcher *fsnotify.Watcher, roots []watchedRoot, ev fsnotify.Event) (string, error) {
	var owner *watchedRoot
	for i := range roots {
		if strings.HasPrefix(ev.Name, roots[i].root+string(os.PathSeparator)) {
			owner = &roots[i]
			break
		}
	}
	if owner == nil {
		return "", nil
	}
	rel, err := filepath.Rel(owner.root, ev.Name)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return "", nil
	}
	docID := owner.project + "/" + rel

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		if err := engine.RemoveDocument(docID); err != nil {
			if arbor.IsCode(err, arbor.ErrNotFound) {
				return "", nil
			}
			return "", err
		}
		return owner.project, nil

	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			// Gone already; the Remove event will follow.
			return "", nil
		}
		if info.IsDir() {
			if ev.Op.Has(fsnotify.Create) && !skipDir(filepath.Base(ev.Name)) {
				return "", watchTree(watcher, ev.Name)
			}
			return "", nil
		}
		data, err := os.ReadFile(ev.Name)
		if err != nil {
			return "", err
		}
		if err := engine.UpdateDocumentText(docID, string(data)); err != nil {
			if !arbor.IsCode(err, arbor.ErrNotFound) {
				return "", err
			}
			err = engine.AddDocument(owner.project, arbor.DocumentSpec{
				ID:   docID,
				Path: rel,
				Text: string(data),
			})
			if err != nil {
				return "", err
			}
		}
		return owner.project, nil
	}
	return "", nil
}

// reportChange re-runs the configured query, or recompiles the changed
// project, and prints the outcome.
func reportChange(ctx context.Context, engine *arbor.Engine, query *arbor.Query, projectID string) error {
	if query != nil {
		res, err := engine.RunQuery(ctx, *query, arbor.Scope{})
		if err != nil {
			return err
		}
		return outputResult(CLIResult{Command: "watch", Results: queryRunToCLI(res)})
	}
	comp, err := engine.GetCompilation(ctx, projectID)
	if err != nil {
		return err
	}
	return outputResult(CLIResult{Command: "watch", Results: []CLICompilation{compilationToCLI(comp)}})
}
