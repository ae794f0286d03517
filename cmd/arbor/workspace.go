package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/arbor"
)

// WorkspaceFile is the on-disk workspace description (arbor.yml).
type WorkspaceFile struct {
	Projects []ProjectEntry `yaml:"projects"`
	Config   arbor.Config   `yaml:"config"`
}

// ProjectEntry declares one project: a name, a root directory whose files
// become the project's documents, and the names of the projects it depends
// on.
type ProjectEntry struct {
	Name string   `yaml:"name"`
	Root string   `yaml:"root"`
	Deps []string `yaml:"deps"`
}

// loadWorkspaceFile parses an arbor.yml.
func loadWorkspaceFile(path string) (*WorkspaceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workspace file: %w", err)
	}
	var wf WorkspaceFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(wf.Projects) == 0 {
		return nil, fmt.Errorf("%s declares no projects", path)
	}
	seen := make(map[string]bool, len(wf.Projects))
	for _, p := range wf.Projects {
		if p.Name == "" || p.Root == "" {
			return nil, fmt.Errorf("%s: every project needs a name and a root", path)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%s: duplicate project %q", path, p.Name)
		}
		seen[p.Name] = true
	}
	return &wf, nil
}

// skipDir reports directories excluded from document discovery.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	return name == "vendor" || name == "node_modules"
}

// discoverDocuments walks a project root and returns one DocumentSpec per
// regular file, in path order. Document IDs are "<project>/<relative path>".
func discoverDocuments(projectName, root string) ([]arbor.DocumentSpec, error) {
	var docs []arbor.DocumentSpec
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		docs = append(docs, arbor.DocumentSpec{
			ID:   projectName + "/" + rel,
			Path: rel,
			Text: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// buildSpecs turns a workspace file into project specs, discovering each
// project's documents. Roots are resolved relative to the workspace file.
func buildSpecs(wf *WorkspaceFile, baseDir string) ([]arbor.ProjectSpec, error) {
	specs := make([]arbor.ProjectSpec, 0, len(wf.Projects))
	for _, p := range wf.Projects {
		root := p.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(baseDir, root)
		}
		docs, err := discoverDocuments(p.Name, root)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}
		specs = append(specs, arbor.ProjectSpec{
			ID:        p.Name,
			Name:      p.Name,
			Deps:      p.Deps,
			Documents: docs,
		})
	}
	return specs, nil
}

// openEngine loads the workspace file, discovers documents, and returns a
// ready engine. Callers own Close.
func openEngine() (*arbor.Engine, *WorkspaceFile, error) {
	wf, err := loadWorkspaceFile(flagWorkspace)
	if err != nil {
		return nil, nil, err
	}
	baseDir := filepath.Dir(flagWorkspace)

	opts := []arbor.Option{arbor.WithConfig(wf.Config)}
	if logger := newLogger(); logger != nil {
		opts = append(opts, arbor.WithLogger(logger))
	}
	engine, err := arbor.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}

	specs, err := buildSpecs(wf, baseDir)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	if err := engine.Load(specs); err != nil {
		engine.Close()
		return nil, nil, fmt.Errorf("loading workspace: %w", err)
	}
	return engine, wf, nil
}
