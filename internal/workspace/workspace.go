// Package workspace tracks the mutable state of an analysis session: which
// projects and documents exist, how projects depend on each other, and which
// version of each entity is current.
//
// Versions are monotonic. Every mutation bumps the affected entities,
// computes the transitive set of dependents whose derived artifacts just
// went stale, and reports that set synchronously through the registered
// InvalidateFunc before the mutation returns. No operation ever observes a
// half-applied mutation.
package workspace

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/jward/arbor/internal/fault"
)

// Workspace is the authoritative registry of projects and documents.
// It is safe for concurrent use; mutations are serialized.
type Workspace struct {
	mu        sync.RWMutex
	clock     int64
	projects  map[string]*Project
	documents map[string]*Document
	// dag holds one edge per resolved dependency, directed from the
	// dependency to its dependent, so topological order is leaves-first.
	dag          graph.Graph[string, string]
	onInvalidate InvalidateFunc
}

// New returns an empty workspace. onInvalidate may be nil.
func New(onInvalidate InvalidateFunc) *Workspace {
	return &Workspace{
		projects:     make(map[string]*Project),
		documents:    make(map[string]*Document),
		dag:          newDAG(),
		onInvalidate: onInvalidate,
	}
}

func newDAG() graph.Graph[string, string] {
	return graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
}

// Load replaces the workspace contents with the given projects. On any
// validation failure (duplicate IDs, dependency cycle) the workspace is
// left unchanged.
func (w *Workspace) Load(specs []ProjectSpec) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadLocked(specs)
}

// Reload replaces the workspace contents and invalidates every artifact
// derived from the previous state.
func (w *Workspace) Reload(specs []ProjectSpec) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	old := Invalidation{}
	for id := range w.projects {
		old.Projects = append(old.Projects, id)
	}
	for id := range w.documents {
		old.Documents = append(old.Documents, id)
	}

	if err := w.loadLocked(specs); err != nil {
		return err
	}
	for id := range w.projects {
		if !slices.Contains(old.Projects, id) {
			old.Projects = append(old.Projects, id)
		}
	}
	for id := range w.documents {
		if !slices.Contains(old.Documents, id) {
			old.Documents = append(old.Documents, id)
		}
	}
	slices.Sort(old.Projects)
	slices.Sort(old.Documents)
	if w.onInvalidate != nil {
		w.onInvalidate(old)
	}
	return nil
}

// loadLocked builds the new state on the side and swaps it in atomically.
func (w *Workspace) loadLocked(specs []ProjectSpec) error {
	projects := make(map[string]*Project, len(specs))
	documents := make(map[string]*Document)
	dag := newDAG()

	for _, spec := range specs {
		if spec.ID == "" {
			return fmt.Errorf("project spec missing ID")
		}
		if _, dup := projects[spec.ID]; dup {
			return fmt.Errorf("duplicate project ID %q", spec.ID)
		}
		w.clock++
		projects[spec.ID] = &Project{
			ID:      spec.ID,
			Name:    spec.Name,
			Deps:    slices.Clone(spec.Deps),
			Version: w.clock,
		}
		if err := dag.AddVertex(spec.ID); err != nil {
			return fmt.Errorf("adding project %s: %w", spec.ID, err)
		}
		for _, doc := range spec.Documents {
			if _, dup := documents[doc.ID]; dup {
				return fmt.Errorf("duplicate document ID %q", doc.ID)
			}
			w.clock++
			documents[doc.ID] = &Document{
				ID:        doc.ID,
				ProjectID: spec.ID,
				Path:      doc.Path,
				Text:      doc.Text,
				Version:   w.clock,
			}
		}
	}

	// Edges only for deps that name a loaded project. Unknown deps stay in
	// Deps and surface as compilation diagnostics instead of load failures.
	for _, spec := range specs {
		for _, dep := range spec.Deps {
			if _, ok := projects[dep]; !ok {
				continue
			}
			if err := dag.AddEdge(dep, spec.ID); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return fault.New(fault.CodeCyclicDependency,
						"dependency %s -> %s creates a cycle", spec.ID, dep)
				}
				if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					return fmt.Errorf("adding dependency edge %s -> %s: %w", dep, spec.ID, err)
				}
			}
		}
	}

	w.projects = projects
	w.documents = documents
	w.dag = dag
	return nil
}

// AddProject adds a single project (and its documents) to the workspace.
func (w *Workspace) AddProject(spec ProjectSpec) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if spec.ID == "" {
		return fmt.Errorf("project spec missing ID")
	}
	if _, dup := w.projects[spec.ID]; dup {
		return fmt.Errorf("duplicate project ID %q", spec.ID)
	}
	for _, doc := range spec.Documents {
		if _, dup := w.documents[doc.ID]; dup {
			return fmt.Errorf("duplicate document ID %q", doc.ID)
		}
	}
	if err := w.dag.AddVertex(spec.ID); err != nil {
		return fmt.Errorf("adding project %s: %w", spec.ID, err)
	}

	// Every edge goes in before any state is committed, so a cycle found
	// anywhere rolls the whole mutation back.
	var added [][2]string
	rollback := func() {
		for _, e := range added {
			_ = w.dag.RemoveEdge(e[0], e[1])
		}
		_ = w.dag.RemoveVertex(spec.ID)
	}
	for _, dep := range spec.Deps {
		if _, ok := w.projects[dep]; !ok {
			continue
		}
		if err := w.dag.AddEdge(dep, spec.ID); err != nil {
			rollback()
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return fault.New(fault.CodeCyclicDependency,
					"dependency %s -> %s creates a cycle", spec.ID, dep)
			}
			return fmt.Errorf("adding dependency edge %s -> %s: %w", dep, spec.ID, err)
		}
		added = append(added, [2]string{dep, spec.ID})
	}

	// The new project can satisfy previously unresolved deps of existing
	// ones; those edges can close a cycle too.
	var dependents []string
	for id, p := range w.projects {
		if slices.Contains(p.Deps, spec.ID) {
			dependents = append(dependents, id)
		}
	}
	slices.Sort(dependents)
	for _, id := range dependents {
		if err := w.dag.AddEdge(spec.ID, id); err != nil {
			if errors.Is(err, graph.ErrEdgeAlreadyExists) {
				continue
			}
			rollback()
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return fault.New(fault.CodeCyclicDependency,
					"dependency %s -> %s creates a cycle", id, spec.ID)
			}
			return fmt.Errorf("linking dependent %s: %w", id, err)
		}
		added = append(added, [2]string{spec.ID, id})
	}

	w.clock++
	w.projects[spec.ID] = &Project{
		ID:      spec.ID,
		Name:    spec.Name,
		Deps:    slices.Clone(spec.Deps),
		Version: w.clock,
	}
	for _, doc := range spec.Documents {
		w.clock++
		w.documents[doc.ID] = &Document{
			ID:        doc.ID,
			ProjectID: spec.ID,
			Path:      doc.Path,
			Text:      doc.Text,
			Version:   w.clock,
		}
	}
	for _, id := range dependents {
		w.clock++
		w.projects[id].Version = w.clock
	}
	w.fanoutLocked(spec.ID, nil)
	return nil
}

// RemoveProject removes a project and its documents. Projects that depend
// on it keep the dependency name and report it as unresolved from now on.
func (w *Workspace) RemoveProject(projectID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.projects[projectID]; !ok {
		return fault.New(fault.CodeNotFound, "project %s not found", projectID)
	}
	// Capture the blast radius before the vertex disappears.
	affected := w.transitiveDependentsLocked(projectID)

	adj, err := w.dag.AdjacencyMap()
	if err != nil {
		return fmt.Errorf("reading dependency graph: %w", err)
	}
	pred, err := w.dag.PredecessorMap()
	if err != nil {
		return fmt.Errorf("reading dependency graph: %w", err)
	}
	for target := range adj[projectID] {
		_ = w.dag.RemoveEdge(projectID, target)
	}
	for source := range pred[projectID] {
		_ = w.dag.RemoveEdge(source, projectID)
	}
	if err := w.dag.RemoveVertex(projectID); err != nil {
		return fmt.Errorf("removing project %s: %w", projectID, err)
	}

	removedDocs := []string{}
	for id, doc := range w.documents {
		if doc.ProjectID == projectID {
			removedDocs = append(removedDocs, id)
			delete(w.documents, id)
		}
	}
	delete(w.projects, projectID)

	for _, id := range affected {
		if p, ok := w.projects[id]; ok {
			w.clock++
			p.Version = w.clock
		}
	}

	inv := Invalidation{Projects: append(affected, projectID), Documents: removedDocs}
	for _, id := range inv.Projects {
		inv.Documents = append(inv.Documents, w.documentIDsOfLocked(id)...)
	}
	slices.Sort(inv.Projects)
	slices.Sort(inv.Documents)
	if w.onInvalidate != nil {
		w.onInvalidate(inv)
	}
	return nil
}

// AddDocument adds a document to an existing project.
func (w *Workspace) AddDocument(projectID string, spec DocumentSpec) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.projects[projectID]
	if !ok {
		return fault.New(fault.CodeNotFound, "project %s not found", projectID)
	}
	if _, dup := w.documents[spec.ID]; dup {
		return fmt.Errorf("duplicate document ID %q", spec.ID)
	}
	w.clock++
	w.documents[spec.ID] = &Document{
		ID:        spec.ID,
		ProjectID: projectID,
		Path:      spec.Path,
		Text:      spec.Text,
		Version:   w.clock,
	}
	w.clock++
	p.Version = w.clock
	w.fanoutLocked(projectID, nil)
	return nil
}

// UpdateDocumentText replaces a document's text and bumps its version.
func (w *Workspace) UpdateDocumentText(docID, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.documents[docID]
	if !ok {
		return fault.New(fault.CodeNotFound, "document %s not found", docID)
	}
	doc.Text = text
	w.clock++
	doc.Version = w.clock
	p := w.projects[doc.ProjectID]
	w.clock++
	p.Version = w.clock
	w.fanoutLocked(doc.ProjectID, nil)
	return nil
}

// RemoveDocument removes a document from its project.
func (w *Workspace) RemoveDocument(docID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.documents[docID]
	if !ok {
		return fault.New(fault.CodeNotFound, "document %s not found", docID)
	}
	delete(w.documents, docID)
	p := w.projects[doc.ProjectID]
	w.clock++
	p.Version = w.clock
	w.fanoutLocked(doc.ProjectID, []string{docID})
	return nil
}

// Touch invalidates an entity's derived artifacts without changing its
// version. The entity may be a project or a document ID.
func (w *Workspace) Touch(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.projects[id]; ok {
		w.fanoutLocked(id, nil)
		return nil
	}
	if doc, ok := w.documents[id]; ok {
		w.fanoutLocked(doc.ProjectID, nil)
		return nil
	}
	return fault.New(fault.CodeNotFound, "no project or document %s", id)
}

// fanoutLocked reports the invalidation set rooted at projectID: the project
// itself, its transitive dependents, and every document of those projects.
func (w *Workspace) fanoutLocked(projectID string, extraDocs []string) {
	if w.onInvalidate == nil {
		return
	}
	projects := append(w.transitiveDependentsLocked(projectID), projectID)
	docs := slices.Clone(extraDocs)
	for _, id := range projects {
		docs = append(docs, w.documentIDsOfLocked(id)...)
	}
	slices.Sort(projects)
	slices.Sort(docs)
	w.onInvalidate(Invalidation{Projects: projects, Documents: docs})
}

func (w *Workspace) documentIDsOfLocked(projectID string) []string {
	var ids []string
	for id, doc := range w.documents {
		if doc.ProjectID == projectID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (w *Workspace) transitiveDependentsLocked(projectID string) []string {
	adj, err := w.dag.AdjacencyMap()
	if err != nil {
		return nil
	}
	seen := map[string]bool{projectID: true}
	queue := []string{projectID}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range adj[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	slices.Sort(out)
	return out
}

// Project returns a copy of the project with the given ID.
func (w *Workspace) Project(id string) (Project, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.projects[id]
	if !ok {
		return Project{}, fault.New(fault.CodeNotFound, "project %s not found", id)
	}
	cp := *p
	cp.Deps = slices.Clone(p.Deps)
	return cp, nil
}

// Document returns a copy of the document with the given ID.
func (w *Workspace) Document(id string) (Document, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.documents[id]
	if !ok {
		return Document{}, fault.New(fault.CodeNotFound, "document %s not found", id)
	}
	return *doc, nil
}

// DocumentsOf returns the project's documents ordered by path.
func (w *Workspace) DocumentsOf(projectID string) ([]Document, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.projects[projectID]; !ok {
		return nil, fault.New(fault.CodeNotFound, "project %s not found", projectID)
	}
	var docs []Document
	for _, doc := range w.documents {
		if doc.ProjectID == projectID {
			docs = append(docs, *doc)
		}
	}
	slices.SortFunc(docs, func(a, b Document) int {
		if a.Path != b.Path {
			if a.Path < b.Path {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		return 1
	})
	return docs, nil
}

// DependencyOrder returns all project IDs, dependencies before dependents,
// ties broken lexically. The order is deterministic for a given workspace.
func (w *Workspace) DependencyOrder() ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dependencyOrderLocked()
}

func (w *Workspace) dependencyOrderLocked() ([]string, error) {
	order, err := graph.StableTopologicalSort(w.dag, func(a, b string) bool {
		return a < b
	})
	if err != nil {
		return nil, fmt.Errorf("sorting dependency graph: %w", err)
	}
	return order, nil
}

// Dependents returns the transitive dependents of a project, sorted.
func (w *Workspace) Dependents(projectID string) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.projects[projectID]; !ok {
		return nil, fault.New(fault.CodeNotFound, "project %s not found", projectID)
	}
	return w.transitiveDependentsLocked(projectID), nil
}

// CompilationVersion returns the composite version of a project's
// compilation: a hash over the project's own version and, in sorted order,
// the compilation versions of its resolved dependencies. Any change in a
// dependency chain changes this value, so a cached compilation can never be
// served across a dependency edit.
func (w *Workspace) CompilationVersion(projectID string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	memo := make(map[string]string)
	return w.compilationVersionLocked(projectID, memo, make(map[string]bool))
}

func (w *Workspace) compilationVersionLocked(projectID string, memo map[string]string, visiting map[string]bool) (string, error) {
	if v, ok := memo[projectID]; ok {
		return v, nil
	}
	// Mutations reject cycles, so this only trips if the graph is ever
	// corrupted; an error beats unbounded recursion.
	if visiting[projectID] {
		return "", fault.New(fault.CodeCyclicDependency,
			"dependency cycle through %s", projectID)
	}
	visiting[projectID] = true
	defer delete(visiting, projectID)
	p, ok := w.projects[projectID]
	if !ok {
		return "", fault.New(fault.CodeNotFound, "project %s not found", projectID)
	}
	h := sha256.New()
	fmt.Fprintf(h, "project:%s@%d\n", p.ID, p.Version)
	deps := slices.Clone(p.Deps)
	slices.Sort(deps)
	for _, dep := range deps {
		if _, ok := w.projects[dep]; !ok {
			fmt.Fprintf(h, "dep:%s:unresolved\n", dep)
			continue
		}
		dv, err := w.compilationVersionLocked(dep, memo, visiting)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "dep:%s:%s\n", dep, dv)
	}
	v := fmt.Sprintf("%x", h.Sum(nil))
	memo[projectID] = v
	return v, nil
}

// ModelVersion returns the version pair guarding a document's semantic
// model: the document's own version and its project's compilation version.
func (w *Workspace) ModelVersion(docID string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.documents[docID]
	if !ok {
		return "", fault.New(fault.CodeNotFound, "document %s not found", docID)
	}
	memo := make(map[string]string)
	cv, err := w.compilationVersionLocked(doc.ProjectID, memo, make(map[string]bool))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%s", doc.Version, cv), nil
}
