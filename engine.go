package arbor

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/jward/arbor/internal/cache"
	"github.com/jward/arbor/internal/fault"
	"github.com/jward/arbor/internal/meta"
	"github.com/jward/arbor/internal/script"
	"github.com/jward/arbor/internal/semantic"
	"github.com/jward/arbor/internal/workspace"
)

// Engine orchestrates workspace state, the artifact caches, symbol
// resolution, and the parallel query pipeline.
type Engine struct {
	cfg    Config
	logger *log.Logger

	ws     *workspace.Workspace
	comps  *cache.Cache[*semantic.Compilation]
	models *cache.Cache[*semantic.Model]

	metaStore *meta.Store
	metadata  *meta.Loader
	provider  meta.Provider

	scripts   *script.Runner
	scriptsFS fs.FS

	// loadFactor samples ambient memory pressure in [0,1]. Sampled once per
	// query run to size the worker pool.
	loadFactor func() float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration. Zero fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetadataProvider wires the source of external type metadata. Without
// a provider, resolution sees only workspace symbols.
func WithMetadataProvider(p MetadataProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithScriptsFS loads query scripts from the given filesystem instead of
// the configured scripts directory. Enables go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLoadFactor supplies the memory-pressure sample used to throttle query
// concurrency. The default reports no pressure.
func WithLoadFactor(f func() float64) Option {
	return func(e *Engine) {
		e.loadFactor = f
	}
}

// New creates an Engine with an empty workspace.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:        DefaultConfig(),
		logger:     log.New(io.Discard),
		loadFactor: func() float64 { return 0 },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.applyDefaults()

	var err error
	e.comps, err = cache.New[*semantic.Compilation](e.cfg.CacheBudgetBytes, e.cfg.MaxArtifactBytes, e.logger)
	if err != nil {
		return nil, fmt.Errorf("arbor: compilation cache: %w", err)
	}
	e.models, err = cache.New[*semantic.Model](e.cfg.ModelBudgetBytes, e.cfg.MaxArtifactBytes, e.logger)
	if err != nil {
		return nil, fmt.Errorf("arbor: model cache: %w", err)
	}

	e.metaStore, err = meta.NewStore(e.cfg.MetadataDB)
	if err != nil {
		return nil, fmt.Errorf("arbor: metadata store: %w", err)
	}
	if err := e.metaStore.Migrate(); err != nil {
		e.metaStore.Close()
		return nil, fmt.Errorf("arbor: metadata migrate: %w", err)
	}
	e.metadata = meta.NewLoader(e.metaStore, e.provider, e.logger)

	var scriptOpts []script.Option
	if e.scriptsFS != nil {
		scriptOpts = append(scriptOpts, script.WithScriptFS(e.scriptsFS))
	}
	e.scripts = script.NewRunner(e.cfg.ScriptsDir, scriptOpts...)

	// Mutations report their invalidation set synchronously; evicting here
	// guarantees no query started after the mutation sees a stale artifact.
	e.ws = workspace.New(func(inv workspace.Invalidation) {
		for _, id := range inv.Projects {
			e.comps.Invalidate(compKey(id))
		}
		for _, id := range inv.Documents {
			e.models.Invalidate(modelKey(id))
		}
		e.logger.Debug("invalidated artifacts",
			"projects", len(inv.Projects), "documents", len(inv.Documents))
	})
	return e, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	e.comps.Reset()
	e.models.Reset()
	return e.metaStore.Close()
}

// Workspace exposes the underlying workspace for direct state access.
func (e *Engine) Workspace() *workspace.Workspace {
	return e.ws
}

// Metadata exposes the external type metadata loader.
func (e *Engine) Metadata() *meta.Loader {
	return e.metadata
}

// Load replaces the workspace with the given projects.
func (e *Engine) Load(specs []ProjectSpec) error {
	if err := e.ws.Load(specs); err != nil {
		return err
	}
	e.comps.Reset()
	e.models.Reset()
	e.logger.Info("workspace loaded", "projects", len(specs))
	return nil
}

// Reload replaces the workspace and invalidates all derived artifacts.
func (e *Engine) Reload(specs []ProjectSpec) error {
	if err := e.ws.Reload(specs); err != nil {
		return err
	}
	e.logger.Info("workspace reloaded", "projects", len(specs))
	return nil
}

// AddProject adds one project to the workspace.
func (e *Engine) AddProject(spec ProjectSpec) error {
	return e.ws.AddProject(spec)
}

// RemoveProject removes a project and everything it owns.
func (e *Engine) RemoveProject(projectID string) error {
	return e.ws.RemoveProject(projectID)
}

// AddDocument adds a document to an existing project.
func (e *Engine) AddDocument(projectID string, spec DocumentSpec) error {
	return e.ws.AddDocument(projectID, spec)
}

// UpdateDocumentText replaces a document's text, invalidating its model and
// every compilation downstream of its project.
func (e *Engine) UpdateDocumentText(docID, text string) error {
	return e.ws.UpdateDocumentText(docID, text)
}

// RemoveDocument removes a document from its project.
func (e *Engine) RemoveDocument(docID string) error {
	return e.ws.RemoveDocument(docID)
}

// Invalidate drops the cached artifacts of a project or document without
// changing its version. The next access rebuilds them.
func (e *Engine) Invalidate(id string) error {
	return e.ws.Touch(id)
}

func compKey(projectID string) string {
	return "comp/" + projectID
}

func modelKey(docID string) string {
	return "model/" + docID
}

// GetCompilation returns the project's compilation, building it (and its
// dependency compilations) on demand. Diagnostics ride on the artifact;
// only unknown projects and cancellation fail the call.
func (e *Engine) GetCompilation(ctx context.Context, projectID string) (*Compilation, error) {
	version, err := e.ws.CompilationVersion(projectID)
	if err != nil {
		return nil, err
	}
	return e.comps.GetOrBuild(ctx, compKey(projectID), version,
		func(ctx context.Context) (*semantic.Compilation, int64, error) {
			return e.buildCompilation(ctx, projectID, version)
		})
}

func (e *Engine) buildCompilation(ctx context.Context, projectID, version string) (*semantic.Compilation, int64, error) {
	p, err := e.ws.Project(projectID)
	if err != nil {
		return nil, 0, err
	}
	// Dependencies compile first, through the same cache, so shared deps in
	// a diamond build exactly once.
	var unresolved []string
	for _, dep := range p.Deps {
		if _, err := e.ws.Project(dep); err != nil {
			unresolved = append(unresolved, dep)
			continue
		}
		if _, err := e.GetCompilation(ctx, dep); err != nil {
			if fault.Is(err, fault.CodeCancelled) {
				return nil, 0, err
			}
			unresolved = append(unresolved, dep)
		}
	}

	wsDocs, err := e.ws.DocumentsOf(projectID)
	if err != nil {
		return nil, 0, err
	}
	docs := make([]semantic.DocumentInput, len(wsDocs))
	for i, d := range wsDocs {
		docs[i] = semantic.DocumentInput{ID: d.ID, Path: d.Path, Text: d.Text}
	}

	comp, err := semantic.BuildCompilation(ctx, projectID, version, docs, unresolved)
	if err != nil {
		return nil, 0, err
	}
	if comp.Partial {
		e.logger.Debug("compilation is partial",
			"project", projectID, "diagnostics", len(comp.Diagnostics),
			"code", fault.CodeCompileDiagnostics)
	}
	return comp, comp.Size(), nil
}

// GetSemanticModel returns the per-document model, building it on demand.
func (e *Engine) GetSemanticModel(ctx context.Context, docID string) (*Model, error) {
	version, err := e.ws.ModelVersion(docID)
	if err != nil {
		return nil, err
	}
	return e.models.GetOrBuild(ctx, modelKey(docID), version,
		func(ctx context.Context) (*semantic.Model, int64, error) {
			doc, err := e.ws.Document(docID)
			if err != nil {
				return nil, 0, err
			}
			m, err := semantic.BuildModel(ctx, doc.ProjectID, version,
				semantic.DocumentInput{ID: doc.ID, Path: doc.Path, Text: doc.Text})
			if err != nil {
				return nil, 0, err
			}
			return m, m.Size(), nil
		})
}

// CacheStats reports the current cache occupancy.
type CacheStats struct {
	Compilations     int
	CompilationBytes int64
	Models           int
	ModelBytes       int64
}

// Stats returns the engine's cache occupancy.
func (e *Engine) Stats() CacheStats {
	return CacheStats{
		Compilations:     e.comps.Len(),
		CompilationBytes: e.comps.TotalSize(),
		Models:           e.models.Len(),
		ModelBytes:       e.models.TotalSize(),
	}
}
