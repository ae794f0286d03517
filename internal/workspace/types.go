package workspace

// ProjectSpec describes a project to load into a workspace.
type ProjectSpec struct {
	ID        string
	Name      string
	Deps      []string
	Documents []DocumentSpec
}

// DocumentSpec describes a document to load into a project.
type DocumentSpec struct {
	ID   string
	Path string
	Text string
}

// Project is a named compilation unit inside the workspace.
type Project struct {
	ID      string
	Name    string
	Deps    []string
	Version int64
}

// Document is a single text document owned by a project.
type Document struct {
	ID        string
	ProjectID string
	Path      string
	Text      string
	Version   int64
}

// Invalidation lists the entities whose derived artifacts became stale as
// the result of one workspace mutation.
type Invalidation struct {
	Projects  []string
	Documents []string
}

// InvalidateFunc receives invalidation sets synchronously, before the
// mutation that produced them returns.
type InvalidateFunc func(Invalidation)
