// Package arbor maintains the live state of an analysis workspace and the
// caches derived from it: compiled project units, per-document semantic
// models, and an index of external type metadata. On top of that state it
// resolves fully qualified names and runs parallel analysis queries with
// deterministic results.
//
// # Workspace
//
// A workspace holds projects, each owning documents. Projects declare
// dependencies on each other; the dependency graph must stay acyclic and
// every entity carries a monotonically increasing version. Mutations
// ([Engine.UpdateDocumentText], [Engine.AddDocument], and friends)
// synchronously invalidate every cached artifact downstream of the change,
// so a query issued after a mutation can never observe a stale artifact.
//
// # Artifacts
//
// Compilations and semantic models are built lazily, cached under a byte
// budget with LRU eviction, and keyed by composite versions that cover the
// whole dependency chain. Concurrent requests for the same artifact share a
// single build. A compilation with problems is still produced: diagnostics
// ride on the artifact instead of failing the build.
//
// # Usage
//
// Create an Engine, load projects, and query:
//
//	e, err := arbor.New()
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.Load([]arbor.ProjectSpec{{
//	    ID:   "core",
//	    Documents: []arbor.DocumentSpec{{ID: "core/a", Path: "a.go", Text: src}},
//	}})
//
//	matches, err := e.ResolveSymbol(ctx, "core.Circle", 5)
//	res, err := e.RunQuery(ctx, arbor.Query{Kind: arbor.QuerySearch, Needle: "radius"}, arbor.Scope{})
//
// # Resolution
//
// [Engine.ResolveSymbol] unifies workspace symbols with external type
// metadata loaded on demand through a [MetadataProvider]. Exact matches in
// source always win over external definitions; fuzzy matching applies only
// when no exact match exists and ranks candidates under a total order, so
// resolution is deterministic.
//
// # Queries
//
// [Engine.RunQuery] fans a query kind (search, similarity, complexity, or
// a Risor script) out over the scoped documents with one bounded worker
// pool, throttled under memory pressure. Per-document failures land in a
// manifest without aborting the run, and results are ordered by document
// identity and position, never by completion order.
package arbor
