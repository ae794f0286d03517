package arbor

import (
	"github.com/jward/arbor/internal/fault"
	"github.com/jward/arbor/internal/meta"
	"github.com/jward/arbor/internal/semantic"
	"github.com/jward/arbor/internal/workspace"
)

// Public type aliases for internal types used across the Engine API.
// These are Go type aliases (=), identical to the internal types at compile
// time; external consumers use these names without conversion.

type Project = workspace.Project
type Document = workspace.Document
type ProjectSpec = workspace.ProjectSpec
type DocumentSpec = workspace.DocumentSpec

type Compilation = semantic.Compilation
type Model = semantic.Model
type Symbol = semantic.Symbol
type SymbolKind = semantic.SymbolKind
type Diagnostic = semantic.Diagnostic

type TypeDescriptor = meta.TypeDescriptor
type MetadataProvider = meta.Provider

// Error is the structured error type returned across the Engine API.
type Error = fault.Error

// ErrorCode identifies a failure category on an Error.
type ErrorCode = fault.Code

const (
	ErrCyclicDependency   = fault.CodeCyclicDependency
	ErrNotFound           = fault.CodeNotFound
	ErrCancelled          = fault.CodeCancelled
	ErrCapacityExceeded   = fault.CodeCapacityExceeded
	ErrPartialLoad        = fault.CodePartialLoad
	ErrCompileDiagnostics = fault.CodeCompileDiagnostics
)

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return fault.Is(err, code)
}
