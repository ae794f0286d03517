// Package meta loads and indexes type metadata from external, read-only
// modules (dependencies the workspace consumes but does not compile).
//
// Modules are indexed lazily: the first lookup that needs a module reads it
// through the Provider and commits its types to a SQLite index. External
// metadata is immutable for the lifetime of a session, is shared across
// projects, and is never evicted; Reset drops the whole index.
//
// A module that is only partially readable still contributes its readable
// types. Damaged entries are recorded as unreachable and counted, never
// raised as a load error.
package meta

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/jward/arbor/internal/fault"
)

// TypeDescriptor is an immutable description of one external type.
type TypeDescriptor struct {
	FQN       string
	Module    string
	Members   []Member
	Reachable bool
}

// Member is a named member of an external type.
type Member struct {
	Name      string
	Signature string
}

// RawType is one type as read from a module. A damaged entry carries Err;
// its FQN may be empty when even the name could not be decoded.
type RawType struct {
	FQN     string
	Members []Member
	Err     error
}

// Provider supplies the external modules visible to a session.
type Provider interface {
	// Modules lists the module names available to this session.
	Modules(ctx context.Context) ([]string, error)
	// Read returns every type of a module, readable or not.
	Read(ctx context.Context, module string) ([]RawType, error)
}

// Loader resolves external type metadata on demand.
// It is safe for concurrent use.
type Loader struct {
	store    *Store
	provider Provider
	flight   singleflight.Group
	logger   *log.Logger

	mu      sync.Mutex
	indexed map[string]bool
}

// NewLoader creates a loader over the given store and provider.
// provider may be nil, in which case every lookup misses.
func NewLoader(store *Store, provider Provider, logger *log.Logger) *Loader {
	return &Loader{
		store:    store,
		provider: provider,
		logger:   logger,
		indexed:  make(map[string]bool),
	}
}

// Resolve returns the descriptor for fqn, indexing the owning module first
// if needed. An unknown name returns (nil, nil), not an error.
func (l *Loader) Resolve(ctx context.Context, fqn string) (*TypeDescriptor, error) {
	if l.provider == nil {
		return l.store.getType(fqn)
	}
	modules, err := l.provider.Modules(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing metadata modules: %w", err)
	}
	for _, m := range modules {
		if fqn == m || strings.HasPrefix(fqn, m+".") {
			if err := l.ensureModule(ctx, m); err != nil {
				return nil, err
			}
		}
	}
	td, err := l.store.getType(fqn)
	if td != nil || err != nil {
		return td, err
	}
	// A module's types need not live under the module's own name. On a
	// miss, index the remaining modules and look once more; indexing is
	// memoized, so this costs nothing after the first time.
	for _, m := range modules {
		if err := l.ensureModule(ctx, m); err != nil {
			return nil, err
		}
	}
	return l.store.getType(fqn)
}

// AllKnownNames yields every indexed FQN in lexical order, indexing all
// modules first. Iteration stops early when ctx is cancelled.
func (l *Loader) AllKnownNames(ctx context.Context) (iter.Seq[string], error) {
	if l.provider != nil {
		modules, err := l.provider.Modules(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing metadata modules: %w", err)
		}
		for _, m := range modules {
			if err := l.ensureModule(ctx, m); err != nil {
				return nil, err
			}
		}
	}
	names, err := l.store.allNames()
	if err != nil {
		return nil, err
	}
	return func(yield func(string) bool) {
		for _, name := range names {
			if ctx.Err() != nil {
				return
			}
			if !yield(name) {
				return
			}
		}
	}, nil
}

// UnreadableCount reports how many entries of a module could not be read.
func (l *Loader) UnreadableCount(module string) (int, error) {
	return l.store.unreadableCount(module)
}

// Reset drops the whole index. The next lookup re-indexes from the provider.
func (l *Loader) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.reset(); err != nil {
		return err
	}
	l.indexed = make(map[string]bool)
	return nil
}

// ensureModule indexes a module at most once. Concurrent callers share one
// indexing pass. A cancelled pass keeps the rows committed so far but
// leaves the module unindexed, so the next lookup resumes it.
func (l *Loader) ensureModule(ctx context.Context, module string) error {
	l.mu.Lock()
	done := l.indexed[module]
	l.mu.Unlock()
	if done {
		return nil
	}

	_, err, _ := l.flight.Do(module, func() (any, error) {
		// The in-memory flag can be cold after a restart on a file-backed
		// index; the modules table is the durable record.
		if indexed, err := l.store.moduleIndexed(module); err != nil {
			return nil, err
		} else if indexed {
			l.mu.Lock()
			l.indexed[module] = true
			l.mu.Unlock()
			return nil, nil
		}
		if err := l.indexModule(ctx, module); err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.indexed[module] = true
		l.mu.Unlock()
		return nil, nil
	})
	return err
}

func (l *Loader) indexModule(ctx context.Context, module string) error {
	raw, err := l.provider.Read(ctx, module)
	if err != nil {
		return fault.Wrap(fault.CodePartialLoad, err, "reading module %s", module)
	}

	tx, err := l.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO modules(name, indexed, unreadable) VALUES(?, FALSE, 0)",
		module); err != nil {
		return fmt.Errorf("registering module %s: %w", module, err)
	}

	unreadable := 0
	for i, rt := range raw {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				// Keep what is committed so far; the module stays unindexed.
				if cerr := tx.Commit(); cerr != nil {
					return fmt.Errorf("committing partial index of %s: %w", module, cerr)
				}
				return fault.Wrap(fault.CodeCancelled, err, "indexing module %s", module)
			}
		}
		if rt.Err != nil {
			unreadable++
			if rt.FQN == "" {
				continue
			}
			if err := insertType(tx, rt.FQN, module, false, nil); err != nil {
				return err
			}
			continue
		}
		if err := insertType(tx, rt.FQN, module, true, rt.Members); err != nil {
			return err
		}
	}

	if unreadable > 0 && l.logger != nil {
		l.logger.Warn("module partially readable",
			"module", module, "unreadable", unreadable,
			"code", fault.CodePartialLoad)
	}
	if _, err := tx.Exec(
		"UPDATE modules SET indexed = TRUE, unreadable = ? WHERE name = ?",
		unreadable, module); err != nil {
		return fmt.Errorf("marking module %s indexed: %w", module, err)
	}
	return tx.Commit()
}

// insertType uses INSERT OR IGNORE so the first definition of an FQN wins
// when modules overlap.
func insertType(tx *sql.Tx, fqn, module string, reachable bool, members []Member) error {
	res, err := tx.Exec(
		"INSERT OR IGNORE INTO types(fqn, module, reachable) VALUES(?, ?, ?)",
		fqn, module, reachable)
	if err != nil {
		return fmt.Errorf("inserting type %s: %w", fqn, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Another module already defined this FQN.
		return nil
	}
	for _, m := range members {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO members(type_fqn, name, signature) VALUES(?, ?, ?)",
			fqn, m.Name, m.Signature); err != nil {
			return fmt.Errorf("inserting member %s.%s: %w", fqn, m.Name, err)
		}
	}
	return nil
}
