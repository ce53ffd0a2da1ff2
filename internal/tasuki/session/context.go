// Package session holds per-conversation state: which workspace and project
// the user is currently talking about, plus the sibling projects of that
// workspace. Contexts live in a process-wide store, expire by age, and are
// mutated by every message through the Updater. Nothing else reads the store
// directly; the Updater is the only accessor.
//
// Concurrent messages within one session are not synchronized: last write
// wins. The store itself is safe for concurrent use so the background sweep
// can run alongside in-flight requests.
package session

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a context survives without activity before the
	// sweep removes it.
	DefaultTTL = time.Hour
	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = time.Hour
)

// Context is the conversational state for one session.
type Context struct {
	SessionID     string
	WorkspaceSlug string
	WorkspaceName string
	ProjectSlug   string
	ProjectName   string
	// SiblingProjectSlugs lists the projects inside the current workspace,
	// refreshed on workspace navigation.
	SiblingProjectSlugs []string
	LastUpdated         time.Time
}

// Clone returns a deep copy so callers can hold a snapshot without racing
// store mutations.
func (c Context) Clone() Context {
	out := c
	if c.SiblingProjectSlugs != nil {
		out.SiblingProjectSlugs = make([]string, len(c.SiblingProjectSlugs))
		copy(out.SiblingProjectSlugs, c.SiblingProjectSlugs)
	}
	return out
}

// clearProject unsets the project half of the context. A project never
// outlives a workspace switch.
func (c *Context) clearProject() {
	c.ProjectSlug = ""
	c.ProjectName = ""
}

// Store is the session context store. Implementations must be safe for
// concurrent use. The in-memory implementation below is the default; the
// interface exists so a distributed deployment can swap in an external cache.
type Store interface {
	// Get returns a snapshot of the context for sessionID.
	Get(sessionID string) (Context, bool)
	// Set stores a snapshot of sctx under its SessionID.
	Set(sctx Context)
	// Delete removes the context for sessionID, if any.
	Delete(sessionID string)
	// SweepOlderThan removes every context whose LastUpdated is older than
	// maxAge, returning the number removed.
	SweepOlderThan(maxAge time.Duration) int
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	contexts map[string]Context
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string]Context)}
}

// Get implements Store.
func (s *MemoryStore) Get(sessionID string) (Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sctx, ok := s.contexts[sessionID]
	if !ok {
		return Context{}, false
	}
	return sctx.Clone(), true
}

// Set implements Store.
func (s *MemoryStore) Set(sctx Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[sctx.SessionID] = sctx.Clone()
}

// Delete implements Store.
func (s *MemoryStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
}

// SweepOlderThan implements Store.
func (s *MemoryStore) SweepOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sctx := range s.contexts {
		if sctx.LastUpdated.Before(cutoff) {
			delete(s.contexts, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored contexts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}
