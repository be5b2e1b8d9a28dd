// Package memstore is an in-memory store.Store used by the core's own test
// suite, standing in for the opaque semantic store spec.md places out of
// scope.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/localmesh/fsminer/pkg/miner/store"
)

type resource struct {
	containerURI string
	displayName  string
	lastModified string
	statements   []store.Statement
}

// Store is a trivial, mutex-guarded implementation of store.Store backed by
// a map. It is not meant for production use; it exists so scheduler and
// policy tests can exercise real Store semantics without a database.
type Store struct {
	mu        sync.Mutex
	resources map[string]*resource
	// CommitCount lets tests assert on how many times Commit was called
	// (spec.md's seed test #2 checks this does not increase on a
	// no-op rescan).
	CommitCount int
	// ApplyCount records how many batches were applied.
	ApplyCount int
}

// New creates an empty Store.
func New() *Store {
	return &Store{resources: make(map[string]*resource)}
}

// Seed directly inserts a resource, bypassing Apply, for test setup.
func (s *Store) Seed(uri, containerURI, displayName string, lastModified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[uri] = &resource{
		containerURI: containerURI,
		displayName:  displayName,
		lastModified: store.FormatModTime(lastModified),
	}
}

// Has reports whether uri is currently recorded, for test assertions.
func (s *Store) Has(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.resources[uri]
	return ok
}

func (s *Store) MTimeMatches(_ context.Context, uri string, mtime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[uri]
	if !ok {
		return false, nil
	}
	return r.lastModified == store.FormatModTime(mtime), nil
}

func (s *Store) Exists(_ context.Context, uri string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.resources[uri]
	return ok, nil
}

func (s *Store) Children(_ context.Context, uri string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var children []string
	for childURI, r := range s.resources {
		if r.containerURI == uri {
			children = append(children, childURI)
		}
	}
	return children, nil
}

func (s *Store) Apply(_ context.Context, batch *store.Batch) error {
	if batch.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ApplyCount++
	for _, op := range batch.Ops {
		switch o := op.(type) {
		case store.DeleteContainer:
			prefix := o.URI + "/"
			for uri := range s.resources {
				if strings.HasPrefix(uri, prefix) {
					delete(s.resources, uri)
				}
			}
			delete(s.resources, o.URI)
		case store.ReplaceGraph:
			r := s.resources[o.URI]
			if r == nil {
				r = &resource{}
			}
			r.statements = o.Statements
			for _, st := range o.Statements {
				if st.Predicate == "nfo:belongsToContainer" {
					r.containerURI = st.Value
				}
				if st.Predicate == "nfo:fileName" {
					r.displayName = st.Value
				}
				if st.Predicate == "nfo:fileLastModified" {
					r.lastModified = st.Value
				}
			}
			s.resources[o.URI] = r
		case store.RenameResource:
			src := s.resources[o.SourceURI]
			delete(s.resources, o.SourceURI)
			target := &resource{
				containerURI: src.containerURI,
				displayName:  o.DisplayName,
				lastModified: lastModifiedOf(src),
				statements:   statementsOf(src),
			}
			s.resources[o.TargetURI] = target
			for _, rewrite := range o.ChildRewrites {
				if child, ok := s.resources[rewrite.Old]; ok {
					delete(s.resources, rewrite.Old)
					child.containerURI = o.TargetURI
					s.resources[rewrite.New] = child
				}
			}
		}
	}
	return nil
}

func lastModifiedOf(r *resource) string {
	if r == nil {
		return ""
	}
	return r.lastModified
}

func statementsOf(r *resource) []store.Statement {
	if r == nil {
		return nil
	}
	return r.statements
}

func (s *Store) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CommitCount++
	return nil
}
