// Package store defines the contract the mining pipeline holds against the
// backing semantic store. The store itself is an external collaborator
// (spec.md treats it as an opaque SPARQL-like endpoint); this package only
// describes the shape of the queries and batch updates the scheduler issues,
// mirroring the templates in spec.md §6.
package store

import (
	"context"
	"time"
)

// Statement is one triple accumulated for a file's graph: <uri> predicate
// value. The subject is implicit — it is always the URI the graph is
// created for.
type Statement struct {
	Predicate string
	Value     string
}

// ChildRewrite renames one descendant's tracker:uri from Old to New during a
// container rename (spec.md §4.5).
type ChildRewrite struct {
	Old string
	New string
}

// Op is one statement-group within a Batch. The concrete types below are
// the only implementations; the interface exists so a Batch can hold a
// heterogeneous, ordered sequence of them.
type Op interface {
	isOp()
}

// DeleteContainer removes every resource whose belongsToContainer starts
// with URI+"/", then the resource URI itself (spec.md §6's two-statement
// DELETE, issued together as one Op so a backend can make the pair atomic).
type DeleteContainer struct {
	URI string
}

// ReplaceGraph atomically replaces the named graph at URI with Statements
// (DROP GRAPH <URI> followed by the extracted triples).
type ReplaceGraph struct {
	URI        string
	Statements []Statement
}

// RenameResource moves the fileName triple from SourceURI to TargetURI
// (recorded there as DisplayName) and rewrites any descendant URIs recorded
// in ChildRewrites, all as one batch (spec.md §4.5 step 2).
type RenameResource struct {
	SourceURI     string
	TargetURI     string
	DisplayName   string
	ChildRewrites []ChildRewrite
}

func (DeleteContainer) isOp() {}
func (ReplaceGraph) isOp()    {}
func (RenameResource) isOp()  {}

// Batch is an ordered list of Ops applied together; a Store implementation
// must apply a Batch as a single atomic unit.
type Batch struct {
	Ops []Op
}

// Add appends an Op to the batch and returns the batch for chaining.
func (b *Batch) Add(op Op) *Batch {
	b.Ops = append(b.Ops, op)
	return b
}

// Empty reports whether the batch has no operations.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Ops) == 0
}

// Store is the contract the scheduler holds against the backing semantic
// store: queries, batch update and commit, standing in for spec.md §6's
// query_async/batch_update_async/commit_async. Every method is synchronous
// and returns once the operation has completed.
type Store interface {
	// MTimeMatches reports whether the store's recorded last-modified time
	// for uri equals mtime (rounded to seconds in UTC), i.e. spec.md §4.2's
	// mtime_matches_store.
	MTimeMatches(ctx context.Context, uri string, mtime time.Time) (bool, error)
	// Exists reports whether uri is recorded as a resource in the store.
	Exists(ctx context.Context, uri string) (bool, error)
	// Children returns the URIs of resources whose belongsToContainer is
	// uri (spec.md §6's child SELECT, used during recursive rename).
	Children(ctx context.Context, uri string) ([]string, error)
	// Apply issues a batch update. It must be all-or-nothing.
	Apply(ctx context.Context, batch *Batch) error
	// Commit commits any pending batch updates (spec.md §6's
	// commit_async).
	Commit(ctx context.Context) error
}

// MutationBuilder is the write-once accumulator the extractor contract
// (spec.md §4.6) populates with triples for one file. It is not safe for
// concurrent use by more than one goroutine, matching the "owning job"
// lifecycle of a ProcessJob.
type MutationBuilder struct {
	statements []Statement
}

// NewMutationBuilder returns an empty builder.
func NewMutationBuilder() *MutationBuilder {
	return &MutationBuilder{}
}

// Add records one extracted triple.
func (b *MutationBuilder) Add(predicate, value string) {
	b.statements = append(b.statements, Statement{Predicate: predicate, Value: value})
}

// Statements returns the accumulated triples in insertion order.
func (b *MutationBuilder) Statements() []Statement {
	return b.statements
}

// Len reports how many statements have been accumulated.
func (b *MutationBuilder) Len() int {
	return len(b.statements)
}

// FormatModTime renders a modification time the way the store's templates
// expect: "YYYY-MM-DDTHH:MM:SSZ" derived from UTC, seconds resolution
// (spec.md §6).
func FormatModTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}
