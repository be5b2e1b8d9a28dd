// Package policy implements the Indexing Policy Filter (C2): the host
// predicates that decide whether a file or directory is accepted, whether a
// directory should be monitored, and whether the store's recorded
// modification time already matches the filesystem.
package policy

import (
	"context"
	"time"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// ShouldCheckFunc is the pure, synchronous should_check(file, is_dir)
// predicate from spec.md §4.2.
type ShouldCheckFunc func(file fileref.Ref, isDir bool) bool

// MonitorDirectoryFunc is the pure, synchronous monitor_directory(file)
// predicate from spec.md §4.2.
type MonitorDirectoryFunc func(dir fileref.Ref) bool

// Predicates bundles the two host-supplied, synchronous predicates. A nil
// ShouldCheck accepts everything; a nil MonitorDirectory declines to
// monitor anything.
type Predicates struct {
	ShouldCheck      ShouldCheckFunc
	MonitorDirectory MonitorDirectoryFunc
}

// Filter evaluates Predicates against the store's recorded state to decide
// processing for a given candidate file.
type Filter struct {
	predicates Predicates
	store      store.Store
}

// New creates a Filter over the given predicates and store.
func New(predicates Predicates, backing store.Store) *Filter {
	return &Filter{predicates: predicates, store: backing}
}

// Decision is the outcome of evaluating one candidate file or directory.
type Decision struct {
	// Accept is should_check(file, is_dir), spec.md §4.2's synchronous
	// half of the filter. It governs check_file/check_directory's return
	// value to the Crawler (whether to enumerate children at all).
	Accept bool
	// Process is should_process := Accept ∧ ¬mtime_matches_store. It
	// governs whether an event is ultimately enqueued for this file.
	Process bool
	// ContentsOnly is set for a directory that is Accept but whose mtime
	// already matches the store: its contents are still enumerated, but
	// no event is emitted for the directory itself (spec.md §4.2's
	// "ignore" annotation).
	ContentsOnly bool
}

// Evaluate runs should_check synchronously, then (only if accepted)
// mtime_matches_store against the store.
func (f *Filter) Evaluate(ctx context.Context, file fileref.Ref, isDir bool, mtime time.Time) (Decision, error) {
	accept := true
	if f.predicates.ShouldCheck != nil {
		accept = f.predicates.ShouldCheck(file, isDir)
	}
	if !accept {
		return Decision{Accept: false}, nil
	}

	matches, err := f.store.MTimeMatches(ctx, file.URI(), mtime)
	if err != nil {
		return Decision{}, err
	}
	if !matches {
		return Decision{Accept: true, Process: true}, nil
	}

	// mtime matches: a file is fully up to date (no event at all); a
	// directory is still enumerated for its children but tagged
	// contents-only so no event fires for the directory itself.
	if isDir {
		return Decision{Accept: true, Process: false, ContentsOnly: true}, nil
	}
	return Decision{Accept: true, Process: false}, nil
}

// ShouldMonitor runs monitor_directory(file).
func (f *Filter) ShouldMonitor(dir fileref.Ref) bool {
	if f.predicates.MonitorDirectory == nil {
		return false
	}
	return f.predicates.MonitorDirectory(dir)
}
