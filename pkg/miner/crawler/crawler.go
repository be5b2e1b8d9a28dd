// Package crawler defines the directory-tree traversal collaborator
// (spec.md's Crawler). The crawler itself only walks and reports what it
// finds; the policy decisions (should_check, ignore veto) live in the
// Visitor the caller supplies, which in this module is the Event Source
// Adapter (pkg/miner/source).
package crawler

import (
	"context"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
)

// Visitor receives callbacks as a Crawler enumerates a directory tree.
type Visitor interface {
	// CheckFile is invoked for each file found. Returning false means the
	// file is ignored (no event is enqueued for it); enumeration
	// continues regardless.
	CheckFile(file fileref.Ref) bool
	// CheckDirectory is invoked for each directory found. Returning false
	// declines the directory: no event fires for it and its contents are
	// not enumerated.
	CheckDirectory(dir fileref.Ref) bool
	// CheckDirectoryContents is invoked once a directory's direct
	// children (files and subdirectories) have been discovered, and may
	// veto the entire subtree by returning false (e.g. to skip a
	// directory whose contents are all backup/cache files).
	CheckDirectoryContents(dir fileref.Ref, children []fileref.Ref) bool
}

// Crawler walks a directory tree, reporting entries to a Visitor.
type Crawler interface {
	// Walk enumerates root. If recurse is false, only root's direct
	// children are visited (no descent into subdirectories). Walk
	// returns once enumeration completes, ctx is cancelled, or an error
	// occurs reading the filesystem.
	Walk(ctx context.Context, root fileref.Ref, recurse bool, visitor Visitor) error
}
