// Package walker implements crawler.Crawler using os.ReadDir, the concrete
// stand-in for spec.md's external tree-traversal collaborator.
package walker

import (
	"context"
	"io/fs"
	"os"

	"github.com/localmesh/fsminer/pkg/miner/crawler"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
)

// Walker is a crawler.Crawler backed by the standard library's directory
// reads.
type Walker struct{}

// New creates a Walker.
func New() *Walker {
	return &Walker{}
}

// Walk implements crawler.Crawler.
func (w *Walker) Walk(ctx context.Context, root fileref.Ref, recurse bool, visitor crawler.Visitor) error {
	return w.walkDir(ctx, root, recurse, visitor)
}

// walkDir enumerates dir's direct children, visits each, and recurses into
// subdirectories when recurse is true.
func (w *Walker) walkDir(ctx context.Context, dir fileref.Ref, recurse bool, visitor crawler.Visitor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	children := make([]fileref.Ref, 0, len(entries))
	var subdirs []fs.DirEntry
	for _, entry := range entries {
		child := dir.Join(entry.Name())
		children = append(children, child)

		if entry.IsDir() {
			// A declined directory is not descended into; only accepted
			// ones are enumerated.
			if visitor.CheckDirectory(child) {
				subdirs = append(subdirs, entry)
			}
		} else {
			visitor.CheckFile(child)
		}
	}

	if !visitor.CheckDirectoryContents(dir, children) {
		return nil
	}

	if !recurse {
		return nil
	}

	for _, entry := range subdirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := dir.Join(entry.Name())
		if err := w.walkDir(ctx, child, recurse, visitor); err != nil {
			return err
		}
	}
	return nil
}
