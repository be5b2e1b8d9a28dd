// Package monitor defines the OS filesystem change notification
// collaborator (spec.md's Monitor). Concrete implementations live in
// subpackages (e.g. fsmonitor); this package only pins down the interface.
package monitor

import (
	"context"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
)

// Sink receives change notifications from a Monitor.
type Sink interface {
	ItemCreated(file fileref.Ref, dir bool)
	ItemUpdated(file fileref.Ref, dir bool)
	ItemDeleted(file fileref.Ref, dir bool)
	// ItemMoved reports a rename/move. sourceMonitored indicates whether
	// the monitor was already watching from (spec.md §4.1/§4.5) — false
	// when the move's source lies outside any currently-watched subtree.
	ItemMoved(from, to fileref.Ref, dir bool, sourceMonitored bool)
}

// Monitor watches a directory (recursively) for filesystem changes and
// reports them to a Sink until ctx is cancelled.
type Monitor interface {
	Watch(ctx context.Context, root fileref.Ref, sink Sink) error
	// Unwatch stops watching root (and anything below it), used by
	// remove_directory.
	Unwatch(root fileref.Ref)
}
