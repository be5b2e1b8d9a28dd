// Package event defines the typed events produced by the fusion of a
// Crawler and a Monitor, plus the small value types the pipeline carries
// between its components.
package event

import "github.com/localmesh/fsminer/pkg/miner/fileref"

// Kind discriminates the variants of Event.
type Kind int

const (
	// Created indicates a file or directory newly seen by a crawl or
	// reported by a monitor.
	Created Kind = iota
	// Updated indicates a file or directory whose content or metadata
	// changed.
	Updated
	// Deleted indicates a file or directory removed from the filesystem.
	Deleted
	// Moved indicates a rename/move, possibly across directories.
	Moved
)

// String renders the Kind for logging.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is the normalized, typed union the Event Source Adapter (C1)
// produces from raw Crawler/Monitor callbacks. Only the fields relevant to
// Kind are meaningful; Moved is the only variant that populates From/To/
// SourceMonitored.
type Event struct {
	Kind Kind
	// File is the subject of Created, Updated, and Deleted events.
	File fileref.Ref
	// Dir indicates whether File (or, for Moved, To) denotes a directory.
	Dir bool
	// From and To are populated only for Moved events.
	From fileref.Ref
	To   fileref.Ref
	// SourceMonitored indicates, for Moved events, whether the monitor was
	// already watching the source path (per spec.md §4.1/§4.5).
	SourceMonitored bool
}

// NewCreated builds a Created event.
func NewCreated(file fileref.Ref, dir bool) Event {
	return Event{Kind: Created, File: file, Dir: dir}
}

// NewUpdated builds an Updated event.
func NewUpdated(file fileref.Ref, dir bool) Event {
	return Event{Kind: Updated, File: file, Dir: dir}
}

// NewDeleted builds a Deleted event.
func NewDeleted(file fileref.Ref, dir bool) Event {
	return Event{Kind: Deleted, File: file, Dir: dir}
}

// NewMoved builds a Moved event.
func NewMoved(from, to fileref.Ref, dir, sourceMonitored bool) Event {
	return Event{
		Kind:            Moved,
		From:            from,
		To:              to,
		Dir:             dir,
		SourceMonitored: sourceMonitored,
	}
}

// DirectoryTask is a pending recursive (or non-recursive) crawl of a
// subtree, created by add_directory and consumed one at a time by the
// crawl driver.
type DirectoryTask struct {
	Root    fileref.Ref
	Recurse bool
}

// ItemMoved is the payload stored in the moved queue.
type ItemMoved struct {
	From fileref.Ref
	To   fileref.Ref
	Dir  bool
}
