// Package queue implements the Queue Set (C3): four FIFOs — deleted,
// created, updated, moved — dequeued in that strict priority order, with
// tombstone-based compaction so a Deleted event supersedes any pending
// Created/Updated entry for the same file (spec.md §3 invariant 1, §4.3).
package queue

import (
	"github.com/localmesh/fsminer/pkg/miner/event"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
)

// Kind identifies which FIFO an item was dequeued from.
type Kind int

const (
	// None is returned by Dequeue when every queue is empty.
	None Kind = iota
	KindDeleted
	KindCreated
	KindUpdated
	KindMoved
)

// Item is one dequeued unit of work. Only the field matching Kind is
// populated; Moved populates Move instead of File.
type Item struct {
	Kind Kind
	File fileref.Ref
	Dir  bool
	Move event.ItemMoved
}

// Set holds the four priority FIFOs. It is not safe for concurrent use —
// per spec.md §4.4 and §5, all queue mutation happens on the single
// cooperative event loop, so no internal locking is needed or wanted.
type Set struct {
	deleted []Item
	created []fileref.Ref
	updated []fileref.Ref
	moved   []event.ItemMoved

	// pendingCreated/pendingUpdated track live membership for tombstone
	// compaction: pushing a Deleted entry for a file clears its bit here
	// without touching the slice, and Dequeue skips any entry whose bit
	// has gone false (it was superseded after being enqueued).
	pendingCreated map[string]bool
	pendingUpdated map[string]bool

	// dirFlags records the Dir bit for created/updated entries, keyed by
	// canonical path, since the FIFOs above only store the Ref.
	dirFlags map[string]bool
}

// New creates an empty Set.
func New() *Set {
	return &Set{
		pendingCreated: make(map[string]bool),
		pendingUpdated: make(map[string]bool),
		dirFlags:       make(map[string]bool),
	}
}

// PushDeleted enqueues a Deleted item and compacts away any pending
// Created/Updated entry for the same file (spec.md §4.3: implementations
// MAY compact; this one does, cheaply, via tombstoning).
func (s *Set) PushDeleted(file fileref.Ref, dir bool) {
	key := file.Path()
	s.pendingCreated[key] = false
	s.pendingUpdated[key] = false
	s.deleted = append(s.deleted, Item{Kind: KindDeleted, File: file, Dir: dir})
}

// PushCreated enqueues a Created item.
func (s *Set) PushCreated(file fileref.Ref, dir bool) {
	key := file.Path()
	s.pendingCreated[key] = true
	s.dirFlags[key] = dir
	s.created = append(s.created, file)
}

// PushUpdated enqueues an Updated item.
func (s *Set) PushUpdated(file fileref.Ref, dir bool) {
	key := file.Path()
	s.pendingUpdated[key] = true
	s.dirFlags[key] = dir
	s.updated = append(s.updated, file)
}

// PushMoved enqueues a Moved item.
func (s *Set) PushMoved(from, to fileref.Ref, dir bool) {
	s.moved = append(s.moved, event.ItemMoved{From: from, To: to, Dir: dir})
}

// Dequeue pops the next item in priority order: Deleted > Created >
// Updated > Moved, skipping stale (compacted) Created/Updated entries.
// It reports Kind == None when every queue is empty.
func (s *Set) Dequeue() Item {
	if len(s.deleted) > 0 {
		item := s.deleted[0]
		s.deleted = s.deleted[1:]
		return item
	}
	for len(s.created) > 0 {
		file := s.created[0]
		s.created = s.created[1:]
		key := file.Path()
		if !s.pendingCreated[key] {
			continue // stale: compacted by a later Deleted
		}
		delete(s.pendingCreated, key)
		dir := s.dirFlags[key]
		return Item{Kind: KindCreated, File: file, Dir: dir}
	}
	for len(s.updated) > 0 {
		file := s.updated[0]
		s.updated = s.updated[1:]
		key := file.Path()
		if !s.pendingUpdated[key] {
			continue
		}
		delete(s.pendingUpdated, key)
		dir := s.dirFlags[key]
		return Item{Kind: KindUpdated, File: file, Dir: dir}
	}
	if len(s.moved) > 0 {
		move := s.moved[0]
		s.moved = s.moved[1:]
		return Item{Kind: KindMoved, Move: move}
	}
	return Item{Kind: None}
}

// Len returns the total number of items across all four queues, counting
// stale (compacted) entries that have not yet been dequeued — they still
// occupy a slot until Dequeue walks past them.
func (s *Set) Len() int {
	return len(s.deleted) + len(s.created) + len(s.updated) + len(s.moved)
}

// Empty reports whether every queue is empty.
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// RemoveDirectory purges every created/updated entry at or below root
// (spec.md §4.3's remove_directory contract). Moved and Deleted entries
// are left alone: a pending delete for a file under root is harmless
// (the scheduler tolerates a "file not present" no-op), and a move whose
// source or target is under root still needs to resolve via the normal
// move-handling decision table.
func (s *Set) RemoveDirectory(root fileref.Ref) {
	for key := range s.pendingCreated {
		if fileref.New(key).HasPrefix(root) {
			s.pendingCreated[key] = false
		}
	}
	for key := range s.pendingUpdated {
		if fileref.New(key).HasPrefix(root) {
			s.pendingUpdated[key] = false
		}
	}
}
