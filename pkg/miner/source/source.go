// Package source implements the Event Source Adapter (C1): it normalizes
// Crawler and Monitor callbacks into the typed events the Queue Set (C3)
// understands, running each candidate through the Indexing Policy Filter
// (C2) before anything is enqueued.
//
// A crawl runs entirely on the calling goroutine (filepath-style recursive
// walks are synchronous), so the per-crawl bookkeeping in crawlState needs
// no locking. Decisions are only applied to the shared Queue Set through
// the Dispatch callback, which posts a closure onto the host's single
// cooperative event loop (spec.md §4.4/§5) — this is how the adapter
// reconciles "enqueue happens only in finished" (§4.1) with a Walk that may
// run concurrently with live monitor events arriving on other goroutines.
package source

import (
	"context"
	"time"

	"github.com/localmesh/fsminer/pkg/logging"
	"github.com/localmesh/fsminer/pkg/miner/crawler"
	"github.com/localmesh/fsminer/pkg/miner/event"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/monitor"
	"github.com/localmesh/fsminer/pkg/miner/policy"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// StatModTime returns the current on-disk modification time for file, or
// an error if it cannot be stat'd (e.g. it was removed mid-crawl).
type StatModTime func(file fileref.Ref) (time.Time, error)

// Counts accumulates the per-run discovery counters from spec.md §3.
type Counts struct {
	DirectoriesFound   int
	DirectoriesIgnored int
	FilesFound         int
	FilesIgnored       int
}

// PendingItem is one crawl-discovered file or directory awaiting its
// enqueue decision, applied in bulk when the crawl finishes.
type PendingItem struct {
	File         fileref.Ref
	Dir          bool
	Accept       bool // should_check(file, is_dir)
	Enqueue      bool // Accept && Process && !ContentsOnly
	ContentsOnly bool
}

// CrawlResult is everything one DirectoryTask's Walk produced.
type CrawlResult struct {
	Items  []PendingItem
	Counts Counts
}

// Sink is the subset of the Queue Set and directory-task bookkeeping the
// adapter drives. It is invoked only from closures posted through
// Dispatch, so implementations never need their own synchronization.
type Sink interface {
	PushCreated(file fileref.Ref, dir bool)
	PushUpdated(file fileref.Ref, dir bool)
	PushDeleted(file fileref.Ref, dir bool)
	PushMoved(from, to fileref.Ref, dir bool)
}

// Adapter implements crawler.Visitor for bulk crawls and monitor.Sink for
// live filesystem notifications, translating both into Sink calls.
type Adapter struct {
	filter    *policy.Filter
	backing   store.Store
	sink      Sink
	dispatch  func(func())
	stat      StatModTime
	ignoreDir func(dir fileref.Ref, children []fileref.Ref) bool
	log       *logging.Logger
	reseedDir func(root fileref.Ref, recurse bool)
	watcher   monitor.Monitor

	// current is non-nil only while a crawl (Walk call) is in progress on
	// this goroutine; it accumulates the decisions made for each
	// CheckFile/CheckDirectory callback until Finished bulk-applies them.
	current *crawlState
}

type crawlState struct {
	items  []PendingItem
	counts Counts
}

// Config bundles the Adapter's dependencies.
type Config struct {
	Filter  *policy.Filter
	Store   store.Store
	Sink    Sink
	// Dispatch posts a closure to run on the host's single event loop
	// goroutine; it must not execute the closure inline.
	Dispatch func(func())
	Stat     StatModTime
	// IgnoreDirectoryContents implements check_directory_contents
	// (spec.md §4.1): given a directory and its already-discovered direct
	// children, it may veto the whole subtree. A nil func never vetoes.
	IgnoreDirectoryContents func(dir fileref.Ref, children []fileref.Ref) bool
	// ReseedDirectory re-enters a subtree as a fresh recursive
	// DirectoryTask (spec.md §4.1/§4.5, the "no source × directory
	// target" and "target directory from an unmonitored move" cases).
	ReseedDirectory func(root fileref.Ref, recurse bool)
	// Monitor, if non-nil, is subscribed to each accepted directory for
	// which monitor_directory(dir) returns true (spec.md §4.2).
	Monitor monitor.Monitor
	Logger  *logging.Logger
}

// New creates an Adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		filter:    cfg.Filter,
		backing:   cfg.Store,
		sink:      cfg.Sink,
		dispatch:  cfg.Dispatch,
		stat:      cfg.Stat,
		ignoreDir: cfg.IgnoreDirectoryContents,
		reseedDir: cfg.ReseedDirectory,
		watcher:   cfg.Monitor,
		log:       cfg.Logger,
	}
}

// MonitorRoot subscribes the Monitor to root if monitor_directory(root)
// accepts it. The crawl driver walks root's children via CheckDirectory,
// which subscribes those automatically, but root itself is never passed
// to CheckDirectory (the Crawler only visits it as the starting point), so
// the caller must monitor it explicitly.
func (a *Adapter) MonitorRoot(ctx context.Context, root fileref.Ref) {
	a.watchDirectory(ctx, root)
}

func (a *Adapter) watchDirectory(ctx context.Context, dir fileref.Ref) {
	if a.watcher == nil || a.filter == nil || !a.filter.ShouldMonitor(dir) {
		return
	}
	if err := a.watcher.Watch(ctx, dir, a); err != nil && a.log != nil {
		a.log.Warn(err)
	}
}

// RunCrawl walks root with c, collecting the enqueue decisions for every
// file and directory it discovers. It is intended to be called from a
// dedicated goroutine per DirectoryTask; the caller is responsible for
// posting the result back onto the event loop (e.g. via Dispatch) once it
// returns.
func (a *Adapter) RunCrawl(ctx context.Context, c crawler.Crawler, task event.DirectoryTask) (CrawlResult, error) {
	a.current = &crawlState{}
	defer func() { a.current = nil }()

	err := c.Walk(ctx, task.Root, task.Recurse, a)
	return CrawlResult{Items: a.current.items, Counts: a.current.counts}, err
}

// CheckFile implements crawler.Visitor.
func (a *Adapter) CheckFile(file fileref.Ref) bool {
	return a.checkCandidate(file, false)
}

// CheckDirectory implements crawler.Visitor.
func (a *Adapter) CheckDirectory(dir fileref.Ref) bool {
	return a.checkCandidate(dir, true)
}

func (a *Adapter) checkCandidate(file fileref.Ref, isDir bool) bool {
	mtime := a.modTimeOrZero(file)
	decision, err := a.filter.Evaluate(context.Background(), file, isDir, mtime)
	if err != nil {
		if a.log != nil {
			a.log.Warn(err)
		}
		return false
	}

	item := PendingItem{
		File:         file,
		Dir:          isDir,
		Accept:       decision.Accept,
		Enqueue:      decision.Accept && decision.Process,
		ContentsOnly: decision.ContentsOnly,
	}
	a.current.items = append(a.current.items, item)

	if isDir {
		if decision.Accept {
			a.current.counts.DirectoriesFound++
			a.watchDirectory(context.Background(), file)
		} else {
			a.current.counts.DirectoriesIgnored++
		}
	} else {
		if decision.Accept {
			a.current.counts.FilesFound++
		} else {
			a.current.counts.FilesIgnored++
		}
	}
	return decision.Accept
}

func (a *Adapter) modTimeOrZero(file fileref.Ref) time.Time {
	if a.stat == nil {
		return time.Time{}
	}
	mtime, err := a.stat(file)
	if err != nil {
		return time.Time{}
	}
	return mtime
}

// CheckDirectoryContents implements crawler.Visitor: check_directory_contents
// (spec.md §4.1) may veto an entire subtree after seeing its direct
// children. Vetoing retroactively drops the buffered decisions for dir's
// direct children (they were already checked individually) and recounts
// them as ignored.
func (a *Adapter) CheckDirectoryContents(dir fileref.Ref, children []fileref.Ref) bool {
	if a.ignoreDir == nil || !a.ignoreDir(dir, children) {
		return true
	}

	childSet := make(map[string]bool, len(children))
	for _, c := range children {
		childSet[c.Path()] = true
	}

	kept := a.current.items[:0]
	for _, item := range a.current.items {
		if !childSet[item.File.Path()] {
			kept = append(kept, item)
			continue
		}
		if !item.Accept {
			continue // already counted as ignored; just drop the stale entry
		}
		if item.Dir {
			a.current.counts.DirectoriesFound--
			a.current.counts.DirectoriesIgnored++
		} else {
			a.current.counts.FilesFound--
			a.current.counts.FilesIgnored++
		}
	}
	a.current.items = kept
	return false
}

// ItemCreated implements monitor.Sink.
func (a *Adapter) ItemCreated(file fileref.Ref, dir bool) {
	a.liveEvent(file, dir, event.Created)
}

// ItemUpdated implements monitor.Sink.
func (a *Adapter) ItemUpdated(file fileref.Ref, dir bool) {
	a.liveEvent(file, dir, event.Updated)
}

// ItemDeleted implements monitor.Sink.
func (a *Adapter) ItemDeleted(file fileref.Ref, dir bool) {
	a.dispatch(func() {
		a.sink.PushDeleted(file, dir)
	})
}

func (a *Adapter) liveEvent(file fileref.Ref, dir bool, kind event.Kind) {
	mtime := a.modTimeOrZero(file)
	decision, err := a.filter.Evaluate(context.Background(), file, dir, mtime)
	if err != nil {
		if a.log != nil {
			a.log.Warn(err)
		}
		return
	}
	if !decision.Accept || !decision.Process {
		return
	}
	a.dispatch(func() {
		if kind == event.Created {
			a.sink.PushCreated(file, dir)
		} else {
			a.sink.PushUpdated(file, dir)
		}
	})
}

// ItemMoved implements monitor.Sink, resolving the four subcases of
// spec.md §4.5 (source known to store × target accepted by policy) for a
// monitored source, or the simpler unmonitored-source rule of §4.1.
func (a *Adapter) ItemMoved(from, to fileref.Ref, dir bool, sourceMonitored bool) {
	if !sourceMonitored {
		if dir {
			a.dispatch(func() { a.reseedDir(to, true) })
			return
		}
		decision, err := a.filter.Evaluate(context.Background(), to, false, a.modTimeOrZero(to))
		if err != nil {
			if a.log != nil {
				a.log.Warn(err)
			}
			return
		}
		if decision.Accept && decision.Process {
			a.dispatch(func() { a.sink.PushCreated(to, false) })
		}
		return
	}

	sourceInStore, err := a.backing.Exists(context.Background(), from.URI())
	if err != nil {
		if a.log != nil {
			a.log.Critical(err)
		}
		return
	}
	targetAccepted := true
	if a.filter != nil {
		decision, err := a.filter.Evaluate(context.Background(), to, dir, a.modTimeOrZero(to))
		if err != nil {
			if a.log != nil {
				a.log.Warn(err)
			}
			return
		}
		targetAccepted = decision.Accept
	}

	switch {
	case !sourceInStore && !targetAccepted:
		// drop
	case !sourceInStore && targetAccepted && !dir:
		a.dispatch(func() { a.sink.PushCreated(to, false) })
	case !sourceInStore && targetAccepted && dir:
		a.dispatch(func() { a.reseedDir(to, true) })
	case sourceInStore && !targetAccepted:
		a.dispatch(func() { a.sink.PushDeleted(from, dir) })
	default: // sourceInStore && targetAccepted
		a.dispatch(func() { a.sink.PushMoved(from, to, dir) })
	}
}
