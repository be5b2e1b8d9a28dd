// Package fsmonitor implements monitor.Monitor on top of fsnotify,
// recursively watching a directory tree and pairing a Remove/Create that
// land within a short coalescing window into a single move notification
// (spec.md's Monitor never sees the OS-level rename pair directly; it must
// reconstruct "moved" from the two halves the kernel hands back separately).
package fsmonitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/localmesh/fsminer/pkg/logging"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/monitor"
)

// DefaultCoalescingWindow is how long a Remove waits for a paired Create
// before it is reported as a plain deletion, matching the teacher's
// watchCoalescingWindow for the non-recursive watch backend.
const DefaultCoalescingWindow = 10 * time.Millisecond

type pendingRemoval struct {
	ref      fileref.Ref
	dir      bool
	deadline time.Time
}

// Monitor watches one or more directory trees, recursively adding new
// subdirectories as they're created, and reports changes to each root's
// Sink until the root's Watch context is cancelled or Unwatch is called.
type Monitor struct {
	log    *logging.Logger
	window time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	roots   map[string]context.CancelFunc
	watched map[string]string // watched directory path -> owning root path
	sinks   map[string]monitor.Sink
	pending map[string]*pendingRemoval // keyed by base name
	flusher *removalFlusher

	closeOnce sync.Once
}

// New creates a Monitor. Call Close when the Monitor is no longer needed to
// release the underlying OS watch descriptors.
func New(log *logging.Logger, window time.Duration) (*Monitor, error) {
	if window <= 0 {
		window = DefaultCoalescingWindow
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		log:     log,
		window:  window,
		watcher: w,
		roots:   make(map[string]context.CancelFunc),
		watched: make(map[string]string),
		sinks:   make(map[string]monitor.Sink),
		pending: make(map[string]*pendingRemoval),
		flusher: newRemovalFlusher(window),
	}
	go m.flushLoop()
	go m.eventLoop()
	return m, nil
}

// Watch implements monitor.Monitor: it recursively adds root and every
// existing subdirectory beneath it to the watch set, reporting all future
// changes to sink.
func (m *Monitor) Watch(ctx context.Context, root fileref.Ref, sink monitor.Sink) error {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.roots[root.Path()] = cancel
	m.sinks[root.Path()] = sink
	m.mu.Unlock()

	if err := m.addTree(root); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		m.Unwatch(root)
	}()
	return nil
}

// Unwatch implements monitor.Monitor.
func (m *Monitor) Unwatch(root fileref.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for rootPath, cancel := range m.roots {
		if fileref.New(rootPath).HasPrefix(root) {
			cancel()
			delete(m.roots, rootPath)
			delete(m.sinks, rootPath)
		}
	}
	delete(m.sinks, root.Path())

	for dir := range m.watched {
		if fileref.New(dir).HasPrefix(root) {
			_ = m.watcher.Remove(dir)
			delete(m.watched, dir)
		}
	}
}

// Close shuts down the monitor's background goroutines and releases its
// fsnotify watcher.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		m.flusher.stop()
		_ = m.watcher.Close()
	})
}

func (m *Monitor) addTree(root fileref.Ref) error {
	return filepath.WalkDir(root.Path(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip entries we can't stat
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := m.watcher.Add(path); addErr != nil {
			if m.log != nil {
				m.log.Warn(addErr)
			}
			return nil
		}
		m.mu.Lock()
		m.watched[path] = root.Path()
		m.mu.Unlock()
		return nil
	})
}

// sinkFor finds the most specific watched root containing file, if any.
func (m *Monitor) sinkFor(file fileref.Ref) (monitor.Sink, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bestRoot string
	var bestSink monitor.Sink
	found := false
	for rootPath, sink := range m.sinks {
		root := fileref.New(rootPath)
		if file.HasPrefix(root) && (!found || len(rootPath) > len(bestRoot)) {
			bestRoot, bestSink, found = rootPath, sink, true
		}
	}
	return bestSink, bestRoot, found
}

func (m *Monitor) eventLoop() {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handle(ev)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			if m.log != nil {
				m.log.Warn(err)
			}
		}
	}
}

func (m *Monitor) handle(ev fsnotify.Event) {
	file := fileref.New(ev.Name)
	sink, _, ok := m.sinkFor(file)
	if !ok {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		isDir := m.statIsDir(file)
		if isDir {
			if err := m.addTree(file); err != nil && m.log != nil {
				m.log.Warn(err)
			}
		}
		if paired, wasDir := m.pairWithRemoval(file); !paired.Zero() {
			sink.ItemMoved(paired, file, wasDir, true)
			return
		}
		sink.ItemCreated(file, isDir)

	case ev.Has(fsnotify.Write):
		sink.ItemUpdated(file, m.statIsDir(file))

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// fsnotify cannot tell us whether the removed path was a
		// directory (it no longer exists to stat); bufferRemoval takes it
		// from the watched-directory set, and a paired Create re-stats the
		// new path instead.
		m.bufferRemoval(file)

	case ev.Has(fsnotify.Chmod):
		// Permission-only changes carry no metadata the store tracks.
	}
}

func (m *Monitor) statIsDir(file fileref.Ref) bool {
	info, err := os.Stat(file.Path())
	return err == nil && info.IsDir()
}

func (m *Monitor) bufferRemoval(file fileref.Ref) {
	m.mu.Lock()
	_, wasDir := m.watched[file.Path()]
	if wasDir {
		delete(m.watched, file.Path())
	}
	m.pending[file.Base()] = &pendingRemoval{
		ref:      file,
		dir:      wasDir,
		deadline: timeNow().Add(m.window),
	}
	m.mu.Unlock()
	m.flusher.arm()
}

// pairWithRemoval consumes a pending removal whose base name matches file's,
// if one is still within its coalescing window; this is the heuristic that
// turns an OS-level remove+create pair into a single move notification.
func (m *Monitor) pairWithRemoval(file fileref.Ref) (fileref.Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removal, ok := m.pending[file.Base()]
	if !ok {
		return fileref.Ref{}, false
	}
	delete(m.pending, file.Base())
	if timeNow().After(removal.deadline) {
		return fileref.Ref{}, false
	}
	return removal.ref, m.statIsDir(file)
}

func (m *Monitor) flushLoop() {
	for range m.flusher.fires() {
		m.flushExpired()
	}
}

func (m *Monitor) flushExpired() {
	now := timeNow()

	m.mu.Lock()
	var expired []*pendingRemoval
	for base, removal := range m.pending {
		if !now.Before(removal.deadline) {
			expired = append(expired, removal)
			delete(m.pending, base)
		}
	}
	m.mu.Unlock()

	for _, removal := range expired {
		sink, _, ok := m.sinkFor(removal.ref)
		if !ok {
			continue
		}
		sink.ItemDeleted(removal.ref, removal.dir)
	}
}

var timeNow = time.Now
