// Package miner provides Miner, the top-level orchestration that wires the
// Event Source Adapter (C1), Indexing Policy Filter (C2), Queue Set (C3),
// Processing Pool (C4), and Scheduler (C5) into the single cooperative
// event loop spec.md §4.4/§5 requires. Host operations, crawl results, queue
// pushes from live Monitor events, scheduler ticks and extractor completions
// are funneled through one command channel serviced by one goroutine. The
// Crawler's Visitor callbacks are not: they run on the crawl's own
// goroutine, and a live event's policy checks run on the Monitor's goroutine
// before its queue push is posted to the loop. The same
// condition-variable-to-channel bridge pattern backs statusTracker, which
// turns Status changes into the WaitForStatusChange poll API.
package miner

import (
	"context"
	"time"

	"github.com/localmesh/fsminer/pkg/logging"
	"github.com/localmesh/fsminer/pkg/miner/crawler"
	"github.com/localmesh/fsminer/pkg/miner/event"
	"github.com/localmesh/fsminer/pkg/miner/extractor"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/monitor"
	"github.com/localmesh/fsminer/pkg/miner/policy"
	"github.com/localmesh/fsminer/pkg/miner/pool"
	"github.com/localmesh/fsminer/pkg/miner/queue"
	"github.com/localmesh/fsminer/pkg/miner/scheduler"
	"github.com/localmesh/fsminer/pkg/miner/source"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// ShutdownWatchdog is how long Shutdown waits for the event loop to drain
// before giving up (spec.md §5's "5-second safety watchdog").
const ShutdownWatchdog = 5 * time.Second

// Status is the host-visible snapshot of pipeline state, polled through
// WaitForStatusChange.
type Status struct {
	Crawling bool
	Progress float64
}

// Config bundles every external collaborator and host-supplied predicate
// the core needs (spec.md §4.6, §6's host surface, §9's "no singletons"
// note — everything arrives through this struct, not package globals).
type Config struct {
	PoolLimit int
	Crawler   crawler.Crawler
	Monitor   monitor.Monitor // optional; nil disables live monitoring
	Extractor extractor.Extractor
	Store     store.Store
	Logger    *logging.Logger

	ShouldCheck      policy.ShouldCheckFunc
	MonitorDirectory policy.MonitorDirectoryFunc
	// IgnoreDirectoryContents implements check_directory_contents.
	IgnoreDirectoryContents func(dir fileref.Ref, children []fileref.Ref) bool
	// Stat returns a file's current on-disk modification time.
	Stat source.StatModTime
	// StatExists reports whether a file currently exists on disk, used by
	// the move handler's target-existence check (spec.md §4.5 step 1).
	StatExists func(fileref.Ref) bool
	// IsLocked reports whether a file is externally locked (spec.md §4.4
	// step 3).
	IsLocked func(fileref.Ref) bool

	OnFinished func(scheduler.Stats)
}

// Miner is the host-facing pipeline instance. All of its exported methods
// are safe for concurrent use: each posts a closure onto the single
// internal command channel rather than mutating state directly.
type Miner struct {
	log       *logging.Logger
	crawler   crawler.Crawler
	monitor   monitor.Monitor
	extractor extractor.Extractor
	store     store.Store

	queue *queue.Set
	pool  *pool.Pool
	sched *scheduler.Scheduler
	adapt *source.Adapter

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan func()
	done   chan struct{}

	pendingTimer *time.Timer

	tasks        []event.DirectoryTask
	crawlActive  bool
	activeCancel context.CancelFunc
	activeRoot   fileref.Ref

	tracker *statusTracker
}

// New creates and starts a Miner. Call Shutdown to stop it.
func New(cfg Config) *Miner {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Miner{
		log:       cfg.Logger,
		crawler:   cfg.Crawler,
		monitor:   cfg.Monitor,
		extractor: cfg.Extractor,
		store:     cfg.Store,
		queue:     queue.New(),
		pool:      pool.New(cfg.PoolLimit),
		ctx:       ctx,
		cancel:    cancel,
		cmds:      make(chan func(), 64),
		done:      make(chan struct{}),
		tracker:   newStatusTracker(),
	}

	filter := policy.New(policy.Predicates{
		ShouldCheck:      cfg.ShouldCheck,
		MonitorDirectory: cfg.MonitorDirectory,
	}, cfg.Store)

	m.adapt = source.New(source.Config{
		Filter:                  filter,
		Store:                   cfg.Store,
		Sink:                    m.queue,
		Dispatch:                m.post,
		Stat:                    cfg.Stat,
		IgnoreDirectoryContents: cfg.IgnoreDirectoryContents,
		ReseedDirectory:         m.reseedDirectory,
		Monitor:                 cfg.Monitor,
		Logger:                  cfg.Logger,
	})

	m.sched = scheduler.New(scheduler.Config{
		Queue:      m.queue,
		Pool:       m.pool,
		Store:      cfg.Store,
		Extractor:  cfg.Extractor,
		Logger:     cfg.Logger,
		IsLocked:   cfg.IsLocked,
		StatExists: cfg.StatExists,
		OnProgress: m.onProgress,
		OnFinished: func(stats scheduler.Stats) {
			m.onCrawlingChanged(false)
			if cfg.OnFinished != nil {
				cfg.OnFinished(stats)
			}
		},
	})

	go m.run()
	return m
}

// post enqueues f to run on the event loop goroutine, serialized with
// every other command (spec.md §5's single cooperative event loop).
func (m *Miner) post(f func()) {
	select {
	case m.cmds <- f:
	case <-m.ctx.Done():
	}
}

func (m *Miner) run() {
	defer close(m.done)
	for {
		select {
		case cmd, ok := <-m.cmds:
			if !ok {
				return
			}
			cmd()
			m.afterCommand()
		case <-m.ctx.Done():
			return
		}
	}
}

// afterCommand arms the next scheduler tick if one isn't already pending.
// Exactly one timer is ever outstanding (spec.md §4.4's "exactly one
// scheduler handler is installed at any time").
func (m *Miner) afterCommand() {
	if m.sched.Paused() || m.pendingTimer != nil {
		return
	}
	m.tickNow()
}

func (m *Miner) tickNow() {
	outcome := m.sched.Tick(m.ctx)
	switch outcome {
	case scheduler.Continue:
		d := m.sched.Delay()
		m.pendingTimer = time.AfterFunc(d, func() {
			m.post(func() {
				m.pendingTimer = nil
				m.tickNow()
			})
		})
	default:
		m.pendingTimer = nil
	}
}

// tearDownTimer cancels any pending scheduler timer so SetThrottle can
// re-arm it at the new interval immediately (spec.md §5).
func (m *Miner) tearDownTimer() {
	if m.pendingTimer != nil {
		m.pendingTimer.Stop()
		m.pendingTimer = nil
	}
}

// AddDirectory implements the host surface's add_directory (spec.md §6).
func (m *Miner) AddDirectory(root fileref.Ref, recurse bool) {
	m.post(func() {
		m.tasks = append(m.tasks, event.DirectoryTask{Root: root, Recurse: recurse})
		m.onCrawlingChanged(true)
		m.maybeStartCrawl()
	})
}

func (m *Miner) reseedDirectory(root fileref.Ref, recurse bool) {
	m.tasks = append(m.tasks, event.DirectoryTask{Root: root, Recurse: recurse})
	m.onCrawlingChanged(true)
	m.maybeStartCrawl()
}

func (m *Miner) maybeStartCrawl() {
	if m.crawlActive || len(m.tasks) == 0 {
		if len(m.tasks) == 0 && !m.crawlActive {
			m.onCrawlingChanged(false)
		}
		return
	}

	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.crawlActive = true

	taskCtx, cancel := context.WithCancel(m.ctx)
	m.activeCancel = cancel
	m.activeRoot = task.Root
	m.adapt.MonitorRoot(taskCtx, task.Root)

	go func() {
		result, err := m.adapt.RunCrawl(taskCtx, m.crawler, task)
		cancel()
		m.post(func() {
			m.applyCrawlResult(task, result, err)
		})
	}()
}

func (m *Miner) applyCrawlResult(_ event.DirectoryTask, result source.CrawlResult, err error) {
	if err != nil && m.log != nil {
		m.log.Warn(err)
	}

	enqueued := 0
	for _, item := range result.Items {
		if !item.Enqueue {
			continue
		}
		m.queue.PushCreated(item.File, item.Dir)
		enqueued++
	}
	m.sched.AddToTotal(enqueued)
	m.sched.AddStats(result.Counts.DirectoriesFound, result.Counts.DirectoriesIgnored,
		result.Counts.FilesFound, result.Counts.FilesIgnored)

	m.crawlActive = false
	m.activeCancel = nil
	m.maybeStartCrawl()
}

// RemoveDirectory implements the host surface's remove_directory (spec.md
// §4.3/§6): purges queued created/updated entries and in-flight jobs under
// root, cancels a running crawl beneath root, and unwatches the monitor.
func (m *Miner) RemoveDirectory(root fileref.Ref) {
	m.post(func() {
		filtered := m.tasks[:0]
		for _, t := range m.tasks {
			if !t.Root.HasPrefix(root) {
				filtered = append(filtered, t)
			}
		}
		m.tasks = filtered

		if m.activeCancel != nil && m.activeRoot.HasPrefix(root) {
			m.activeCancel()
		}

		m.queue.RemoveDirectory(root)
		cancelled := m.pool.CancelUnder(root)
		if m.log != nil {
			for _, job := range cancelled {
				m.log.Tracef("cancelled in-flight job for %s (removed directory %s)", job.File, root)
			}
		}

		if m.monitor != nil {
			m.monitor.Unwatch(root)
		}
	})
}

// SetThrottle implements the host surface's set_throttle (spec.md §5, §6).
func (m *Miner) SetThrottle(t float64) {
	m.post(func() {
		m.sched.SetThrottle(t)
		m.tearDownTimer()
	})
}

// GetThrottle implements the host surface's get_throttle.
func (m *Miner) GetThrottle() float64 {
	resp := make(chan float64, 1)
	m.post(func() { resp <- m.sched.Throttle() })
	select {
	case v := <-resp:
		return v
	case <-m.ctx.Done():
		return 0
	}
}

// Pause stops scheduling new dispatches; in-flight pool jobs keep draining
// (spec.md §5).
func (m *Miner) Pause() {
	m.post(func() {
		m.sched.Pause()
		m.tearDownTimer()
	})
}

// Resume re-arms scheduling.
func (m *Miner) Resume() {
	m.post(func() {
		m.sched.Resume()
	})
}

// NotifyFile implements the host surface's notify_file (spec.md §4.6, §6).
func (m *Miner) NotifyFile(file fileref.Ref, err error) {
	m.post(func() {
		m.sched.NotifyFile(m.ctx, file, err)
	})
}

// Sink returns the monitor.Sink the caller should wire a live Monitor to.
func (m *Miner) Sink() monitor.Sink { return m.adapt }

func (m *Miner) onProgress(ratio float64) {
	m.tracker.mutate(true, func(s *Status) { s.Progress = ratio })
}

func (m *Miner) onCrawlingChanged(active bool) {
	m.sched.SetCrawling(active)
	m.tracker.mutate(true, func(s *Status) { s.Crawling = active })
}

// Status returns the last known progress/crawling snapshot.
func (m *Miner) Status() Status {
	return m.tracker.snapshot()
}

// WaitForStatusChange blocks until Status differs from whatever it was at
// previousIndex (0 requests an immediate read), returning the new index for
// the next call. It is how a CLI or DBus-style surface would poll progress
// without spec.md's core depending on any particular transport.
func (m *Miner) WaitForStatusChange(ctx context.Context, previousIndex uint64) (Status, uint64, error) {
	return m.tracker.waitForChange(ctx, previousIndex)
}

// Shutdown requests termination and waits up to ShutdownWatchdog for the
// event loop to drain (spec.md §5/§7's Fatal policy). It reports whether
// the loop drained cleanly; a caller observing false should treat this as
// the core's Fatal error kind and exit the process forcibly.
func (m *Miner) Shutdown() bool {
	m.cancel()
	m.tracker.terminate()
	select {
	case <-m.done:
		return true
	case <-time.After(ShutdownWatchdog):
		return false
	}
}

// ShutdownRequested reports whether Shutdown has been called.
func (m *Miner) ShutdownRequested() bool { return m.tracker.isTerminated() }
