// Package scheduler implements the throttle-aware tick loop (C5) that
// drains the Queue Set (C3) into the Processing Pool (C4), the recursive
// rename propagation of spec.md §4.5, and the freshness/idle bookkeeping
// that drives the Finished signal.
//
// Scheduler itself holds no goroutine: Tick performs exactly one unit of
// work and reports what the caller's single event loop (pkg/miner.Miner)
// should do next, mirroring "exactly one scheduler handler is installed at
// any time" (spec.md §4.4). Store queries and batch updates are invoked
// synchronously from whichever goroutine calls Tick/NotifyFile; since all
// such calls are funneled through the host's single command channel, the
// concurrency contract of spec.md §5 still holds — only the duration of a
// store round trip changes from "some time after this call returns" to
// "before this call returns", and callers must still re-check queue/pool
// state on every resumption, exactly as the spec requires, since other
// goroutines (monitor, extractor) may have queued new commands meanwhile.
package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/localmesh/fsminer/pkg/logging"
	"github.com/localmesh/fsminer/pkg/miner/event"
	"github.com/localmesh/fsminer/pkg/miner/extractor"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/pool"
	"github.com/localmesh/fsminer/pkg/miner/queue"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// MaxTimeoutInterval is the upper bound of the throttle delay: a throttle
// of 1.0 waits this long between dispatches (spec.md §5).
const MaxTimeoutInterval = 2 * time.Second

// Sentinel errors for the error-kind table in spec.md §7.
var (
	ErrJobNotFound                = errors.New("no in-flight job for file")
	ErrExtractorContractViolation = errors.New("process_file/notify_file contract violated")
)

// ContractViolationError reports an ExtractorContractViolation (spec.md §7):
// process_file returned false after notify_file had already fired for the
// same file.
type ContractViolationError struct {
	File fileref.Ref
}

func (e *ContractViolationError) Error() string {
	return "extractor contract violated for " + e.File.String()
}

func (e *ContractViolationError) Unwrap() error { return ErrExtractorContractViolation }

// Outcome reports what Tick did, so the caller's event loop knows whether
// (and how soon) to call Tick again.
type Outcome int

const (
	// Continue means an item was dispatched; reschedule after the
	// throttle delay.
	Continue Outcome = iota
	// WaitPool means the pool is full; do not reschedule until
	// NotifyFile frees a slot.
	WaitPool
	// Idle means the queues are empty. If additionally no crawl is active
	// and the pool is empty, process_stop has run (once per transition to
	// idle). Do not reschedule until new work arrives.
	Idle
	// Paused means the scheduler is paused; do not reschedule until
	// Resume is called.
	Paused
)

// Stats is the payload of the Finished signal (spec.md §6).
type Stats struct {
	Elapsed            time.Duration
	DirectoriesFound   int
	DirectoriesIgnored int
	FilesFound         int
	FilesIgnored       int
}

// Config bundles the Scheduler's collaborators.
type Config struct {
	Queue     *queue.Set
	Pool      *pool.Pool
	Store     store.Store
	Extractor extractor.Extractor
	Logger    *logging.Logger

	// IsLocked reports whether file is externally locked (spec.md §4.4
	// step 3); a locked file is skipped but the scheduler stays
	// scheduled. A nil func means nothing is ever locked.
	IsLocked func(file fileref.Ref) bool
	// StatExists reports whether file currently exists on disk, used by
	// the in-place rename's target-existence check (spec.md §4.5 step 1).
	StatExists func(file fileref.Ref) bool

	// OnProgress is invoked with a monotonic ratio in [0,1] whenever
	// progress changes, rate-limited to once per wall-clock second
	// (spec.md §4.4 "Progress updates").
	OnProgress func(ratio float64)
	// OnFinished is invoked exactly once per crawl transition from
	// active to idle (spec.md §6's finished signal).
	OnFinished func(Stats)
}

// Scheduler is C4+C5: it owns no goroutine and is safe to call only from
// the single cooperative event loop described in spec.md §4.4/§5.
type Scheduler struct {
	queue     *queue.Set
	pool      *pool.Pool
	store     store.Store
	extractor extractor.Extractor
	log       *logging.Logger

	isLocked   func(fileref.Ref) bool
	statExists func(fileref.Ref) bool
	onProgress func(float64)
	onFinished func(Stats)

	throttle float64
	paused   bool

	// crawling is true while at least one DirectoryTask is outstanding
	// (tracked by the caller via SetCrawling); when it drops to false
	// with an empty pool, the next Tick triggers process_stop.
	crawling bool
	// beenCrawled latches true at the first process_stop and never
	// resets: it governs whether successful updates commit immediately
	// (spec.md §4.4's "After the initial crawl has finished").
	beenCrawled bool
	// appliedThisRun tracks whether any store.Apply happened since the
	// current crawl started, so process_stop's commit is skipped on a
	// no-op rescan (spec.md §8 seed test 2: "the store's commit count
	// must not increase").
	appliedThisRun bool
	// stopped is true once process_stop has run for the current idle
	// period; it is cleared when a crawl starts or an item is dequeued.
	stopped bool

	// total/remaining track spec.md §3 invariant 5's progress ratio.
	// total is set by AddToTotal as the crawl discovers work; remaining
	// is recomputed from live queue/pool occupancy on every progress
	// check.
	total            int
	lastProgress     float64
	lastProgressTime time.Time

	runStart time.Time
	stats    Stats
}

// New creates a Scheduler. The in-flight limit is the one cfg.Pool was
// created with; throttle starts at 0 (no delay).
func New(cfg Config) *Scheduler {
	return &Scheduler{
		queue:      cfg.Queue,
		pool:       cfg.Pool,
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		log:        cfg.Logger,
		isLocked:   cfg.IsLocked,
		statExists: cfg.StatExists,
		onProgress: cfg.OnProgress,
		onFinished: cfg.OnFinished,
	}
}

// Throttle returns the current throttle factor.
func (s *Scheduler) Throttle() float64 { return s.throttle }

// SetThrottle updates the throttle factor, clamped to [0,1]. Changes take
// effect on the next Tick's returned delay (spec.md §5: "any pending timer
// must be torn down and re-armed with the new interval" — the caller's
// event loop is responsible for that, since Scheduler owns no timer).
func (s *Scheduler) SetThrottle(t float64) {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	s.throttle = t
}

// Delay is the wait the caller should insert before the next Tick when
// Outcome is Continue (spec.md §4.4 step 5).
func (s *Scheduler) Delay() time.Duration {
	return time.Duration(s.throttle * float64(MaxTimeoutInterval))
}

// Pause stops scheduling (spec.md §5's Pause/Resume). The pool continues
// draining in-flight jobs; only new dispatches stop.
func (s *Scheduler) Pause() { s.paused = true }

// Resume re-arms scheduling if there is anything left to do.
func (s *Scheduler) Resume() { s.paused = false }

// Paused reports whether the scheduler is currently paused.
func (s *Scheduler) Paused() bool { return s.paused }

// SetCrawling marks whether a crawl is currently in flight. The caller
// (Miner) flips this as DirectoryTasks are started and as they complete.
func (s *Scheduler) SetCrawling(active bool) {
	if active && !s.crawling {
		s.runStart = time.Now()
		s.stats = Stats{}
		s.appliedThisRun = false
		s.stopped = false
	}
	s.crawling = active
}

// AddToTotal grows the progress denominator as the crawl discovers new
// work (spec.md §3 invariant 5). AddStats folds crawl counters in.
func (s *Scheduler) AddToTotal(n int) { s.total += n }

// AddStats folds a crawl batch's counters into the cumulative run stats.
func (s *Scheduler) AddStats(dirsFound, dirsIgnored, filesFound, filesIgnored int) {
	s.stats.DirectoriesFound += dirsFound
	s.stats.DirectoriesIgnored += dirsIgnored
	s.stats.FilesFound += filesFound
	s.stats.FilesIgnored += filesIgnored
}

// Tick performs exactly one scheduler step (spec.md §4.4's
// item_queue_handlers_cb) and reports what the caller should do next.
func (s *Scheduler) Tick(ctx context.Context) Outcome {
	if s.paused {
		return Paused
	}
	if s.pool.Full() {
		return WaitPool
	}

	item := s.queue.Dequeue()
	if item.Kind == queue.None {
		if !s.crawling && s.pool.Len() == 0 {
			if !s.stopped {
				s.processStop(ctx)
				s.stopped = true
			}
			return Idle
		}
		return Idle
	}
	s.stopped = false

	file := item.File
	if item.Kind == queue.KindMoved {
		file = item.Move.From
	}
	if s.isLocked != nil && s.isLocked(file) {
		s.log.Tracef("skipping locked file %s; leaving it queued", file)
		s.requeue(item)
		return Continue
	}

	switch item.Kind {
	case queue.KindDeleted:
		s.dispatchDeleted(ctx, item.File, item.Dir)
	case queue.KindCreated, queue.KindUpdated:
		s.dispatchProcess(ctx, item.File, item.Dir)
	case queue.KindMoved:
		s.dispatchMoved(ctx, item.Move)
	}

	s.updateProgress()
	return Continue
}

// requeue puts a locked item (spec.md §4.4 step 3) back onto its queue so
// it is retried on a later tick rather than lost.
func (s *Scheduler) requeue(item queue.Item) {
	switch item.Kind {
	case queue.KindDeleted:
		s.queue.PushDeleted(item.File, item.Dir)
	case queue.KindCreated:
		s.queue.PushCreated(item.File, item.Dir)
	case queue.KindUpdated:
		s.queue.PushUpdated(item.File, item.Dir)
	case queue.KindMoved:
		s.queue.PushMoved(item.Move.From, item.Move.To, item.Move.Dir)
	}
}

// dispatchDeleted issues the two-statement DELETE of spec.md §6, after a
// freshness check that skips files already absent (spec.md §4.4 step 4).
func (s *Scheduler) dispatchDeleted(ctx context.Context, file fileref.Ref, _ bool) {
	uri := file.URI()
	exists, err := s.store.Exists(ctx, uri)
	if err != nil {
		s.log.Critical(errors.Wrap(err, "store query failed during delete"))
		return
	}
	if !exists {
		return
	}

	batch := (&store.Batch{}).Add(store.DeleteContainer{URI: uri})
	if err := s.store.Apply(ctx, batch); err != nil {
		s.log.Critical(errors.Wrap(err, "store update failed during delete"))
		return
	}
	s.appliedThisRun = true
	s.commitIfLive(ctx)
}

// dispatchProcess opens a ProcessJob and invokes the extractor (spec.md
// §4.4 step 4's Created/Updated case, §4.6's contract).
func (s *Scheduler) dispatchProcess(ctx context.Context, file fileref.Ref, _ bool) {
	job, ok := s.pool.Start(ctx, file)
	if !ok {
		s.log.Tracef("dropping duplicate in-flight job for %s", file)
		return
	}

	accepted := s.extractor.ProcessFile(job.Context(), file, job.Builder)
	_, stillInFlight := s.pool.Lookup(file)

	switch {
	case !accepted && stillInFlight:
		s.pool.Complete(file)
	case !accepted && !stillInFlight:
		// notify_file already fired (and completed the job) before
		// process_file returned false: an implementation error on the
		// extractor's part (spec.md §7's ExtractorContractViolation).
		s.log.Critical(&ContractViolationError{File: file})
	}
}

// dispatchMoved performs the in-place rename of spec.md §4.5 for a move
// whose both endpoints were already resolved as tracked-and-accepted by
// the Event Source Adapter; anything else never reaches the moved queue.
func (s *Scheduler) dispatchMoved(ctx context.Context, move event.ItemMoved) {
	if s.statExists != nil && !s.statExists(move.To) {
		s.dispatchDeleted(ctx, move.From, move.Dir)
		return
	}

	sourceURI := move.From.URI()
	targetURI := move.To.URI()

	rewrites, err := s.collectDescendantRewrites(ctx, sourceURI, targetURI)
	if err != nil {
		s.log.Critical(errors.Wrap(err, "store query failed during move recursion; move abandoned"))
		return
	}

	batch := (&store.Batch{}).Add(store.RenameResource{
		SourceURI:     sourceURI,
		TargetURI:     targetURI,
		DisplayName:   move.To.Base(),
		ChildRewrites: rewrites,
	})
	if err := s.store.Apply(ctx, batch); err != nil {
		s.log.Critical(errors.Wrap(err, "store update failed during move"))
		return
	}
	s.appliedThisRun = true
	s.commitIfLive(ctx)
}

// collectDescendantRewrites walks the belongsToContainer tree under
// sourceURI breadth-first, reconstructing each descendant's new URI by
// string substitution (spec.md §4.5 step 3/§9): new_child :=
// target_uri ++ child_uri[len(source_uri):]. This linearizes the source's
// reentrant nested event loop into a single pass, which spec.md §9's open
// question permits as long as the resulting batch is identical.
func (s *Scheduler) collectDescendantRewrites(ctx context.Context, sourceURI, targetURI string) ([]store.ChildRewrite, error) {
	var rewrites []store.ChildRewrite
	frontier := []string{sourceURI}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		children, err := s.store.Children(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if !strings.HasPrefix(child, sourceURI) {
				s.log.Warnf("skipping descendant URI %q: does not start with %q", child, sourceURI)
				continue
			}
			newChild := targetURI + child[len(sourceURI):]
			rewrites = append(rewrites, store.ChildRewrite{Old: child, New: newChild})
			frontier = append(frontier, child)
		}
	}
	return rewrites, nil
}

// NotifyFile implements the host surface's notify_file (spec.md §4.6): the
// extractor reports that a ProcessJob either succeeded (err == nil) or
// failed. On success, DROP GRAPH <uri> ⨁ builder is submitted as one batch.
func (s *Scheduler) NotifyFile(ctx context.Context, file fileref.Ref, err error) {
	job, ok := s.pool.Lookup(file)
	if !ok {
		s.log.Critical(&ContractViolationError{File: file})
		return
	}

	if err != nil {
		s.log.Infof("extraction failed for %s: %v", file, err)
		s.pool.Complete(file)
		return
	}

	batch := (&store.Batch{}).Add(store.ReplaceGraph{
		URI:        file.URI(),
		Statements: job.Builder.Statements(),
	})
	if applyErr := s.store.Apply(ctx, batch); applyErr != nil {
		s.log.Critical(errors.Wrap(applyErr, "store update failed committing extraction"))
		s.pool.Complete(file)
		return
	}
	s.appliedThisRun = true
	s.pool.Complete(file)
	s.commitIfLive(ctx)
}

// commitIfLive commits immediately once the initial crawl has finished;
// during the initial crawl, commits only happen at process_stop (spec.md
// §4.4).
func (s *Scheduler) commitIfLive(ctx context.Context) {
	if !s.beenCrawled {
		return
	}
	if err := s.store.Commit(ctx); err != nil {
		s.log.Critical(errors.Wrap(err, "store commit failed"))
	}
}

// processStop logs stats, commits if anything changed, and fires Finished
// (spec.md §4.4 step 2's idle transition; §8 seed test 2's no-op rescan
// must not add a commit).
func (s *Scheduler) processStop(ctx context.Context) {
	if s.appliedThisRun {
		if err := s.store.Commit(ctx); err != nil {
			s.log.Critical(errors.Wrap(err, "store commit failed at process_stop"))
		}
	}
	s.appliedThisRun = false

	elapsed := time.Since(s.runStart)
	s.beenCrawled = true
	if s.log != nil {
		s.log.Infof("finished in %s: %s files, %s directories",
			elapsed.Round(time.Millisecond),
			humanize.Comma(int64(s.stats.FilesFound)),
			humanize.Comma(int64(s.stats.DirectoriesFound)))
	}

	s.lastProgress = 1.0
	if s.onProgress != nil {
		s.onProgress(1.0)
	}
	if s.onFinished != nil {
		s.onFinished(Stats{
			Elapsed:            elapsed,
			DirectoriesFound:   s.stats.DirectoriesFound,
			DirectoriesIgnored: s.stats.DirectoriesIgnored,
			FilesFound:         s.stats.FilesFound,
			FilesIgnored:       s.stats.FilesIgnored,
		})
	}
	s.total = 0
}

// updateProgress recomputes the progress ratio and invokes OnProgress,
// rate-limited to once per wall-clock second (spec.md §4.4).
func (s *Scheduler) updateProgress() {
	if s.onProgress == nil || s.total <= 0 {
		return
	}
	remaining := s.queue.Len() + s.pool.Len()
	ratio := float64(s.total-remaining) / float64(s.total)
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	if ratio < s.lastProgress {
		ratio = s.lastProgress // monotonic nondecreasing (spec.md §3 invariant 5)
	}

	now := time.Now()
	if ratio != s.lastProgress && (s.lastProgressTime.IsZero() || now.Sub(s.lastProgressTime) >= time.Second) {
		s.lastProgress = ratio
		s.lastProgressTime = now
		s.onProgress(ratio)
	}
}

// BeenCrawled reports whether the initial crawl has completed at least once.
func (s *Scheduler) BeenCrawled() bool { return s.beenCrawled }
