package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/extractor"
	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/pool"
	"github.com/localmesh/fsminer/pkg/miner/queue"
	"github.com/localmesh/fsminer/pkg/miner/scheduler"
	"github.com/localmesh/fsminer/pkg/miner/store"
	"github.com/localmesh/fsminer/pkg/miner/store/memstore"
)

func acceptingExtractor() extractor.Func {
	return func(_ context.Context, _ fileref.Ref, builder *store.MutationBuilder) bool {
		builder.Add("nfo:fileName", "stub")
		return true
	}
}

func TestTickDispatchesPriorityOrder(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()

	a := fileref.New("/root/a.txt")
	b := fileref.New("/root/b.txt")
	q.PushCreated(a, false)
	q.PushDeleted(b, false)

	var dispatched []fileref.Ref
	sched := scheduler.New(scheduler.Config{
		Queue: q,
		Pool:  p,
		Store: s,
		Extractor: extractor.Func(func(_ context.Context, file fileref.Ref, builder *store.MutationBuilder) bool {
			dispatched = append(dispatched, file)
			return true
		}),
	})

	sched.Tick(context.Background())
	// Deleted(b) wins priority even though it was pushed second, and since
	// b was never in the store it's a freshness-check no-op — only a.txt
	// reaches the extractor on the following tick.
	require.Empty(t, dispatched)

	outcome := sched.Tick(context.Background())
	require.Equal(t, scheduler.Continue, outcome)
	require.Equal(t, []fileref.Ref{a}, dispatched)
}

func TestNotifyFileAppliesReplaceGraph(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()
	file := fileref.New("/root/a.txt")
	q.PushCreated(file, false)

	sched := scheduler.New(scheduler.Config{
		Queue:     q,
		Pool:      p,
		Store:     s,
		Extractor: acceptingExtractor(),
	})

	sched.Tick(context.Background())
	require.Equal(t, 1, p.Len())

	sched.NotifyFile(context.Background(), file, nil)
	require.Equal(t, 0, p.Len())
	require.True(t, s.Has(file.URI()))
}

func TestDeletedSkipsAbsentFile(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()
	file := fileref.New("/root/ghost.txt")
	q.PushDeleted(file, false)

	sched := scheduler.New(scheduler.Config{Queue: q, Pool: p, Store: s})
	sched.Tick(context.Background())
	require.Equal(t, 0, s.ApplyCount)
}

func TestDeletedIssuesTwoStatementDelete(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()
	file := fileref.New("/root/a.txt")
	s.Seed(file.URI(), "", "a.txt", time.Unix(0, 0))
	q.PushDeleted(file, false)

	sched := scheduler.New(scheduler.Config{Queue: q, Pool: p, Store: s})
	sched.Tick(context.Background())
	require.False(t, s.Has(file.URI()))
	require.Equal(t, 1, s.ApplyCount)
}

func TestPoolFullWaitsBeforeDequeue(t *testing.T) {
	q := queue.New()
	p := pool.New(1)
	s := memstore.New()

	busy := fileref.New("/root/busy.txt")
	_, ok := p.Start(context.Background(), busy)
	require.True(t, ok)

	q.PushCreated(fileref.New("/root/a.txt"), false)
	sched := scheduler.New(scheduler.Config{Queue: q, Pool: p, Store: s, Extractor: acceptingExtractor()})

	outcome := sched.Tick(context.Background())
	require.Equal(t, scheduler.WaitPool, outcome)
	require.Equal(t, 1, q.Len(), "item must remain queued while the pool is full")
}

func TestIdleTriggersProcessStopAndFinished(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()

	var finished *scheduler.Stats
	sched := scheduler.New(scheduler.Config{
		Queue: q, Pool: p, Store: s,
		OnFinished: func(stats scheduler.Stats) { finished = &stats },
	})
	sched.SetCrawling(false)

	outcome := sched.Tick(context.Background())
	require.Equal(t, scheduler.Idle, outcome)
	require.NotNil(t, finished)
	require.Equal(t, 0, s.CommitCount, "process_stop must not commit when nothing was applied this run")
}

func TestIdleRescanWithNoWritesSkipsCommit(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()
	file := fileref.New("/root/a.txt")
	s.Seed(file.URI(), "", "a.txt", time.Unix(0, 0))

	var finished *scheduler.Stats
	sched := scheduler.New(scheduler.Config{
		Queue: q, Pool: p, Store: s,
		Extractor:  acceptingExtractor(),
		StatExists: func(fileref.Ref) bool { return true },
		OnFinished: func(stats scheduler.Stats) { finished = &stats },
	})

	sched.SetCrawling(true)
	sched.AddToTotal(0)
	sched.SetCrawling(false)

	outcome := sched.Tick(context.Background())
	require.Equal(t, scheduler.Idle, outcome)
	require.NotNil(t, finished)
	require.Equal(t, 0, s.CommitCount, "a rescan that dispatched nothing must not increase the commit count")
}

func TestLockedFileIsSkippedButRemainsScheduled(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()
	file := fileref.New("/root/locked.txt")
	q.PushCreated(file, false)

	sched := scheduler.New(scheduler.Config{
		Queue: q, Pool: p, Store: s,
		Extractor: acceptingExtractor(),
		IsLocked:  func(f fileref.Ref) bool { return f.Equal(file) },
	})

	outcome := sched.Tick(context.Background())
	require.Equal(t, scheduler.Continue, outcome)
	require.Equal(t, 0, p.Len(), "locked file must not be dispatched into the pool")
	require.Equal(t, 1, q.Len(), "locked file must remain queued for a later tick")
}

func TestMoveRecursesChildRewrites(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()

	src := fileref.New("/root/sub")
	dst := fileref.New("/root/new")
	child := fileref.New("/root/sub/c.txt")

	s.Seed(src.URI(), "", "sub", time.Unix(0, 0))
	s.Seed(child.URI(), src.URI(), "c.txt", time.Unix(0, 0))

	q.PushMoved(src, dst, true)
	sched := scheduler.New(scheduler.Config{
		Queue: q, Pool: p, Store: s,
		StatExists: func(fileref.Ref) bool { return true },
	})

	sched.Tick(context.Background())
	require.True(t, s.Has(dst.URI()))
	require.False(t, s.Has(src.URI()))
	require.True(t, s.Has(dst.URI()+"/c.txt"))
	require.False(t, s.Has(child.URI()))
}

func TestMoveFallsBackToDeleteWhenTargetGone(t *testing.T) {
	q := queue.New()
	p := pool.New(4)
	s := memstore.New()

	src := fileref.New("/root/sub")
	dst := fileref.New("/root/new")
	s.Seed(src.URI(), "", "sub", time.Unix(0, 0))

	q.PushMoved(src, dst, true)
	sched := scheduler.New(scheduler.Config{
		Queue: q, Pool: p, Store: s,
		StatExists: func(fileref.Ref) bool { return false },
	})

	sched.Tick(context.Background())
	require.False(t, s.Has(src.URI()))
	require.False(t, s.Has(dst.URI()))
}

func TestThrottleClampedAndDelayScalesWithMaxInterval(t *testing.T) {
	sched := scheduler.New(scheduler.Config{Queue: queue.New(), Pool: pool.New(1), Store: memstore.New()})

	sched.SetThrottle(2)
	require.Equal(t, 1.0, sched.Throttle())
	require.Equal(t, scheduler.MaxTimeoutInterval, sched.Delay())

	sched.SetThrottle(0)
	require.Equal(t, time.Duration(0), sched.Delay())
}
