package miner

import (
	"context"
	"errors"
	"sync"
)

// errTrackingTerminated is returned from waitForChange when Shutdown has
// already been called: there will never be another status change to report.
var errTrackingTerminated = errors.New("miner shut down")

// statusPollRequest represents one WaitForStatusChange call parked in
// statusTracker.polls, waiting for Status to move past previousIndex.
type statusPollRequest struct {
	previousIndex uint64
	responses     chan<- statusPollResponse
}

type statusPollResponse struct {
	status     Status
	index      uint64
	terminated bool
}

// statusTracker holds the Miner's host-visible Status and notifies pollers
// waiting on WaitForStatusChange whenever it changes. It plays the same
// condition-variable-to-channel bridging role the mining pipeline needs
// index-based change tracking for, but it tracks exactly Status rather than
// an opaque caller-defined value: a crawl/idle transition or a progress
// update is what drives the index forward here, not a generic "state
// changed" signal from an unrelated caller.
type statusTracker struct {
	cond *sync.Cond

	current    Status
	index      uint64
	terminated bool

	polls map[*statusPollRequest]bool
	done  chan struct{}
}

// newStatusTracker creates a tracker with an initial status index of 1 and
// starts its background dispatch loop. Call terminate to stop it.
func newStatusTracker() *statusTracker {
	t := &statusTracker{
		cond:  sync.NewCond(&sync.Mutex{}),
		index: 1,
		polls: make(map[*statusPollRequest]bool),
		done:  make(chan struct{}),
	}
	go t.dispatch()
	return t
}

// dispatch is the tracker's run loop: it serves as a bridge between
// sync.Cond's broadcast-on-every-change model and the channel-based
// WaitForStatusChange API the host surface needs.
func (t *statusTracker) dispatch() {
	defer close(t.done)

	t.cond.L.Lock()
	defer t.cond.L.Unlock()

	for {
		if t.terminated {
			response := statusPollResponse{t.current, t.index, true}
			for p := range t.polls {
				p.responses <- response
				delete(t.polls, p)
			}
			return
		}

		for p := range t.polls {
			if p.previousIndex != t.index {
				p.responses <- statusPollResponse{t.current, t.index, false}
				delete(t.polls, p)
			}
		}

		t.cond.Wait()
	}
}

// mutate applies fn to the current status under the tracker's lock and, if
// notify is true, advances the status index and wakes the dispatch loop so
// any parked WaitForStatusChange callers can observe the change. Crawl/idle
// transitions and progress updates both flow through here with
// notify=true. Snapshot reads (Status()) do not call mutate at all, so a
// plain read of the last-known value never counts as a change.
func (t *statusTracker) mutate(notify bool, fn func(*Status)) {
	t.cond.L.Lock()
	fn(&t.current)
	if notify {
		t.index++
		if t.index == 0 {
			t.index = 1
		}
		t.cond.Signal()
	}
	t.cond.L.Unlock()
}

// snapshot returns the current status without advancing the index.
func (t *statusTracker) snapshot() Status {
	t.cond.L.Lock()
	defer t.cond.L.Unlock()
	return t.current
}

// waitForChange polls for a status index change from previousIndex,
// returning the status as of the change along with the new index. A
// previousIndex of 0 requests an immediate read. If Shutdown has already
// been called (or is called while this poll is outstanding), it returns
// errTrackingTerminated; if ctx is cancelled first, it returns
// ctx.Err().
func (t *statusTracker) waitForChange(ctx context.Context, previousIndex uint64) (Status, uint64, error) {
	if previousIndex == 0 {
		t.cond.L.Lock()
		defer t.cond.L.Unlock()
		if t.terminated {
			return t.current, t.index, errTrackingTerminated
		}
		return t.current, t.index, nil
	}

	t.cond.L.Lock()
	if t.terminated {
		status, index := t.current, t.index
		t.cond.L.Unlock()
		return status, index, errTrackingTerminated
	}

	responses := make(chan statusPollResponse, 1)
	request := &statusPollRequest{previousIndex, responses}
	t.polls[request] = true
	t.cond.Signal()
	t.cond.L.Unlock()

	select {
	case <-ctx.Done():
		t.cond.L.Lock()
		delete(t.polls, request)
		t.cond.L.Unlock()
		return t.snapshot(), previousIndex, ctx.Err()
	case response := <-responses:
		if response.terminated {
			return response.status, response.index, errTrackingTerminated
		}
		return response.status, response.index, nil
	}
}

// terminate stops the dispatch loop and releases every parked poller with
// errTrackingTerminated, then waits for the loop to exit. It's the status
// side of Miner.Shutdown: once called, isTerminated() reports true.
func (t *statusTracker) terminate() {
	t.cond.L.Lock()
	t.terminated = true
	t.cond.Signal()
	t.cond.L.Unlock()
	<-t.done
}

// isTerminated reports whether terminate has been called, standing in for
// the host surface's ShutdownRequested query.
func (t *statusTracker) isTerminated() bool {
	t.cond.L.Lock()
	defer t.cond.L.Unlock()
	return t.terminated
}
