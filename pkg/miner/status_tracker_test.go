package miner

import (
	"context"
	"errors"
	"testing"
	"time"
)

const statusTrackerTestTimeout = 1 * time.Second

func TestStatusTrackerReportsCrawlingChange(t *testing.T) {
	tracker := newStatusTracker()
	defer tracker.terminate()

	handoff := make(chan bool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		status, index, err := tracker.waitForChange(context.Background(), 1)
		if err != nil || index != 2 || !status.Crawling {
			handoff <- false
			return
		}
		handoff <- true

		_, stillIndex, err := tracker.waitForChange(ctx, index)
		if !errors.Is(err, context.Canceled) || stillIndex != index {
			handoff <- false
			return
		}
		handoff <- true

		_, _, err = tracker.waitForChange(context.Background(), stillIndex)
		handoff <- errors.Is(err, errTrackingTerminated)
	}()

	tracker.mutate(true, func(s *Status) { s.Crawling = true })
	select {
	case ok := <-handoff:
		if !ok {
			t.Fatal("received failure waiting on crawl status change")
		}
	case <-time.After(statusTrackerTestTimeout):
		t.Fatal("timeout waiting on crawl status change")
	}

	cancel()
	select {
	case ok := <-handoff:
		if !ok {
			t.Fatal("received failure on cancelled wait")
		}
	case <-time.After(statusTrackerTestTimeout):
		t.Fatal("timeout on cancelled wait")
	}

	tracker.terminate()
	select {
	case ok := <-handoff:
		if !ok {
			t.Fatal("received failure on termination")
		}
	case <-time.After(statusTrackerTestTimeout):
		t.Fatal("timeout on termination")
	}

	if !tracker.isTerminated() {
		t.Fatal("tracker should report terminated after terminate()")
	}
}

func TestStatusTrackerMutateWithoutNotifySkipsPollers(t *testing.T) {
	tracker := newStatusTracker()
	defer tracker.terminate()

	handoff := make(chan bool)
	go func() {
		_, index, err := tracker.waitForChange(context.Background(), 1)
		handoff <- err == nil && index == 2
	}()

	// A notify=false mutation (a plain snapshot read never does this, but
	// exercising it directly here) must not wake pollers.
	tracker.mutate(false, func(s *Status) { s.Progress = 0.25 })
	select {
	case <-handoff:
		t.Fatal("poller woke on a non-notifying mutation")
	case <-time.After(50 * time.Millisecond):
	}

	tracker.mutate(true, func(s *Status) { s.Progress = 0.5 })
	select {
	case ok := <-handoff:
		if !ok {
			t.Fatal("poller did not observe the notifying mutation")
		}
	case <-time.After(statusTrackerTestTimeout):
		t.Fatal("timeout waiting on notifying mutation")
	}

	snap := tracker.snapshot()
	if snap.Progress != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", snap.Progress)
	}
}
