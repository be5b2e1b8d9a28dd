// Package pool implements the Processing Pool (C4): a bounded set of
// in-flight ProcessJobs, each owning a cancellation token and a mutation
// buffer, enforced as a hard cap via a semaphore (spec.md §3 invariant 2).
package pool

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
	"github.com/localmesh/fsminer/pkg/miner/store"
)

// Job is a single in-flight unit of extraction work. At most one Job exists
// per FileRef at any instant (spec.md §3's ProcessJob invariant), enforced
// by Pool.Start refusing a second Start for the same file.
type Job struct {
	// ID uniquely identifies the job for logging and correlating
	// notifications.
	ID string
	// File is the subject of this job.
	File fileref.Ref
	// Builder accumulates the extractor's triples for this file.
	Builder *store.MutationBuilder

	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the job's cancellation context. The extractor and any
// store I/O issued on behalf of this job should select on ctx.Done() so
// that cancelling the job (via remove_directory) aborts outstanding work
// (spec.md §5's cancellation contract).
func (j *Job) Context() context.Context {
	return j.ctx
}

// Cancel fires the job's cancellation token.
func (j *Job) Cancel() {
	j.cancel()
}

// Pool holds the bounded set of in-flight jobs.
type Pool struct {
	limit int
	sem   *semaphore.Weighted
	jobs  map[string]*Job
}

// New creates a Pool that allows at most limit concurrent jobs. limit must
// be at least 1.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{
		limit: limit,
		sem:   semaphore.NewWeighted(int64(limit)),
		jobs:  make(map[string]*Job),
	}
}

// Len reports the number of jobs currently in flight.
func (p *Pool) Len() int {
	return len(p.jobs)
}

// Full reports whether the pool is at its configured limit.
func (p *Pool) Full() bool {
	return len(p.jobs) >= p.limit
}

// Start reserves a pool slot and creates a Job for file, deriving its
// cancellation context from parent. It returns ok == false if the pool is
// full or a job for file is already in flight.
func (p *Pool) Start(parent context.Context, file fileref.Ref) (*Job, bool) {
	key := file.Path()
	if _, exists := p.jobs[key]; exists {
		return nil, false
	}
	if !p.sem.TryAcquire(1) {
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	job := &Job{
		ID:      uuid.NewString(),
		File:    file,
		Builder: store.NewMutationBuilder(),
		ctx:     ctx,
		cancel:  cancel,
	}
	p.jobs[key] = job
	return job, true
}

// Lookup returns the in-flight job for file, if any.
func (p *Pool) Lookup(file fileref.Ref) (*Job, bool) {
	job, ok := p.jobs[file.Path()]
	return job, ok
}

// Complete removes file's job from the pool and releases its slot. It is a
// no-op if no job is in flight for file. The job's context is cancelled to
// release any resources derived from it.
func (p *Pool) Complete(file fileref.Ref) {
	key := file.Path()
	job, ok := p.jobs[key]
	if !ok {
		return
	}
	delete(p.jobs, key)
	job.cancel()
	p.sem.Release(1)
}

// CancelUnder fires the cancellation token of, and removes, every job whose
// file is root or a descendant of root (spec.md §4.3's remove_directory
// contract). It returns the cancelled jobs for logging.
func (p *Pool) CancelUnder(root fileref.Ref) []*Job {
	var cancelled []*Job
	for key, job := range p.jobs {
		if job.File.HasPrefix(root) {
			job.cancel()
			delete(p.jobs, key)
			p.sem.Release(1)
			cancelled = append(cancelled, job)
		}
	}
	return cancelled
}
