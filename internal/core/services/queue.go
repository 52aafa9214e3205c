package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// JobHandler processes one ingestion job. A returned error, or a panic,
// is passed to the queue's failure callback; the worker carries on.
type JobHandler func(ctx context.Context, job domain.Job) error

// FailureFunc is called when a job handler fails or panics.
type FailureFunc func(ctx context.Context, job domain.Job, err error)

// IngestionQueue is a FIFO of ingestion jobs drained by exactly one worker.
// Jobs are never retried or re-queued.
type IngestionQueue struct {
	handler   JobHandler
	onFailure FailureFunc

	mu      sync.Mutex
	jobs    []domain.Job
	busy    bool
	running bool
	stopped bool
	wake    chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewIngestionQueue creates a stopped queue. onFailure may be nil.
func NewIngestionQueue(handler JobHandler, onFailure FailureFunc) *IngestionQueue {
	return &IngestionQueue{
		handler:   handler,
		onFailure: onFailure,
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker. Jobs submitted before Start are processed once
// it runs. Calling Start again, or after Stop, does nothing.
func (q *IngestionQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running || q.stopped {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	// Jobs must outlive the request that submitted them.
	workerCtx := context.WithoutCancel(ctx)

	q.wg.Add(1)
	go q.run(ctx, workerCtx)
}

// Stop stops accepting jobs and waits for the in-flight job to finish.
// Jobs still queued are abandoned. Stop is idempotent.
func (q *IngestionQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
}

// Submit appends a job and returns the queue depth after the append.
func (q *IngestionQueue) Submit(job domain.Job) (int, error) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return 0, domain.ErrQueueStopped
	}
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return depth, nil
}

// Depth returns the number of jobs waiting, excluding the one in flight.
func (q *IngestionQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// IsProcessing returns true while the worker is running a job.
func (q *IngestionQueue) IsProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Idle returns true when no job is queued or in flight.
func (q *IngestionQueue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) == 0 && !q.busy
}

// run is the worker loop. ctx only stops the loop; jobs run on workerCtx.
func (q *IngestionQueue) run(ctx, workerCtx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-q.wake:
		}

		for {
			job, ok := q.next()
			if !ok {
				break
			}
			q.process(workerCtx, job)

			select {
			case <-q.stopCh:
				return
			default:
			}
		}
	}
}

// next pops the head of the queue and marks the worker busy.
func (q *IngestionQueue) next() (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped || len(q.jobs) == 0 {
		return domain.Job{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = domain.Job{}
	q.jobs = q.jobs[1:]
	q.busy = true
	return job, true
}

func (q *IngestionQueue) process(ctx context.Context, job domain.Job) {
	defer func() {
		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
	}()

	if err := q.safeHandle(ctx, job); err != nil {
		logger.Error("ingest %s (%s): %v", job.Filename, job.FileID, err)
		if q.onFailure != nil {
			q.onFailure(ctx, job, err)
		}
	}
}

func (q *IngestionQueue) safeHandle(ctx context.Context, job domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("ingest panic stack:\n%s", debug.Stack())
			err = fmt.Errorf("panic while processing: %v", r)
		}
	}()
	return q.handler(ctx, job)
}
