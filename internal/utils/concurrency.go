package utils

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a function to be executed by a worker.
// It returns a generic interface{} result and an error.
type Job func() (interface{}, error)

// WorkerPool manages a pool of goroutines to perform tasks concurrently.
type WorkerPool struct {
	numWorkers int
	jobQueue   chan Job
	results    chan interface{}
	errors     chan error
	quit       chan struct{} // closed by Close so blocked Submits wake up
	ctx        context.Context
	cancel     context.CancelFunc
	shutdownWg sync.WaitGroup
	producers  sync.WaitGroup // in-flight Submits; jobQueue closes only after these drain
	mu         sync.Mutex     // protects isClosed
	isClosed   bool
	closeOnce  sync.Once
}

// NewWorkerPool creates and starts a new WorkerPool.
func NewWorkerPool(parentCtx context.Context, numWorkers int, queueSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(parentCtx)
	wp := &WorkerPool{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, queueSize),
		results:    make(chan interface{}, queueSize),
		errors:     make(chan error, queueSize),
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}

	wp.start()
	return wp
}

func (wp *WorkerPool) start() {
	wp.shutdownWg.Add(wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		go wp.worker()
	}

	// Close the output channels once every worker has exited.
	go func() {
		wp.shutdownWg.Wait()
		close(wp.results)
		close(wp.errors)
	}()
}

func (wp *WorkerPool) worker() {
	defer wp.shutdownWg.Done()
	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return // queue closed and drained
			}
			result, err := job()
			if err != nil {
				select {
				case wp.errors <- err:
				case <-wp.ctx.Done():
					return
				}
			} else if result != nil {
				select {
				case wp.results <- result:
				case <-wp.ctx.Done():
					return
				}
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit adds a task to the job queue.
// Returns an error if the pool is closed or the context is cancelled.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.Lock()
	if wp.isClosed {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool is closed, cannot submit new jobs")
	}
	wp.producers.Add(1)
	wp.mu.Unlock()
	defer wp.producers.Done()

	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.quit:
		return fmt.Errorf("worker pool is closed, cannot submit new jobs")
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns a channel to read task results from. It is closed after
// Close or Shutdown once all workers have exited.
func (wp *WorkerPool) Results() <-chan interface{} {
	return wp.results
}

// Errors returns a channel to read task errors from.
func (wp *WorkerPool) Errors() <-chan error {
	return wp.errors
}

// Close stops accepting new jobs and lets workers drain the queue. Pending
// jobs still run; use Shutdown to abandon them. Submits blocked on a full
// queue are woken and return an error; the queue itself is closed only once
// no Submit can still send on it.
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		wp.mu.Lock()
		wp.isClosed = true
		close(wp.quit)
		wp.mu.Unlock()

		wp.producers.Wait()
		close(wp.jobQueue)
	})
}

// Shutdown stops the pool immediately: no new jobs are accepted, queued jobs
// are abandoned and in-flight jobs observe the cancelled pool context.
func (wp *WorkerPool) Shutdown() {
	wp.Close()
	wp.cancel()
}

// Context returns the pool's context. Jobs should derive per-task contexts
// from it so Shutdown cancels in-flight work promptly.
func (wp *WorkerPool) Context() context.Context {
	return wp.ctx
}
