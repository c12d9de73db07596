// Package workpool runs scene-build and per-frame host work on a fixed set of
// goroutines. A Pool is created by the caller and passed explicitly to
// whatever needs to schedule work.
package workpool

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var ErrStopped = errors.New("workpool: pool is stopped")

// Pool is a fixed-size set of workers draining a shared task queue
type Pool struct {
	tasks      chan func()
	numWorkers int

	workers sync.WaitGroup // running worker goroutines
	pending sync.WaitGroup // submitted tasks not yet finished

	mu      sync.RWMutex
	stopped bool
}

// New starts a pool with numWorkers workers, or one per CPU when numWorkers <= 0
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &Pool{
		tasks:      make(chan func(), numWorkers*64),
		numWorkers: numWorkers,
	}
	for i := 0; i < numWorkers; i++ {
		p.workers.Add(1)
		go p.run()
	}
	return p
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.numWorkers
}

// run is the main worker loop
func (p *Pool) run() {
	defer p.workers.Done()
	for task := range p.tasks {
		task()
		p.pending.Done()
	}
}

// Submit queues fn for asynchronous execution
func (p *Pool) Submit(fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	p.pending.Add(1)
	p.tasks <- fn
	return nil
}

// Wait blocks until every submitted task has finished
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Stop waits for queued work and shuts the workers down. Submitting after
// Stop returns ErrStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.pending.Wait()
	close(p.tasks)
	p.workers.Wait()
}

// Parallel calls fn(i) for every i in [0, n) and returns when all calls are
// done. The calling goroutine takes part in the work, so Parallel makes
// progress even when every worker is busy.
func (p *Pool) Parallel(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	var next atomic.Int64
	drain := func() {
		for {
			i := int(next.Add(1) - 1)
			if i >= n {
				return
			}
			fn(i)
		}
	}

	helpers := min(p.numWorkers, n) - 1
	var done sync.WaitGroup
	for h := 0; h < helpers; h++ {
		done.Add(1)
		err := p.Submit(func() {
			defer done.Done()
			drain()
		})
		if err != nil {
			done.Done()
			break
		}
	}
	drain()
	done.Wait()
}

// Future is the pending result of a task started with Go
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on the pool and returns a handle to its result. If the pool is
// stopped fn runs on a new goroutine instead.
func Go[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	task := func() {
		defer close(f.done)
		f.value, f.err = fn()
	}
	if err := p.Submit(task); err != nil {
		go task()
	}
	return f
}

// Wait blocks until the task finished and returns its result
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Ready reports whether the result is available without blocking
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
