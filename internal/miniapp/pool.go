package miniapp

import (
	"context"
	"sync"
)

// Defaults applied when pool sizes are unset.
const (
	defaultWorkers    = 8
	defaultQueueDepth = 256
)

// Pool is a fixed set of workers fed from a bounded queue. It is shared by
// all concurrent dispatches; Submit and InvokeAll are safe for concurrent use.
type Pool struct {
	mu     sync.RWMutex // guards closed against in-progress submits
	closed bool
	queue  chan func()
	wg     sync.WaitGroup
	size   int
}

// NewPool starts workers goroutines reading from a queue of queueDepth slots.
// Non-positive values fall back to package defaults.
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	p := &Pool{queue: make(chan func(), queueDepth), size: workers}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.queue {
		runJob(job)
	}
}

// runJob keeps a worker alive if a job panics.
func runJob(job func()) {
	defer func() { _ = recover() }()
	job()
}

// Submit enqueues job, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InvokeAll submits every job and blocks until all of them have returned.
// If ctx ends first, InvokeAll returns ctx.Err() without cancelling jobs that
// were already submitted; jobs not yet submitted are dropped.
func (p *Pool) InvokeAll(ctx context.Context, jobs []func()) error {
	if len(jobs) == 0 {
		return nil
	}
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, job := range jobs {
		job := job
		if err := p.Submit(ctx, func() {
			defer wg.Done()
			job()
		}); err != nil {
			for j := i; j < len(jobs); j++ {
				wg.Done()
			}
			return err
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		select {
		case <-done:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// Close stops accepting work, lets queued jobs finish and waits for workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
