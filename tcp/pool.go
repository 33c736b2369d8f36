package tcp

import "sync"

// Job is a unit of deferred work executed by the pool.
type Job func()

// WorkerPool runs jobs on a fixed set of goroutines draining a bounded
// queue. One mutex guards the queue; jobAvail wakes idle workers,
// spaceAvail wakes producers blocked in Enqueue. The lock is never
// held while a job runs.
type WorkerPool struct {
	mu         sync.Mutex
	jobAvail   *sync.Cond
	spaceAvail *sync.Cond
	jobs       []Job
	maxQueue   int
	stopped    bool
	workers    sync.WaitGroup
}

// NewWorkerPool starts workerCount goroutines with a queue bounded at
// maxQueue. Both are coerced to at least 1.
func NewWorkerPool(workerCount, maxQueue int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if maxQueue < 1 {
		maxQueue = 1
	}

	p := &WorkerPool{maxQueue: maxQueue}
	p.jobAvail = sync.NewCond(&p.mu)
	p.spaceAvail = sync.NewCond(&p.mu)

	p.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.workerLoop()
	}
	return p
}

// TryEnqueue submits without blocking. It reports false when the pool
// is stopped or the queue is at capacity.
func (p *WorkerPool) TryEnqueue(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || len(p.jobs) >= p.maxQueue {
		return false
	}
	p.jobs = append(p.jobs, job)
	p.jobAvail.Signal()
	return true
}

// Enqueue blocks until the queue has space or the pool stops. When the
// pool stops while waiting, the job is dropped without running.
func (p *WorkerPool) Enqueue(job Job) {
	p.mu.Lock()
	for !p.stopped && len(p.jobs) >= p.maxQueue {
		p.spaceAvail.Wait()
	}
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.jobs = append(p.jobs, job)
	p.mu.Unlock()

	p.jobAvail.Signal()
}

// Stop marks the pool stopped, wakes every waiter and returns once all
// workers have exited. Jobs already dequeued finish; queued jobs drain
// best-effort.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.workers.Wait()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.jobAvail.Broadcast()
	p.spaceAvail.Broadcast()
	p.workers.Wait()
}

func (p *WorkerPool) workerLoop() {
	defer p.workers.Done()

	for {
		p.mu.Lock()
		for !p.stopped && len(p.jobs) == 0 {
			p.jobAvail.Wait()
		}
		if p.stopped && len(p.jobs) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.jobs[0]
		p.jobs = p.jobs[1:]
		p.spaceAvail.Signal()
		p.mu.Unlock()

		job()
	}
}
