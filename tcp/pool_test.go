package tcp

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	pool := NewWorkerPool(4, 16)
	defer pool.Stop()

	var ran atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		pool.Enqueue(func() {
			ran.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	if got := ran.Load(); got != 32 {
		t.Errorf("ran %d jobs, want 32", got)
	}
}

func TestWorkerPoolCoercesMinimums(t *testing.T) {
	// Zero workers and zero queue depth are coerced to one each; the
	// pool must still execute work.
	pool := NewWorkerPool(0, 0)
	defer pool.Stop()

	done := make(chan struct{})
	pool.Enqueue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran on a coerced single-worker pool")
	}
}

func TestWorkerPoolTryEnqueueBackpressure(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Stop()

	block := make(chan struct{})
	started := make(chan struct{})

	// Occupy the only worker.
	if !pool.TryEnqueue(func() { close(started); <-block }) {
		t.Fatal("first TryEnqueue rejected on an empty pool")
	}
	<-started

	// Fill the single queue slot.
	if !pool.TryEnqueue(func() {}) {
		t.Fatal("second TryEnqueue rejected with queue space available")
	}

	// Queue full: must fail fast, not block.
	result := make(chan bool, 1)
	go func() { result <- pool.TryEnqueue(func() {}) }()

	select {
	case ok := <-result:
		if ok {
			t.Error("TryEnqueue succeeded on a full queue")
		}
	case <-time.After(time.Second):
		t.Error("TryEnqueue blocked on a full queue")
	}

	close(block)
}

func TestWorkerPoolEnqueueBlocksUntilSpace(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Stop()

	block := make(chan struct{})
	started := make(chan struct{})

	pool.Enqueue(func() { close(started); <-block })
	<-started
	pool.Enqueue(func() {}) // fills the queue slot

	enqueued := make(chan struct{})
	go func() {
		pool.Enqueue(func() {})
		close(enqueued)
	}()

	select {
	case <-enqueued:
		t.Fatal("Enqueue returned while the queue was still full")
	case <-time.After(50 * time.Millisecond):
	}

	close(block) // worker drains, space frees

	select {
	case <-enqueued:
	case <-time.After(time.Second):
		t.Fatal("Enqueue never unblocked after space freed")
	}
}

func TestWorkerPoolStopReleasesBlockedProducer(t *testing.T) {
	pool := NewWorkerPool(1, 1)

	block := make(chan struct{})
	started := make(chan struct{})

	pool.Enqueue(func() { close(started); <-block })
	<-started
	pool.Enqueue(func() {})

	released := make(chan struct{})
	go func() {
		pool.Enqueue(func() {})
		close(released)
	}()

	time.Sleep(20 * time.Millisecond) // let the producer block
	close(block)
	pool.Stop()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("blocked producer not released by Stop")
	}

	if pool.TryEnqueue(func() {}) {
		t.Error("TryEnqueue accepted work after Stop")
	}
}

func TestWorkerPoolStopIdempotent(t *testing.T) {
	pool := NewWorkerPool(2, 4)
	pool.Stop()
	pool.Stop() // must not panic or hang
}
