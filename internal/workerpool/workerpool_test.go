package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsJobs(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	var n int64
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			atomic.AddInt64(&n, 1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}
	if atomic.LoadInt64(&n) != 10 {
		t.Errorf("got %d completions, want 10", n)
	}
}

func TestSubmitNeverBlocks(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	block := make(chan struct{})
	p.Submit(func() { <-block })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Submit(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked while worker was busy")
	}
	close(block)
}

func TestShutdownDrainsRunningWorkers(t *testing.T) {
	p := New(2)

	var completed int32
	p.Submit(func() { atomic.AddInt32(&completed, 1) })
	time.Sleep(50 * time.Millisecond)

	p.Shutdown()
	if atomic.LoadInt32(&completed) != 1 {
		t.Errorf("expected submitted job to complete before shutdown returns, got %d", completed)
	}
}

func TestSubmitAfterShutdownIsNoOp(t *testing.T) {
	p := New(2)
	p.Shutdown()

	ran := false
	p.Submit(func() { ran = true })
	time.Sleep(20 * time.Millisecond)
	if ran {
		t.Error("expected Submit after Shutdown to be a no-op")
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	p.Submit(func() { panic("boom") })

	var ran bool
	done := make(chan struct{})
	p.Submit(func() { ran = true; close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from a panicking job")
	}
	if !ran {
		t.Error("expected subsequent job to run after a panic")
	}
}

func TestCountHonorsMinimum(t *testing.T) {
	if Count() < 8 {
		t.Errorf("Count() = %d, want >= 8", Count())
	}
}
