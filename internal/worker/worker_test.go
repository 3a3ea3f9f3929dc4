package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashgrove/reelengine/internal/worker"
)

func TestStartRunsCycles(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	w := worker.New("test", 5*time.Millisecond, func(ctx context.Context, i *worker.Interrupt) (bool, error) {
		count.Add(1)
		return false, nil
	})

	w.Start()
	time.Sleep(40 * time.Millisecond)
	w.Stop()

	if count.Load() < 2 {
		t.Fatalf("cycle count = %d, want at least 2", count.Load())
	}
	if w.State() != worker.Stopped {
		t.Errorf("State() = %v, want Stopped", w.State())
	}
}

func TestSuspendPausesCycles(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	w := worker.New("test", 5*time.Millisecond, func(ctx context.Context, i *worker.Interrupt) (bool, error) {
		count.Add(1)
		return false, nil
	})
	w.Start()
	time.Sleep(20 * time.Millisecond)
	w.Suspend()
	if w.State() != worker.Suspended {
		t.Fatalf("State() = %v, want Suspended", w.State())
	}
	frozen := count.Load()
	time.Sleep(30 * time.Millisecond)
	if got := count.Load(); got != frozen {
		t.Errorf("cycle count advanced during suspend: %d -> %d", frozen, got)
	}

	w.Resume()
	time.Sleep(20 * time.Millisecond)
	if got := count.Load(); got <= frozen {
		t.Errorf("cycle count did not advance after resume: stayed at %d", got)
	}
	w.Stop()
}

func TestLoopRequestsImmediateNextCycle(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	w := worker.New("test", 50*time.Millisecond, func(ctx context.Context, i *worker.Interrupt) (bool, error) {
		n := count.Add(1)
		return n < 5, nil // burn down five cycles without waiting on the period
	})
	w.Start()
	time.Sleep(15 * time.Millisecond)
	w.Stop()

	if count.Load() < 5 {
		t.Errorf("cycle count = %d, want at least 5 (loop=true should not wait for the 50ms period)", count.Load())
	}
}

func TestWaitOneBlocksUntilNextCycleBoundary(t *testing.T) {
	t.Parallel()

	w := worker.New("test", 5*time.Millisecond, func(ctx context.Context, i *worker.Interrupt) (bool, error) {
		return false, nil
	})
	w.Start()
	defer w.Stop()

	done := make(chan struct{})
	go func() {
		w.WaitOne()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("WaitOne did not return within 200ms")
	}
}

func TestDisposeIsIdempotentAndTerminal(t *testing.T) {
	t.Parallel()

	w := worker.New("test", 5*time.Millisecond, func(ctx context.Context, i *worker.Interrupt) (bool, error) {
		return false, nil
	})
	w.Start()
	w.Dispose()
	w.Dispose()

	if w.State() != worker.Disposed {
		t.Errorf("State() = %v, want Disposed", w.State())
	}
}
