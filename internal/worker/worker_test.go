package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_ProcessesAllJobs(t *testing.T) {
	var processed atomic.Int64

	pool := NewPool(3, 10, func(ctx context.Context, job int) error {
		processed.Add(int64(job))
		return nil
	})
	pool.Start(context.Background())

	total := int64(0)
	for i := 1; i <= 50; i++ {
		pool.Submit(i)
		total += int64(i)
	}
	pool.Stop()

	if processed.Load() != total {
		t.Errorf("expected sum %d, got %d", total, processed.Load())
	}
}

func TestPool_StopWaitsForInFlight(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	pool := NewPool(1, 5, func(ctx context.Context, job string) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		seen = append(seen, job)
		mu.Unlock()
		return nil
	})
	pool.Start(context.Background())

	pool.Submit("a")
	pool.Submit("b")
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Errorf("expected 2 jobs completed before Stop returned, got %d", len(seen))
	}
}

func TestPool_ContextCancelStopsWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pool := NewPool(2, 5, func(ctx context.Context, job int) error {
		return nil
	})
	pool.Start(ctx)

	cancel()
	pool.wg.Wait() // workers must exit without Stop being called
}
