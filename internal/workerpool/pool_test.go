package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BasicExecution(t *testing.T) {
	var calls atomic.Int32
	pool := New(Config{MaxConcurrent: 2})

	tasks := []Task{
		{Index: 0, Job: JobFunc(func(ctx context.Context) (any, error) {
			calls.Add(1)
			time.Sleep(5 * time.Millisecond)
			return "a", nil
		})},
		{Index: 1, Job: JobFunc(func(ctx context.Context) (any, error) {
			calls.Add(1)
			time.Sleep(5 * time.Millisecond)
			return "b", nil
		})},
		{Index: 2, Job: JobFunc(func(ctx context.Context) (any, error) {
			calls.Add(1)
			time.Sleep(5 * time.Millisecond)
			return "c", nil
		})},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Fatalf("got %d results, want %d", len(results), len(tasks))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result[%d] unexpected error: %v", i, r.Err)
		}
	}
	if calls.Load() != int32(len(tasks)) {
		t.Errorf("calls = %d, want %d", calls.Load(), len(tasks))
	}
}

func TestPool_RespectsMaxConcurrent(t *testing.T) {
	var inFlight, maxObserved atomic.Int32
	pool := New(Config{MaxConcurrent: 2})

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{Index: i, Job: JobFunc(func(ctx context.Context) (any, error) {
			n := inFlight.Add(1)
			for {
				max := maxObserved.Load()
				if n <= max || maxObserved.CompareAndSwap(max, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil, nil
		})}
	}

	pool.Run(context.Background(), tasks)

	if maxObserved.Load() > 2 {
		t.Errorf("observed %d jobs in flight, want <= 2", maxObserved.Load())
	}
}

func TestPool_PreservesOrderAndCollectsErrors(t *testing.T) {
	pool := New(Config{MaxConcurrent: 3})

	tasks := []Task{
		{Index: 0, Job: JobFunc(func(ctx context.Context) (any, error) { return 0, nil })},
		{Index: 1, Job: JobFunc(func(ctx context.Context) (any, error) { return nil, errors.New("boom") })},
		{Index: 2, Job: JobFunc(func(ctx context.Context) (any, error) { return 2, nil })},
	}

	results := pool.Run(context.Background(), tasks)

	for i, r := range results {
		if r.Index != i {
			t.Errorf("result[%d].Index = %d, want %d", i, r.Index, i)
		}
	}
	if results[1].Err == nil {
		t.Errorf("expected error on task 1")
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	var updates atomic.Int32
	progress := NewProgress(3, false)
	pool := New(Config{MaxConcurrent: 1, OnProgress: progress.Callback()})

	tasks := make([]Task, 3)
	for i := range tasks {
		tasks[i] = Task{Index: i, Job: JobFunc(func(ctx context.Context) (any, error) {
			updates.Add(1)
			return nil, nil
		})}
	}

	pool.Run(context.Background(), tasks)

	if updates.Load() != 3 {
		t.Errorf("job calls = %d, want 3", updates.Load())
	}
	if progress.Summary() == "" {
		t.Errorf("expected non-empty summary")
	}
	progress.mu.RLock()
	completed := progress.completed
	progress.mu.RUnlock()
	if completed != 3 {
		t.Errorf("progress completed = %d, want 3", completed)
	}
}
