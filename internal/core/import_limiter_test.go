package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestImportLimiter_AcquireRelease(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if got := limiter.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount after acquire = %d, want 1", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount after second acquire = %d, want 2", got)
	}

	limiter.Release()
	if got := limiter.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount after release = %d, want 1", got)
	}

	limiter.Release()
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after all released = %d, want 0", got)
	}
}

func TestImportLimiter_BlocksWhenFull(t *testing.T) {
	limiter := NewImportLimiter(1, 100*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("Acquire on full limiter = %v, want ErrTooManyImports", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("Acquire returned after %v, expected to wait ~100ms", elapsed)
	}
}

func TestImportLimiter_ContextCancellation(t *testing.T) {
	limiter := NewImportLimiter(1, 10*time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire with cancelled context = %v, want context.Canceled", err)
	}
}

func TestImportLimiter_UnblocksWaiter(t *testing.T) {
	limiter := NewImportLimiter(1, 5*time.Second)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- limiter.Acquire(ctx)
	}()

	// Give the waiter time to block, then free the slot
	time.Sleep(50 * time.Millisecond)
	limiter.Release()

	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("waiting Acquire = %v, want nil after Release", err)
		}
		limiter.Release()
	case <-time.After(time.Second):
		t.Fatal("waiting Acquire did not unblock after Release")
	}
}

func TestImportLimiter_ConcurrentAccess(t *testing.T) {
	const workers = 20
	limiter := NewImportLimiter(4, 5*time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			mu.Lock()
			if active := limiter.ActiveCount(); active > maxObserved {
				maxObserved = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)
		}()
	}

	wg.Wait()

	if maxObserved > 4 {
		t.Errorf("observed %d concurrent imports, limit is 4", maxObserved)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after all workers done = %d, want 0", got)
	}
}

func TestImportLimiter_WaitForDrain(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		limiter.Release()
	}()

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := limiter.WaitForDrain(drainCtx); err != nil {
		t.Errorf("WaitForDrain = %v, want nil", err)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after drain = %d, want 0", got)
	}
}

func TestImportLimiter_WaitForDrain_ContextCancelled(t *testing.T) {
	limiter := NewImportLimiter(1, time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	drainCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := limiter.WaitForDrain(drainCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain with held slot = %v, want context.DeadlineExceeded", err)
	}
}

func TestImportLimiter_Status(t *testing.T) {
	limiter := NewImportLimiter(3, time.Second)
	ctx := context.Background()

	status := limiter.Status()
	if status.Active != 0 || status.Available != 3 || status.MaxConcurrent != 3 {
		t.Errorf("initial Status = %+v, want {0 3 3}", status)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	status = limiter.Status()
	if status.Active != 1 || status.Available != 2 || status.MaxConcurrent != 3 {
		t.Errorf("Status after one acquire = %+v, want {1 2 3}", status)
	}
}

func TestImportLimiter_DefaultValues(t *testing.T) {
	limiter := NewImportLimiter(0, 0)

	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentImports {
		t.Errorf("MaxConcurrent with zero config = %d, want %d", got, DefaultMaxConcurrentImports)
	}

	limiter = NewImportLimiter(-5, -time.Second)
	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentImports {
		t.Errorf("MaxConcurrent with negative config = %d, want %d", got, DefaultMaxConcurrentImports)
	}
}
