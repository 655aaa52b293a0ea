package httputil

import (
	"context"
	"testing"
	"time"
)

func TestSemaphoreTryAcquire(t *testing.T) {
	sem := NewSemaphore(2)

	if !sem.TryAcquire() || !sem.TryAcquire() {
		t.Fatal("acquires within capacity should succeed")
	}
	if sem.TryAcquire() {
		t.Fatal("acquire at capacity should fail")
	}
	if sem.DroppedCount() != 1 {
		t.Errorf("DroppedCount = %d, want 1", sem.DroppedCount())
	}

	sem.Release()
	if !sem.TryAcquire() {
		t.Error("acquire after release should succeed")
	}
}

func TestSemaphoreAcquireRespectsContext(t *testing.T) {
	sem := NewSemaphore(1)
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sem.Acquire(ctx); err != context.DeadlineExceeded {
		t.Errorf("blocked acquire error = %v, want DeadlineExceeded", err)
	}
}

func TestSemaphoreDefaultCapacity(t *testing.T) {
	sem := NewSemaphore(0)
	if !sem.TryAcquire() {
		t.Fatal("zero capacity should default to a usable semaphore")
	}
	if sem.InUse() != 1 {
		t.Errorf("InUse = %d, want 1", sem.InUse())
	}
}
