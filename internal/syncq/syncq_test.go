package syncq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWaitUntilAlreadyTrue(t *testing.T) {
	q := New()
	if err := q.WaitUntil(context.Background(), func() bool { return true }); err != nil {
		t.Fatalf("WaitUntil = %v, want nil", err)
	}
}

func TestWaitUntilWakesOnUpdate(t *testing.T) {
	q := New()
	var ready bool

	done := make(chan error, 1)
	go func() {
		done <- q.WaitUntil(context.Background(), func() bool { return ready })
	}()

	// An update that leaves the predicate false must not release the waiter.
	q.Update(func() {})
	select {
	case err := <-done:
		t.Fatalf("WaitUntil returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	q.Update(func() { ready = true })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitUntil = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitUntil did not wake after predicate became true")
	}
}

func TestWaitUntilContextCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.WaitUntil(ctx, func() bool { return false })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitUntil = %v, want DeadlineExceeded", err)
	}
}

func TestFailReleasesWaitersAndIsSticky(t *testing.T) {
	q := New()
	first := errors.New("first")

	done := make(chan error, 1)
	go func() {
		done <- q.WaitUntil(context.Background(), func() bool { return false })
	}()

	q.Fail(first)
	q.Fail(errors.New("second"))
	q.Fail(nil)

	select {
	case err := <-done:
		if !errors.Is(err, first) {
			t.Fatalf("WaitUntil = %v, want %v", err, first)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fail did not release the waiter")
	}

	if !errors.Is(q.Err(), first) {
		t.Errorf("Err() = %v, want %v", q.Err(), first)
	}
	// The error wins even over a predicate that is already true.
	if err := q.WaitUntil(context.Background(), func() bool { return true }); !errors.Is(err, first) {
		t.Errorf("WaitUntil after Fail = %v, want %v", err, first)
	}
}

// TestConcurrentProducers checks that no update is lost when many goroutines
// publish while one goroutine waits on the aggregate.
func TestConcurrentProducers(t *testing.T) {
	q := New()
	const producers = 16
	const perProducer = 100

	var count int
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < perProducer; n++ {
				q.Update(func() { count++ })
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.WaitUntil(ctx, func() bool { return count == producers*perProducer }); err != nil {
		t.Fatalf("WaitUntil = %v (count=%d)", err, count)
	}
	wg.Wait()
}
