package chainmap

import (
	"sync"
	"testing"
	"time"
)

func TestRMutexReentrant(t *testing.T) {
	var mu RMutex
	mu.Lock()
	mu.Lock()
	mu.Lock()
	mu.Unlock()
	mu.Unlock()
	mu.Unlock()

	// The lock must be free again for another goroutine.
	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		defer mu.Unlock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock not released after balanced unlocks")
	}
}

func TestRMutexHeldUntilOutermostUnlock(t *testing.T) {
	var mu RMutex
	mu.Lock()
	mu.Lock()
	mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		defer mu.Unlock()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("lock released before the outermost unlock")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock not released by the outermost unlock")
	}
}

func TestRMutexExclusion(t *testing.T) {
	const (
		goroutines = 8
		iterations = 10000
	)
	var (
		mu      RMutex
		counter int
		wg      sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				mu.Lock()
				counter++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if counter != goroutines*iterations {
		t.Fatalf("counter is %d, want %d", counter, goroutines*iterations)
	}
}

func TestRMutexUnlockByNonOwner(t *testing.T) {
	var mu RMutex
	mu.Lock()
	defer mu.Unlock()

	panicked := make(chan bool, 1)
	go func() {
		defer func() {
			panicked <- recover() != nil
		}()
		mu.Unlock()
	}()
	if !<-panicked {
		t.Fatal("unlock by a non-owner goroutine did not panic")
	}
}
