package locks

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocal()
	var inside, max, counter int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > max {
					max = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				counter++
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("lock: %v", err)
			}
		}()
	}
	wg.Wait()
	if max != 1 {
		t.Fatalf("critical section overlapped, max concurrency %d", max)
	}
	if counter != 16 {
		t.Fatalf("expected 16 executions, got %d", counter)
	}
}

func TestLocalLockerDistinctKeysDoNotBlock(t *testing.T) {
	locker := NewLocal()
	release := make(chan struct{})
	held := make(chan struct{})

	go func() {
		_ = locker.WithLock(context.Background(), "a", time.Second, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "b", time.Second, func(context.Context) error {
			return nil
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on a different key blocked")
	}
	close(release)
}

func TestLocalLockerHonorsCancelledContext(t *testing.T) {
	locker := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := locker.WithLock(ctx, "k", time.Second, func(context.Context) error {
		t.Fatalf("critical section must not run with a cancelled context")
		return nil
	})
	if err == nil {
		t.Fatalf("expected context error")
	}
}
