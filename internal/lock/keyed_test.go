package lock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := NewKeyed()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("wallet:1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestLockIndependentKeysDoNotBlock(t *testing.T) {
	k := NewKeyed()
	unlockA := k.Lock("payment:1")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("payment:2")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestEntriesFreedAfterLastUnlock(t *testing.T) {
	k := NewKeyed()
	for i := 0; i < 10; i++ {
		unlock := k.Lock("wallet:9")
		unlock()
	}
	k.mu.Lock()
	n := len(k.entries)
	k.mu.Unlock()
	if n != 0 {
		t.Errorf("entries map has %d entries after release, want 0", n)
	}
}
