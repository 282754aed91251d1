package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockRegistrySerializesWriters(t *testing.T) {
	reg := NewLockRegistry()

	var mu sync.Mutex
	var order []int

	unlock := reg.Lock("/project")
	done := make(chan struct{})
	go func() {
		u := reg.Lock("/project")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		u()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	unlock()

	<-done
	assert.Equal(t, []int{1, 2}, order)
}

func TestLockRegistryAllowsConcurrentReaders(t *testing.T) {
	reg := NewLockRegistry()

	u1 := reg.RLock("/project")
	acquired := make(chan struct{})
	go func() {
		u2 := reg.RLock("/project")
		close(acquired)
		u2()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second read lock did not acquire while first was held")
	}
	u1()
}

func TestLockRegistryIndependentPaths(t *testing.T) {
	reg := NewLockRegistry()

	u1 := reg.Lock("/project-a")
	defer u1()

	acquired := make(chan struct{})
	go func() {
		u2 := reg.Lock("/project-b")
		close(acquired)
		u2()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on an unrelated path blocked")
	}
}

func TestLockRegistryCleansPaths(t *testing.T) {
	reg := NewLockRegistry()
	assert.Same(t, reg.lockFor("/project/"), reg.lockFor("/project"))
	assert.Same(t, reg.lockFor("/a/b/../b"), reg.lockFor("/a/b"))
}
