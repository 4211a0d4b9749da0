package scopelock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerializesSameKey(t *testing.T) {
	l := New()
	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(ListKey(1))
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, l.size())
}

func TestLock_OverlappingSetsDoNotDeadlock(t *testing.T) {
	l := New()
	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				l.Lock(ListKey(1), ListKey(2))()
			}()
			go func() {
				defer wg.Done()
				l.Lock(ListKey(2), ListKey(1))()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock ordering deadlocked")
	}
}

func TestLock_DuplicateKeysAndDoubleUnlock(t *testing.T) {
	l := New()
	unlock := l.Lock(BoardKey(3), BoardKey(3))
	unlock()
	unlock()
	assert.Equal(t, 0, l.size())
}
