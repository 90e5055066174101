package keymutex_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evaldesk/copyflow/internal/pkg/keymutex"
)

func Test_Lock_SerializesSameKey(t *testing.T) {
	km := keymutex.New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("bundle-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func Test_Lock_DifferentKeysDoNotBlockEachOther(t *testing.T) {
	km := keymutex.New()

	unlockA := km.Lock("bundle-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("bundle-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	default:
		// Give the goroutine a chance to run; it must not need unlockA.
		<-done
	}
}

func Test_Lock_ReacquireAfterUnlock(t *testing.T) {
	km := keymutex.New()

	unlock := km.Lock("bundle-1")
	unlock()

	unlock = km.Lock("bundle-1")
	unlock()
}
