// Package keymutex provides a mutex keyed by string, used to serialize
// read-modify-write sequences on a single copy bundle. Without it two
// concurrent requests can both pass an existence or status check before
// either writes.
package keymutex

import "sync"

// KeyMutex is a set of named mutexes. The zero value is ready to use.
// Mutexes are retained for the lifetime of the KeyMutex; the key space here
// is bounded by the number of bundles, which is small.
type KeyMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// New creates a new KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{}
}

// Lock acquires the mutex for key and returns the matching unlock function.
func (k *KeyMutex) Lock(key string) (unlock func()) {
	m, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
