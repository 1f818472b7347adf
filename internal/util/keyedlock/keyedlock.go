// Package keyedlock provides per-key mutual exclusion: operations under the
// same key serialize, operations under different keys run in parallel.
package keyedlock

import "sync"

// Keyed is a lazily-populated set of mutexes indexed by string key.
// The zero value is not usable; call New.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// unlock function.
func (k *Keyed) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
