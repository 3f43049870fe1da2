package lock

import "sync"

// Keyed provides per-key mutual exclusion. Reconciliation locks on the payment
// reference, wallet writers lock on the user id, so mutations touching the same
// entity never interleave while unrelated entities proceed in parallel.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// Lock blocks until the key is held and returns the matching unlock func.
// Entries are reference counted and removed once the last holder releases, so
// the map does not grow with the id space.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
