package rate

import (
	"context"
	"sync"
)

// LockRegistry serializes cache refreshes per key ("current" or a calendar
// date). At most one live lock exists per key; absence of a key means no
// refresh is in flight for it. Holding the lock grants nothing about the
// store's state: a refresh may have completed and released between a
// caller's miss and its acquisition, so every holder must re-check the
// store before fetching.
type LockRegistry struct {
	mu      sync.Mutex
	entries map[string]*LockHandle
}

// LockHandle is a single-slot semaphore owned by the registry for one key.
type LockHandle struct {
	sem chan struct{}
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{entries: make(map[string]*LockHandle)}
}

// Acquire takes the lock for key, creating and registering it if absent.
// A canceled ctx aborts the wait without leaving the caller as holder and
// without leaking a registered entry.
func (r *LockRegistry) Acquire(ctx context.Context, key string) (*LockHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	handle, ok := r.entries[key]
	created := false
	if !ok {
		handle = &LockHandle{sem: make(chan struct{}, 1)}
		r.entries[key] = handle
		created = true
	}
	r.mu.Unlock()

	select {
	case handle.sem <- struct{}{}:
		return handle, nil
	case <-ctx.Done():
		if created {
			// If the slot is still free nobody adopted the entry; take it
			// and release properly so the registry stays clean.
			select {
			case handle.sem <- struct{}{}:
				r.Release(key, handle)
			default:
			}
		}
		return nil, ctx.Err()
	}
}

// Release frees the lock and removes the registry entry, so the next miss
// episode starts from a clean slate. A waiter that was handed the lock may
// release a handle that is no longer registered; that is a no-op removal.
func (r *LockRegistry) Release(key string, handle *LockHandle) {
	<-handle.sem

	r.mu.Lock()
	if current, ok := r.entries[key]; ok && current == handle {
		delete(r.entries, key)
	}
	r.mu.Unlock()
}

// Len reports the number of live entries.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
