package cart

import (
	"context"
	"sync"
)

// keyLock serializes work per product id. Each key owns a one-slot channel semaphore that
// is dropped once no goroutine holds or waits on it.
type keyLock struct {
	mu      sync.Mutex
	entries map[int]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{entries: make(map[int]*lockEntry)}
}

// acquire blocks until key is free or ctx is done. A ctx that is already done always
// fails, even when the key is free. The returned release must be called exactly once.
func (l *keyLock) acquire(ctx context.Context, key int) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.sem
				l.unref(key, entry)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, ctx.Err()
	}
}

func (l *keyLock) unref(key int, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *keyLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
