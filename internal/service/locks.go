package service

import (
	"context"
	"sync"
)

// sessionLocks serializes turns per session id inside this process.
// Entries are reference counted and dropped once nobody holds or waits.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sem  chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire blocks until the lock for key is held or ctx is done.
func (l *sessionLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[key]
	if !ok {
		sl = &sessionLock{sem: make(chan struct{}, 1)}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.sem
			l.unref(key, sl)
		})
	}, nil
}

func (l *sessionLocks) unref(key string, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
