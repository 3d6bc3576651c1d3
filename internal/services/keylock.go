package services

import (
	"context"
	"sync"
)

// KeyLocker serializes work per key. Lock blocks until the key is held or ctx is
// done; the returned func releases it and must be called exactly once.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// localLocker is an in-process keyed mutex. Entries are reference counted and removed
// when the last waiter leaves, so the map only holds keys in use.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewLocalLocker() KeyLocker {
	return &localLocker{locks: map[string]*keyLock{}}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *localLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// size reports the number of keys currently tracked.
func (l *localLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

type chainLocker struct {
	lockers []KeyLocker
}

// ChainLockers acquires every locker in order and releases in reverse. Nil entries
// are skipped. A typical chain is the local locker followed by a cross-replica one,
// so waiters queue in-process before touching redis.
func ChainLockers(lockers ...KeyLocker) KeyLocker {
	out := make([]KeyLocker, 0, len(lockers))
	for _, l := range lockers {
		if l != nil {
			out = append(out, l)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return &chainLocker{lockers: out}
}

func (c *chainLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c.lockers))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c.lockers {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}
