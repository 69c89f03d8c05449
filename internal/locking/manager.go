// Package locking provides per-entity exclusive locks for storage backends
// without row-level SELECT ... FOR UPDATE. Locks are always acquired in
// canonical key order, which makes lock-order deadlocks impossible without a
// detector.
package locking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the wait
// budget. Callers treat it as transient contention.
var ErrTimeout = errors.New("lock wait timeout")

type entityLock struct {
	sem  chan struct{}
	refs int
}

// Manager is an in-process lock table keyed by entity id.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*entityLock
}

func NewManager() *Manager {
	return &Manager{locks: map[string]*entityLock{}}
}

// Acquire takes exclusive locks on all keys, sorted into canonical order, and
// returns a release function. If any lock cannot be acquired within wait, the
// ones already held are released and ErrTimeout is returned. A wait of zero
// means block until ctx is done.
func (m *Manager) Acquire(ctx context.Context, wait time.Duration, keys ...string) (func(), error) {
	ordered := dedupeSorted(keys)

	m.mu.Lock()
	locks := make([]*entityLock, len(ordered))
	for i, key := range ordered {
		l, ok := m.locks[key]
		if !ok {
			l = &entityLock{sem: make(chan struct{}, 1)}
			m.locks[key] = l
		}
		l.refs++
		locks[i] = l
	}
	m.mu.Unlock()

	var deadline <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		deadline = timer.C
	}

	held := 0
	for _, l := range locks {
		select {
		case l.sem <- struct{}{}:
			held++
		case <-deadline:
			m.releaseHeld(ordered, locks, held)
			return nil, ErrTimeout
		case <-ctx.Done():
			m.releaseHeld(ordered, locks, held)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.releaseHeld(ordered, locks, len(locks))
		})
	}
	return release, nil
}

func (m *Manager) releaseHeld(keys []string, locks []*entityLock, held int) {
	for i := held - 1; i >= 0; i-- {
		<-locks[i].sem
	}
	m.mu.Lock()
	for i, l := range locks {
		l.refs--
		if l.refs == 0 {
			delete(m.locks, keys[i])
		}
	}
	m.mu.Unlock()
}

func dedupeSorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for _, k := range out {
		if n == 0 || out[n-1] != k {
			out[n] = k
			n++
		}
	}
	return out[:n]
}
