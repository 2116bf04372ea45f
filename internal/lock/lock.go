// Package lock provides per-article advisory locks so two long-running operations
// never work on the same article at once.
package lock

import (
	"context"
	"sync"
	"time"

	"blogsmith/internal/core"
)

// Locker hands out exclusive, expiring locks keyed by string.
type Locker interface {
	// Acquire takes the lock for key or fails with core.ErrBusy. The returned
	// release func is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Memory is an in-process Locker.
type Memory struct {
	mu    sync.Mutex
	held  map[string]entry
	now   func() time.Time
	token uint64
}

type entry struct {
	token   uint64
	expires time.Time
}

// NewMemory creates an empty in-process Locker.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]entry), now: time.Now}
}

// Acquire implements Locker. Expired locks are taken over.
func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.held[key]; ok && (e.expires.IsZero() || now.Before(e.expires)) {
		return nil, core.ErrBusy
	}

	m.token++
	e := entry{token: m.token}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	m.held[key] = e

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if cur, ok := m.held[key]; ok && cur.token == e.token {
				delete(m.held, key)
			}
		})
	}, nil
}
