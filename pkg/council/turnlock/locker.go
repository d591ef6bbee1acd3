// Package turnlock guarantees at most one in-flight AI turn per chat session.
package turnlock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrTurnInProgress = errors.New("turnlock: a turn is already in progress for this session")

// Locker rejects instead of waiting. The returned release func is safe to call more than once.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (func(), error)
}

type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	ttl   time.Duration
	now   func() time.Time
	epoch uint64
}

type memoryLease struct {
	epoch     uint64
	expiresAt time.Time
}

// NewMemoryLocker returns a process-local locker. A lease older than ttl is
// considered abandoned; ttl <= 0 disables expiry.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryLease),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (l *MemoryLocker) TryAcquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, ok := l.held[key]; ok {
		if l.ttl <= 0 || now.Before(lease.expiresAt) {
			return nil, ErrTurnInProgress
		}
	}

	l.epoch++
	lease := memoryLease{epoch: l.epoch}
	if l.ttl > 0 {
		lease.expiresAt = now.Add(l.ttl)
	}
	l.held[key] = lease

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// An expired lease may already belong to someone else.
			if current, ok := l.held[key]; ok && current.epoch == lease.epoch {
				delete(l.held, key)
			}
		})
	}, nil
}

// Held reports whether key is currently locked.
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lease, ok := l.held[key]
	if !ok {
		return false
	}
	return l.ttl <= 0 || l.now().Before(lease.expiresAt)
}
