package ledger

import (
	"context"
	"sort"
	"sync"

	apperrors "spendwise/internal/errors"
)

// Locker grants exclusive access to a set of keys (user ids) for the length
// of one use case. Keys are always taken in sorted order so two callers
// locking overlapping sets cannot deadlock.
type Locker interface {
	// Acquire blocks until every key is held or ctx is done. The returned
	// release func is safe to call more than once.
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// MemoryLocker is a process-local keyed mutex. It serialises writers inside
// one API process; use RedisLocker when several replicas share a database
// without row-level locks.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot)}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		s := l.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			l.release(held)
			return nil, apperrors.Wrap(apperrors.ErrLockTimeout, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *MemoryLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *MemoryLocker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		s := l.slots[keys[i]]
		l.mu.Unlock()
		<-s.ch
		l.unref(keys[i])
	}
}

// normalizeKeys sorts keys and drops blanks and duplicates.
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
