// Package lock provides owner-token locks keyed by string. A lock is
// acquired without waiting: a held key reports failure immediately so the
// caller can surface contention instead of queuing behind it.
package lock

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrEmptyKey  = errors.New("lock_key_empty")
	ErrNotHolder = errors.New("lock_not_held")
)

type Locker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]string)}
}

// TryLock acquires key if it is free and returns the owner token that must
// be presented to Release.
func (l *Locker) TryLock(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

// Release frees key when token matches the current owner.
func (l *Locker) Release(key, token string) error {
	if key == "" || token == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.held[key]
	if !ok || current != token {
		return ErrNotHolder
	}
	delete(l.held, key)
	return nil
}

// Held reports whether key is currently locked.
func (l *Locker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}
