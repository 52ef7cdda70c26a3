// Package session owns conversation sessions: ordered chat history, the
// mutable planning state, and the forward-only stage machine. Backends
// serialize concurrent requests per session id so read-modify-write of
// session state never interleaves.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// ErrNotFound is returned when a session id has never been seen.
var ErrNotFound = errors.New("session not found")

// Record is a full session snapshot.
type Record struct {
	ID        string              `json:"id"`
	History   []models.Turn       `json:"history"`
	State     models.SessionState `json:"state"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store is the session backend. Ensure creates the session when the id
// is unknown (or mints an id when given ""); Get never creates.
type Store interface {
	Ensure(ctx context.Context, id string) (Record, bool, error)
	Get(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	// WithLock runs fn while holding the session's exclusive lock.
	// Requests for different ids proceed in parallel.
	WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func (k *keyedMutex) withLock(key string, fn func() error) error {
	m := k.get(key)
	m.Lock()
	defer m.Unlock()
	return fn()
}
