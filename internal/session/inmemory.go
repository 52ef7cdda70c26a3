package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// InMemoryStore keeps sessions for the process lifetime.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Record
	locks    *keyedMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Record),
		locks:    newKeyedMutex(),
	}
}

func (s *InMemoryStore) Ensure(ctx context.Context, id string) (Record, bool, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[id]; ok {
		return clone(rec), false, nil
	}
	now := time.Now()
	rec := Record{
		ID:        id,
		State:     models.NewSessionState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[id] = rec
	return clone(rec), true, nil
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(rec), nil
}

func (s *InMemoryStore) Save(ctx context.Context, rec Record) error {
	rec.UpdatedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = clone(rec)
	return nil
}

func (s *InMemoryStore) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return s.locks.withLock(id, func() error { return fn(ctx) })
}

// clone guards callers against aliasing the stored history slice and
// state maps.
func clone(rec Record) Record {
	out := rec
	out.History = append([]models.Turn(nil), rec.History...)
	out.State.PlanParameters = cloneMap(rec.State.PlanParameters)
	out.State.UserProfile = cloneMap(rec.State.UserProfile)
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
