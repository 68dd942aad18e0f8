package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// Store is an in-memory RecordStore.  It is intended for tests, dev and the
// console tools.
type Store struct {
	mu    sync.RWMutex
	data  map[string]types.Entity
	order []string
}

func New(seed ...types.Entity) *Store {
	s := &Store{
		data: make(map[string]types.Entity),
	}
	for _, e := range seed {
		_ = s.Upsert(context.Background(), e)
	}
	return s
}

func (s *Store) Get(_ context.Context, id string) (types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[strings.TrimSpace(id)]
	if !ok {
		return types.Entity{}, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *Store) List(_ context.Context) ([]types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Clone())
	}
	return out, nil
}

func (s *Store) Upsert(_ context.Context, e types.Entity) error {
	if err := store.CheckID(e.ID); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.data[e.ID] = e.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored entities.  Test-only helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
