package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// NotificationStore is an in-memory notification queue.
type NotificationStore struct {
	mu    sync.Mutex
	tasks []types.NotificationTask
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Enqueue(_ context.Context, task types.NotificationTask) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == "" {
		task.Status = types.NotificationPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *NotificationStore) Get(_ context.Context, id string) (types.NotificationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return types.NotificationTask{}, store.ErrNotFound
}

func (s *NotificationStore) List(_ context.Context, status types.NotificationStatus) ([]types.NotificationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.NotificationTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *NotificationStore) Pending(_ context.Context, limit int) ([]types.NotificationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.NotificationTask
	for _, t := range s.tasks {
		if t.Status != types.NotificationPending {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *NotificationStore) MarkSent(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(t *types.NotificationTask) {
		t.Status = types.NotificationSent
		t.Reason = ""
		t.Attempts++
		t.UpdatedAt = at.UTC()
	})
}

func (s *NotificationStore) MarkFailed(_ context.Context, id string, reason string, at time.Time) error {
	return s.update(id, func(t *types.NotificationTask) {
		t.Status = types.NotificationFailed
		t.Reason = reason
		t.Attempts++
		t.UpdatedAt = at.UTC()
	})
}

func (s *NotificationStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Status != types.NotificationPending && t.UpdatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	return deleted, nil
}

func (s *NotificationStore) update(id string, fn func(*types.NotificationTask)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			fn(&s.tasks[i])
			return nil
		}
	}
	return store.ErrNotFound
}
