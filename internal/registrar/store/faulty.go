package store

import (
	"context"
	"fmt"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/fault"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// FaultyRecordStore simulates an unreliable connection in front of another
// RecordStore.  The policy is consulted before delegating, so an injected
// failure never reaches the backend.
type FaultyRecordStore struct {
	next   RecordStore
	policy fault.Policy
}

func WithFaults(next RecordStore, p fault.Policy) *FaultyRecordStore {
	if p == nil {
		p = fault.Never()
	}
	return &FaultyRecordStore{next: next, policy: p}
}

func (s *FaultyRecordStore) Get(ctx context.Context, id string) (types.Entity, error) {
	if err := s.inject("get"); err != nil {
		return types.Entity{}, err
	}
	return s.next.Get(ctx, id)
}

func (s *FaultyRecordStore) List(ctx context.Context) ([]types.Entity, error) {
	if err := s.inject("list"); err != nil {
		return nil, err
	}
	return s.next.List(ctx)
}

func (s *FaultyRecordStore) Upsert(ctx context.Context, e types.Entity) error {
	if err := s.inject("upsert"); err != nil {
		return err
	}
	return s.next.Upsert(ctx, e)
}

func (s *FaultyRecordStore) Delete(ctx context.Context, id string) error {
	if err := s.inject("delete"); err != nil {
		return err
	}
	return s.next.Delete(ctx, id)
}

func (s *FaultyRecordStore) inject(op string) error {
	if s.policy.Fail(op) {
		return fmt.Errorf("%w: connection lost during %s", ErrTransient, op)
	}
	return nil
}
