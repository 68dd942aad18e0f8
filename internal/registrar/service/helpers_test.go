package service_test

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func f(name string, v any) types.Field { return types.Field{Name: name, Value: v} }

// countingStore counts calls that reach it.  It sits in front of a
// FaultyRecordStore so injected failures are counted as attempts.
type countingStore struct {
	next store.RecordStore

	mu      sync.Mutex
	gets    int
	upserts int
	deletes int
}

func (c *countingStore) Get(ctx context.Context, id string) (types.Entity, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.next.Get(ctx, id)
}

func (c *countingStore) List(ctx context.Context) ([]types.Entity, error) {
	return c.next.List(ctx)
}

func (c *countingStore) Upsert(ctx context.Context, e types.Entity) error {
	c.mu.Lock()
	c.upserts++
	c.mu.Unlock()
	return c.next.Upsert(ctx, e)
}

func (c *countingStore) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.next.Delete(ctx, id)
}

func (c *countingStore) Upserts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts
}

// errStore fails every write with a fixed error.
type errStore struct {
	store.RecordStore
	err error
}

func (s errStore) Upsert(context.Context, types.Entity) error { return s.err }

// slowStore blocks writes until the attempt context expires.
type slowStore struct {
	store.RecordStore
}

func (s slowStore) Upsert(ctx context.Context, _ types.Entity) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return nil
	}
}

// recordingSurface captures every callback.
type recordingSurface struct {
	mu        sync.Mutex
	loaded    []types.Entity
	rejected  [][]types.Violation
	committed []types.Entity
	aborted   []string
	summaries [][2]int
}

func (r *recordingSurface) OnLoaded(e types.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, e)
}

func (r *recordingSurface) OnRejected(vs []types.Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, vs)
}

func (r *recordingSurface) OnCommitted(e types.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, e)
}

func (r *recordingSurface) OnAborted(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = append(r.aborted, reason)
}

func (r *recordingSurface) OnNotificationSummary(sent, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, [2]int{sent, failed})
}
