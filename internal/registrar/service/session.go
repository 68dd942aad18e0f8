package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/validate"
)

// ErrInvalidState is returned when an operation is called in a state that
// does not allow it.  It is a caller bug and is never retried.
var ErrInvalidState = errors.New("invalid session state")

type State string

const (
	StateIdle       State = "idle"
	StateLoaded     State = "loaded"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateCommitted  State = "committed"
	StateRejected   State = "rejected"
	StateAborted    State = "aborted"
)

func (s State) Terminal() bool {
	switch s {
	case StateCommitted, StateRejected, StateAborted:
		return true
	}
	return false
}

const (
	reasonNotFound  = "entity not found"
	reasonCancelled = "user cancelled"
)

// Session governs one load, edit, submit transaction.  It completes
// exactly one transaction; every call after a terminal state fails with
// ErrInvalidState.
//
// Once Submitting has been entered the submit runs to completion.  Cancel
// is only honoured in Loaded or Validating.
type Session struct {
	id  string
	svc *RecordService

	mu       sync.Mutex
	state    State
	original types.Entity
	outcome  types.Outcome
	tasks    []types.NotificationTask
}

func (s *RecordService) NewSession() *Session {
	return &Session{
		id:    uuid.NewString(),
		svc:   s,
		state: StateIdle,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the terminal outcome.  ok is false until the session has
// reached a terminal state.
func (s *Session) Outcome() (types.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.state.Terminal()
}

// Original returns a copy of the entity as it was loaded.
func (s *Session) Original() types.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original.Clone()
}

// Tasks returns the notification tasks enqueued by the commit.
func (s *Session) Tasks() []types.NotificationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.NotificationTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Begin loads the original entity.  NotFound and exhausted transient
// failures abort the session and are returned wrapped.
func (s *Session) Begin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: begin in state %s", ErrInvalidState, s.state)
	}

	started := time.Now()
	var e types.Entity
	attempts, err := s.svc.retry(ctx, "get", func(ctx context.Context) error {
		var err error
		e, err = s.svc.records.Get(ctx, id)
		return err
	})

	switch {
	case err == nil:
		s.original = e
		s.state = StateLoaded
		return nil
	case errors.Is(err, store.ErrNotFound):
		s.finish(types.Aborted(reasonNotFound), started)
	case store.IsTransient(err):
		s.finish(types.TransientFailure(err.Error(), attempts), started)
	default:
		s.finish(types.Aborted(err.Error()), started)
	}
	return fmt.Errorf("begin %s: %w", id, err)
}

// Submit validates candidate and, when it is acceptable, upserts it with
// bounded retry.  The returned error is non-nil only for ErrInvalidState;
// every store or validation result is carried in the Outcome.
func (s *Session) Submit(ctx context.Context, candidate types.Entity) (types.Outcome, error) {
	s.mu.Lock()
	if s.state != StateLoaded {
		st := s.state
		s.mu.Unlock()
		return types.Outcome{}, fmt.Errorf("%w: submit in state %s", ErrInvalidState, st)
	}

	started := time.Now()
	s.state = StateValidating
	candidate = candidate.Clone()

	vs := validate.ImmutableID(s.original.ID)(candidate)
	vs = append(vs, s.svc.validator.Validate(candidate)...)
	if len(vs) > 0 {
		o := s.finish(types.Rejected(vs), started)
		s.mu.Unlock()
		return o, nil
	}

	s.state = StateSubmitting
	s.mu.Unlock()

	attempts, err := s.svc.retry(ctx, "upsert", func(ctx context.Context) error {
		return s.svc.records.Upsert(ctx, candidate)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	var o types.Outcome
	switch {
	case err == nil:
		o = s.finish(types.Committed(candidate, attempts), started)
		s.tasks = s.enqueue(ctx, candidate)
	case store.IsTransient(err):
		s.svc.logger.Printf("session %s: %s aborted after %d attempts: %v", s.id, candidate.ID, attempts, err)
		o = s.finish(types.TransientFailure(err.Error(), attempts), started)
	default:
		s.svc.logger.Printf("session %s: %s aborted: %v", s.id, candidate.ID, err)
		a := types.Aborted(err.Error())
		a.Attempts = attempts
		o = s.finish(a, started)
	}
	return o, nil
}

// Cancel abandons the session without touching the store.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded && s.state != StateValidating {
		return fmt.Errorf("%w: cancel in state %s", ErrInvalidState, s.state)
	}
	s.finish(types.Aborted(reasonCancelled), time.Now())
	return nil
}

// finish records the terminal outcome.  Caller holds s.mu.
func (s *Session) finish(o types.Outcome, started time.Time) types.Outcome {
	switch o.Kind {
	case types.OutcomeCommitted:
		s.state = StateCommitted
	case types.OutcomeRejected:
		s.state = StateRejected
	default:
		s.state = StateAborted
	}
	s.outcome = o
	s.svc.metrics.ObserveOutcome(string(o.Kind), time.Since(started))
	return o
}

// enqueue raises the notification tasks for a committed entity.  Queue
// errors are logged and never affect the commit.  Caller holds s.mu.
func (s *Session) enqueue(ctx context.Context, e types.Entity) []types.NotificationTask {
	if s.svc.trigger == nil || s.svc.queue == nil {
		return nil
	}
	var queued []types.NotificationTask
	for _, t := range s.svc.trigger.Tasks(e) {
		if err := s.svc.queue.Enqueue(ctx, t); err != nil {
			s.svc.logger.Printf("session %s: enqueue notification for %s: %v", s.id, e.ID, err)
			continue
		}
		queued = append(queued, t)
	}
	return queued
}
