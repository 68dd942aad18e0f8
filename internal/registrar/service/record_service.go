package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/metrics"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/notify"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/validate"
)

const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 2 * time.Second
)

// Options bounds the retry policy of every store call a session makes.
// Retries reuse the same candidate with no backoff and no re-fetch.
type Options struct {
	// MaxAttempts is the total number of calls, not retries.  1 means no
	// retry.  Defaults to 3.
	MaxAttempts int

	// AttemptTimeout bounds a single store call.  A call that runs past it
	// counts as a transient failure.  Defaults to 2s; negative disables.
	AttemptTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.AttemptTimeout == 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	return o
}

// Deps holds the collaborators a RecordService is composed from.
type Deps struct {
	Records   store.RecordStore
	Validator validate.Validator

	// Queue and Trigger are optional.  Without them no notification task
	// is raised on commit.
	Queue   store.NotificationStore
	Trigger notify.Trigger

	Logger  *log.Logger
	Metrics *metrics.Metrics
	Options Options
}

// RecordService owns the dependencies shared by change sessions and serves
// the read and delete paths that do not need a session.
type RecordService struct {
	records   store.RecordStore
	validator validate.Validator
	queue     store.NotificationStore
	trigger   notify.Trigger
	logger    *log.Logger
	metrics   *metrics.Metrics
	opts      Options
}

func NewRecordService(d Deps) *RecordService {
	if d.Validator == nil {
		d.Validator = validate.Rules{}
	}
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	return &RecordService{
		records:   d.Records,
		validator: d.Validator,
		queue:     d.Queue,
		trigger:   d.Trigger,
		logger:    d.Logger,
		metrics:   d.Metrics,
		opts:      d.Options.withDefaults(),
	}
}

func (s *RecordService) Options() Options { return s.opts }

func (s *RecordService) Get(ctx context.Context, id string) (types.Entity, error) {
	var e types.Entity
	_, err := s.retry(ctx, "get", func(ctx context.Context) error {
		var err error
		e, err = s.records.Get(ctx, id)
		return err
	})
	if err != nil {
		return types.Entity{}, fmt.Errorf("get %s: %w", id, err)
	}
	return e, nil
}

func (s *RecordService) List(ctx context.Context) ([]types.Entity, error) {
	var out []types.Entity
	_, err := s.retry(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = s.records.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

// Delete removes id permanently.  ErrNotFound is returned unwrapped by
// errors.Is and never retried.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	_, err := s.retry(ctx, "delete", func(ctx context.Context) error {
		return s.records.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	s.logger.Printf("record %s deleted", id)
	return nil
}

// retry calls fn until it succeeds, fails permanently, or MaxAttempts
// transient failures have been seen.  It returns the number of calls made
// and the last error.
func (s *RecordService) retry(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	var err error
	attempt := 0
	for attempt < s.opts.MaxAttempts {
		attempt++

		actx, cancel := s.attemptContext(ctx)
		err = fn(actx)
		cancel()

		if err == nil {
			s.metrics.StoreAttempt(op, "ok")
			return attempt, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && !store.IsTransient(err) {
			err = fmt.Errorf("%w: %s timed out after %s", store.ErrTransient, op, s.opts.AttemptTimeout)
		}
		if !store.IsTransient(err) {
			s.metrics.StoreAttempt(op, "error")
			return attempt, err
		}

		s.metrics.StoreAttempt(op, "transient")
		s.logger.Printf("store %s attempt %d/%d failed: %v", op, attempt, s.opts.MaxAttempts, err)

		if ctx.Err() != nil {
			break
		}
	}
	return attempt, err
}

func (s *RecordService) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.AttemptTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.AttemptTimeout)
	}
	return context.WithCancel(ctx)
}
