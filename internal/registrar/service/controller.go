package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// Surface renders session results.  It is whatever the host presents
// with: an HTTP response, a console, a test recorder.
type Surface interface {
	OnLoaded(e types.Entity)
	OnRejected(vs []types.Violation)
	OnCommitted(e types.Entity)
	OnAborted(reason string)
	OnNotificationSummary(sent, failed int)
}

// Confirmer asks the user a yes/no question before a destructive step.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm answers yes to every prompt.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

// TaskDispatcher delivers notification tasks.  *notify.Dispatcher
// satisfies it.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, tasks []types.NotificationTask) types.NotificationSummary
}

// Result is delivered by SubmitAsync.
type Result struct {
	Outcome types.Outcome
	Err     error
}

// Controller drives one session at a time on behalf of a Surface.
type Controller struct {
	svc        *RecordService
	dispatcher TaskDispatcher
	surface    Surface
	confirm    Confirmer

	session *Session
}

// NewController wires a surface to svc.  dispatcher may be nil, in which
// case queued tasks wait for the background flush loop.  confirm defaults
// to AlwaysConfirm.
func NewController(svc *RecordService, dispatcher TaskDispatcher, surface Surface, confirm Confirmer) *Controller {
	if confirm == nil {
		confirm = AlwaysConfirm
	}
	return &Controller{svc: svc, dispatcher: dispatcher, surface: surface, confirm: confirm}
}

// Session returns the current session, or nil before Load.
func (c *Controller) Session() *Session { return c.session }

// Load starts a fresh session on id.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.session = c.svc.NewSession()
	if err := c.session.Begin(ctx, id); err != nil {
		o, _ := c.session.Outcome()
		c.surface.OnAborted(abortReason(o))
		return err
	}
	c.surface.OnLoaded(c.session.Original())
	return nil
}

// Submit asks for confirmation, then submits candidate on the current
// session.  A declined confirmation cancels the session.
func (c *Controller) Submit(ctx context.Context, candidate types.Entity) (types.Outcome, error) {
	if c.session == nil || c.session.State() != StateLoaded {
		return types.Outcome{}, fmt.Errorf("%w: no loaded session", ErrInvalidState)
	}

	if !c.confirm.Confirm(fmt.Sprintf("Save changes to %s?", candidate.ID)) {
		if err := c.session.Cancel(); err != nil {
			return types.Outcome{}, err
		}
		o, _ := c.session.Outcome()
		c.surface.OnAborted(o.Reason)
		return o, nil
	}

	o, err := c.session.Submit(ctx, candidate)
	if err != nil {
		return types.Outcome{}, err
	}

	switch o.Kind {
	case types.OutcomeCommitted:
		c.surface.OnCommitted(o.Entity)
		if tasks := c.session.Tasks(); len(tasks) > 0 && c.dispatcher != nil {
			sum := c.dispatcher.Dispatch(ctx, tasks)
			c.surface.OnNotificationSummary(sum.Sent, sum.Failed)
		}
	case types.OutcomeRejected:
		c.surface.OnRejected(o.Violations)
	default:
		c.surface.OnAborted(abortReason(o))
	}
	return o, nil
}

// SubmitAsync runs Submit on its own goroutine.  The channel yields
// exactly one Result and is then closed.
func (c *Controller) SubmitAsync(ctx context.Context, candidate types.Entity) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		o, err := c.Submit(ctx, candidate)
		ch <- Result{Outcome: o, Err: err}
	}()
	return ch
}

// Cancel abandons the current session.
func (c *Controller) Cancel() error {
	if c.session == nil {
		return fmt.Errorf("%w: no session", ErrInvalidState)
	}
	if err := c.session.Cancel(); err != nil {
		return err
	}
	c.surface.OnAborted(reasonCancelled)
	return nil
}

// DeleteRecord permanently removes id after confirmation.  deleted is false
// when the user declined.
func (c *Controller) DeleteRecord(ctx context.Context, id string) (deleted bool, err error) {
	if !c.confirm.Confirm(fmt.Sprintf("Delete %s? This cannot be undone.", id)) {
		c.surface.OnAborted(reasonCancelled)
		return false, nil
	}
	if err := c.svc.Delete(ctx, id); err != nil {
		c.surface.OnAborted(deleteReason(err))
		return false, err
	}
	return true, nil
}

func abortReason(o types.Outcome) string {
	if o.Reason != "" {
		return o.Reason
	}
	return string(o.Kind)
}

func deleteReason(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return reasonNotFound
	}
	return err.Error()
}
