// Package notify delivers side-channel messages raised by committed changes
// (for example "your child was absent today").  Delivery is best-effort and
// always decoupled from the data commit that raised it.
package notify

import (
	"context"
	"errors"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

var (
	// ErrChannelDown means the channel dropped.  A successful Reconnect
	// makes the next Dispatch worth trying.
	ErrChannelDown = errors.New("notification channel down")

	// ErrNoTarget means the task has no address.  Retrying cannot help.
	ErrNoTarget = errors.New("notification has no target address")
)

// Notifier is one delivery channel.  Implementations are chosen when the
// server is composed, never probed at runtime.
type Notifier interface {
	Dispatch(ctx context.Context, task types.NotificationTask) error
	Reconnect(ctx context.Context) bool
}

// Noop accepts every task and delivers nothing.
type Noop struct{}

func (Noop) Dispatch(context.Context, types.NotificationTask) error { return nil }
func (Noop) Reconnect(context.Context) bool                         { return true }
