package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// NotificationStore is the notifier's task queue.  Tasks are appended by
// change sessions and drained by the dispatcher.
type NotificationStore interface {
	Enqueue(ctx context.Context, task types.NotificationTask) error
	Get(ctx context.Context, id string) (types.NotificationTask, error)
	// List returns tasks in creation order.  An empty status matches all.
	List(ctx context.Context, status types.NotificationStatus) ([]types.NotificationTask, error)
	// Pending returns up to limit pending tasks, oldest first.  limit <= 0
	// means no limit.
	Pending(ctx context.Context, limit int) ([]types.NotificationTask, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) error
	// PruneOlderThan deletes finished (sent or failed) tasks last updated
	// before cutoff.  Pending tasks are never pruned.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
