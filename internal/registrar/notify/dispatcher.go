package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/metrics"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// Dispatcher drains queued notification tasks through a Notifier and
// records each result back in the queue.  Every task ends Sent or Failed
// after one pass; nothing a dispatch does can reach the record store.
type Dispatcher struct {
	queue    store.NotificationStore
	notifier Notifier
	logger   *log.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	batch    int

	// mu serialises passes so the background loop and a controller never
	// send the same pending task twice.
	mu sync.Mutex

	loop ticker
}

type DispatcherConfig struct {
	// IntervalSeconds is how often the background loop flushes pending
	// tasks.  0 disables the loop; Dispatch and Flush still work.
	IntervalSeconds int

	// BatchSize caps one background flush.  Defaults to 100.
	BatchSize int
}

func NewDispatcher(q store.NotificationStore, n Notifier, cfg DispatcherConfig, logger *log.Logger, m *metrics.Metrics) *Dispatcher {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Dispatcher{
		queue:    q,
		notifier: n,
		logger:   logger,
		metrics:  m,
		interval: time.Duration(cfg.IntervalSeconds) * time.Second,
		batch:    batch,
	}
}

// Dispatch delivers the given tasks once each.  A task the queue no longer
// holds as pending (already delivered by another pass) is skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []types.NotificationTask) types.NotificationSummary {
	d.mu.Lock()
	defer d.mu.Unlock()

	var sum types.NotificationSummary
	for _, t := range tasks {
		cur, err := d.queue.Get(ctx, t.ID)
		if err != nil {
			d.logger.Printf("notify: load task %s: %v", t.ID, err)
			continue
		}
		if cur.Status != types.NotificationPending {
			continue
		}
		sum.Add(d.dispatchOne(ctx, cur))
	}
	return sum
}

// Flush dispatches every pending task in the queue.
func (d *Dispatcher) Flush(ctx context.Context) (types.NotificationSummary, error) {
	return d.flush(ctx, 0)
}

func (d *Dispatcher) flush(ctx context.Context, limit int) (types.NotificationSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending, err := d.queue.Pending(ctx, limit)
	if err != nil {
		return types.NotificationSummary{}, fmt.Errorf("load pending notifications: %w", err)
	}
	var sum types.NotificationSummary
	for _, t := range pending {
		sum.Add(d.dispatchOne(ctx, t))
	}
	return sum, nil
}

// dispatchOne sends a task, reconnecting and retrying once when the
// channel was down.  Caller holds d.mu.
func (d *Dispatcher) dispatchOne(ctx context.Context, t types.NotificationTask) types.NotificationSummary {
	err := d.notifier.Dispatch(ctx, t)
	if errors.Is(err, ErrChannelDown) {
		if d.notifier.Reconnect(ctx) {
			err = d.notifier.Dispatch(ctx, t)
		}
	}

	now := time.Now().UTC()
	if err == nil {
		if merr := d.queue.MarkSent(ctx, t.ID, now); merr != nil {
			d.logger.Printf("notify: mark %s sent: %v", t.ID, merr)
		}
		d.metrics.Notification(string(types.NotificationSent))
		return types.NotificationSummary{Sent: 1}
	}

	d.logger.Printf("notify: task %s for %s failed: %v", t.ID, t.EntityID, err)
	if merr := d.queue.MarkFailed(ctx, t.ID, err.Error(), now); merr != nil {
		d.logger.Printf("notify: mark %s failed: %v", t.ID, merr)
	}
	d.metrics.Notification(string(types.NotificationFailed))
	return types.NotificationSummary{Failed: 1}
}

// Start runs the background flush loop.  It exits when ctx is cancelled
// or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.interval <= 0 {
		d.logger.Printf("notification dispatcher loop disabled (interval=0)")
		return
	}
	d.loop.start(ctx, d.interval, false, d.tick)
	d.logger.Printf("notification dispatcher started (interval=%s, batch=%d)", d.interval, d.batch)
}

// Stop signals the loop to exit and waits for it.  Safe to call more than
// once, and before Start.
func (d *Dispatcher) Stop() { d.loop.stop() }

func (d *Dispatcher) tick(ctx context.Context) {
	sum, err := d.flush(ctx, d.batch)
	if err != nil {
		d.logger.Printf("notification flush error: %v", err)
		return
	}
	if sum.Sent+sum.Failed > 0 {
		d.logger.Printf("notification flush: sent=%d failed=%d", sum.Sent, sum.Failed)
	}
}
