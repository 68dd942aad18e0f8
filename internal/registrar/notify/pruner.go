package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/metrics"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
)

// Pruner removes sent and failed tasks once they outlive the retention
// window.  Pending tasks stay until the dispatcher settles them.
type Pruner struct {
	queue     store.NotificationStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	loop ticker
}

type PrunerConfig struct {
	// RetentionDays of finished history to keep.  0 keeps everything and
	// Start becomes a no-op.
	RetentionDays int

	// IntervalHours between passes.  Defaults to 6.
	IntervalHours int
}

func NewPruner(q store.NotificationStore, cfg PrunerConfig, logger *log.Logger, m *metrics.Metrics) *Pruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Pruner{
		queue:     q,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Prune deletes finished tasks last updated before the retention cutoff
// and returns how many went.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.retention)
	n, err := p.queue.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	p.metrics.Pruned(n)
	return n, nil
}

// Start prunes once, then again every interval until ctx ends or Stop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Printf("notification pruner disabled (retention=0)")
		return
	}
	p.loop.start(ctx, p.interval, true, func(ctx context.Context) {
		n, err := p.Prune(ctx)
		switch {
		case err != nil:
			p.logger.Printf("notification pruner: %v", err)
		case n > 0:
			p.logger.Printf("notification pruner: removed %d finished tasks", n)
		}
	})
	p.logger.Printf("notification pruner started (retention=%s, interval=%s)", p.retention, p.interval)
}

func (p *Pruner) Stop() { p.loop.stop() }
