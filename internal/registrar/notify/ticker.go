package notify

import (
	"context"
	"time"
)

// ticker runs fn every interval on its own goroutine until stopped.
type ticker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// start launches the loop.  With now set, fn also runs once before the
// first tick.
func (t *ticker) start(ctx context.Context, interval time.Duration, now bool, fn func(context.Context)) {
	t.done = make(chan struct{})
	ctx, t.cancel = context.WithCancel(ctx)

	go func() {
		defer close(t.done)
		if now {
			fn(ctx)
		}
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				fn(ctx)
			}
		}
	}()
}

// stop cancels the loop and waits for it.  Safe before start and when
// called twice.
func (t *ticker) stop() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.done != nil {
		<-t.done
	}
}
