package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/fault"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type SimulatedConfig struct {
	// Failure decides when a dispatch drops the channel (p_notify).
	Failure fault.Policy
	// ReconnectFailure decides when a reconnect attempt fails.
	ReconnectFailure fault.Policy
	// Delay simulates network latency per dispatch.
	Delay time.Duration
}

// Simulated is a mail gateway stand-in.  It logs each message instead of
// sending it.  Once a dispatch fails the channel stays down until Reconnect
// succeeds.
type Simulated struct {
	cfg    SimulatedConfig
	logger *log.Logger

	mu   sync.Mutex
	down bool
	sent []types.NotificationTask
}

func NewSimulated(cfg SimulatedConfig, logger *log.Logger) *Simulated {
	if cfg.Failure == nil {
		cfg.Failure = fault.Never()
	}
	if cfg.ReconnectFailure == nil {
		cfg.ReconnectFailure = fault.Never()
	}
	return &Simulated{cfg: cfg, logger: logger}
}

func (s *Simulated) Dispatch(ctx context.Context, task types.NotificationTask) error {
	if strings.TrimSpace(task.Target) == "" {
		return fmt.Errorf("task %s: %w", task.ID, ErrNoTarget)
	}

	if s.cfg.Delay > 0 {
		select {
		case <-time.After(s.cfg.Delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrChannelDown, ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		return fmt.Errorf("%w: not connected", ErrChannelDown)
	}
	if s.cfg.Failure.Fail("dispatch") {
		s.down = true
		s.logger.Printf("notify: mail server unavailable, task %s not sent", task.ID)
		return fmt.Errorf("%w: mail server unavailable", ErrChannelDown)
	}

	s.logger.Printf("notify: sent to=%s subject=%q entity=%s", task.Target, task.Subject, task.EntityID)
	s.sent = append(s.sent, task)
	return nil
}

func (s *Simulated) Reconnect(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.ReconnectFailure.Fail("reconnect") {
		s.logger.Printf("notify: reconnect failed")
		return false
	}
	if s.down {
		s.logger.Printf("notify: reconnected")
	}
	s.down = false
	return true
}

// Sent returns a copy of every delivered task.  Test-only helper.
func (s *Simulated) Sent() []types.NotificationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.NotificationTask, len(s.sent))
	copy(out, s.sent)
	return out
}
