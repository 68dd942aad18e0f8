package notify_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/fault"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/metrics"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/notify"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store/memory"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func task(id, target string) types.NotificationTask {
	return types.NotificationTask{
		ID:       id,
		EntityID: "S001",
		Target:   target,
		Subject:  "Absence Notification for Ada",
		Status:   types.NotificationPending,
	}
}

// countingNotifier wraps a Notifier and counts calls.
type countingNotifier struct {
	next notify.Notifier

	mu         sync.Mutex
	dispatches int
	reconnects int
}

func (c *countingNotifier) Dispatch(ctx context.Context, t types.NotificationTask) error {
	c.mu.Lock()
	c.dispatches++
	c.mu.Unlock()
	return c.next.Dispatch(ctx, t)
}

func (c *countingNotifier) Reconnect(ctx context.Context) bool {
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
	return c.next.Reconnect(ctx)
}

// ---------------------------------------------------------------------------
// Simulated
// ---------------------------------------------------------------------------

func TestSimulated_NoTarget(t *testing.T) {
	s := notify.NewSimulated(notify.SimulatedConfig{}, silentLogger())
	err := s.Dispatch(context.Background(), task("n1", "  "))
	require.ErrorIs(t, err, notify.ErrNoTarget)
	assert.Empty(t, s.Sent())
}

func TestSimulated_StaysDownUntilReconnect(t *testing.T) {
	s := notify.NewSimulated(notify.SimulatedConfig{
		Failure: fault.Script(true),
	}, silentLogger())
	ctx := context.Background()

	require.ErrorIs(t, s.Dispatch(ctx, task("n1", "a@b.org")), notify.ErrChannelDown)
	require.ErrorIs(t, s.Dispatch(ctx, task("n2", "a@b.org")), notify.ErrChannelDown)

	require.True(t, s.Reconnect(ctx))
	require.NoError(t, s.Dispatch(ctx, task("n3", "a@b.org")))
	require.Len(t, s.Sent(), 1)
	assert.Equal(t, "n3", s.Sent()[0].ID)
}

func TestSimulated_ReconnectFailureKeepsChannelDown(t *testing.T) {
	s := notify.NewSimulated(notify.SimulatedConfig{
		Failure:          fault.Script(true),
		ReconnectFailure: fault.Always(),
	}, silentLogger())
	ctx := context.Background()

	require.Error(t, s.Dispatch(ctx, task("n1", "a@b.org")))
	assert.False(t, s.Reconnect(ctx))
	assert.ErrorIs(t, s.Dispatch(ctx, task("n1", "a@b.org")), notify.ErrChannelDown)
}

func TestNoop(t *testing.T) {
	var n notify.Noop
	assert.NoError(t, n.Dispatch(context.Background(), task("n1", "")))
	assert.True(t, n.Reconnect(context.Background()))
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

func newDispatcher(t *testing.T, n notify.Notifier, tasks ...types.NotificationTask) (*notify.Dispatcher, *memory.NotificationStore, *metrics.Metrics) {
	t.Helper()
	q := memory.NewNotificationStore()
	for _, tk := range tasks {
		require.NoError(t, q.Enqueue(context.Background(), tk))
	}
	m := metrics.New(prometheus.NewRegistry())
	return notify.NewDispatcher(q, n, notify.DispatcherConfig{}, silentLogger(), m), q, m
}

func TestDispatcher_SendsAndMarks(t *testing.T) {
	sim := notify.NewSimulated(notify.SimulatedConfig{}, silentLogger())
	tk := task("n1", "guardian@example.org")
	d, q, m := newDispatcher(t, sim, tk)
	ctx := context.Background()

	sum := d.Dispatch(ctx, []types.NotificationTask{tk})
	assert.Equal(t, types.NotificationSummary{Sent: 1}, sum)

	got, err := q.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, types.NotificationSent, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestDispatcher_ReconnectsAndRetriesOnce(t *testing.T) {
	sim := notify.NewSimulated(notify.SimulatedConfig{Failure: fault.Script(true)}, silentLogger())
	cn := &countingNotifier{next: sim}
	tk := task("n1", "guardian@example.org")
	d, q, _ := newDispatcher(t, cn, tk)

	sum := d.Dispatch(context.Background(), []types.NotificationTask{tk})
	assert.Equal(t, types.NotificationSummary{Sent: 1}, sum)
	assert.Equal(t, 2, cn.dispatches)
	assert.Equal(t, 1, cn.reconnects)

	got, _ := q.Get(context.Background(), "n1")
	assert.Equal(t, types.NotificationSent, got.Status)
}

func TestDispatcher_AlwaysFailingChannel(t *testing.T) {
	sim := notify.NewSimulated(notify.SimulatedConfig{Failure: fault.Always()}, silentLogger())
	cn := &countingNotifier{next: sim}
	tk := task("n1", "guardian@example.org")
	d, q, m := newDispatcher(t, cn, tk)

	sum := d.Dispatch(context.Background(), []types.NotificationTask{tk})
	assert.Equal(t, types.NotificationSummary{Failed: 1}, sum)
	assert.Equal(t, 2, cn.dispatches, "one retry after reconnect")

	got, _ := q.Get(context.Background(), "n1")
	assert.Equal(t, types.NotificationFailed, got.Status)
	assert.Contains(t, got.Reason, "mail server unavailable")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestDispatcher_FailedReconnectSkipsRetry(t *testing.T) {
	sim := notify.NewSimulated(notify.SimulatedConfig{
		Failure:          fault.Always(),
		ReconnectFailure: fault.Always(),
	}, silentLogger())
	cn := &countingNotifier{next: sim}
	tk := task("n1", "guardian@example.org")
	d, _, _ := newDispatcher(t, cn, tk)

	sum := d.Dispatch(context.Background(), []types.NotificationTask{tk})
	assert.Equal(t, types.NotificationSummary{Failed: 1}, sum)
	assert.Equal(t, 1, cn.dispatches)
	assert.Equal(t, 1, cn.reconnects)
}

func TestDispatcher_NoTargetFailsWithoutReconnect(t *testing.T) {
	cn := &countingNotifier{next: notify.NewSimulated(notify.SimulatedConfig{}, silentLogger())}
	tk := task("n1", "")
	d, q, _ := newDispatcher(t, cn, tk)

	sum := d.Dispatch(context.Background(), []types.NotificationTask{tk})
	assert.Equal(t, types.NotificationSummary{Failed: 1}, sum)
	assert.Equal(t, 0, cn.reconnects)

	got, _ := q.Get(context.Background(), "n1")
	assert.Equal(t, types.NotificationFailed, got.Status)
}

func TestDispatcher_SkipsFinishedTasks(t *testing.T) {
	cn := &countingNotifier{next: notify.Noop{}}
	tk := task("n1", "guardian@example.org")
	d, _, _ := newDispatcher(t, cn, tk)
	ctx := context.Background()

	d.Dispatch(ctx, []types.NotificationTask{tk})
	sum := d.Dispatch(ctx, []types.NotificationTask{tk})
	assert.Equal(t, types.NotificationSummary{}, sum)
	assert.Equal(t, 1, cn.dispatches)
}

func TestDispatcher_FlushDrainsPending(t *testing.T) {
	d, q, _ := newDispatcher(t, notify.Noop{},
		task("n1", "a@example.org"),
		task("n2", "b@example.org"),
		task("n3", "c@example.org"),
	)
	ctx := context.Background()

	sum, err := d.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.NotificationSummary{Sent: 3}, sum)

	pending, err := q.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatcher_BackgroundLoop(t *testing.T) {
	q := memory.NewNotificationStore()
	require.NoError(t, q.Enqueue(context.Background(), task("n1", "a@example.org")))
	d := notify.NewDispatcher(q, notify.Noop{}, notify.DispatcherConfig{IntervalSeconds: 1}, silentLogger(), nil)

	d.Start(context.Background())
	defer d.Stop()

	require.Eventually(t, func() bool {
		got, err := q.Get(context.Background(), "n1")
		return err == nil && got.Status == types.NotificationSent
	}, 5*time.Second, 50*time.Millisecond)
}

func TestDispatcher_StopBeforeStartAndTwice(t *testing.T) {
	d := notify.NewDispatcher(memory.NewNotificationStore(), notify.Noop{}, notify.DispatcherConfig{}, silentLogger(), nil)
	d.Stop()
	d.Start(context.Background())
	d.Stop()
	d.Stop()
}

// ---------------------------------------------------------------------------
// AbsenceTrigger
// ---------------------------------------------------------------------------

func TestAbsenceTrigger_AbsentRaisesTask(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := types.NewEntity("S001",
		types.Field{Name: "name", Value: "Ada Lovelace"},
		types.Field{Name: "date", Value: "2026-03-02"},
		types.Field{Name: "present", Value: false},
		types.Field{Name: "guardian_email", Value: "parent@example.org"},
		types.Field{Name: "notes", Value: "  sick  "},
	)

	tasks := notify.AbsenceTrigger{Now: func() time.Time { return fixed }}.Tasks(e)
	require.Len(t, tasks, 1)

	tk := tasks[0]
	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, "S001", tk.EntityID)
	assert.Equal(t, "parent@example.org", tk.Target)
	assert.Equal(t, "Absence Notification for Ada Lovelace", tk.Subject)
	assert.Contains(t, tk.Payload, "Ada Lovelace was absent on 2026-03-02.")
	assert.Contains(t, tk.Payload, "Notes: sick\n")
	assert.Contains(t, tk.Payload, "Student ID: S001")
	assert.Equal(t, types.NotificationPending, tk.Status)
	assert.Equal(t, fixed, tk.CreatedAt)
}

func TestAbsenceTrigger_PresentOrUnflaggedRaisesNothing(t *testing.T) {
	trig := notify.AbsenceTrigger{}
	assert.Empty(t, trig.Tasks(types.NewEntity("S001", types.Field{Name: "present", Value: true})))
	assert.Empty(t, trig.Tasks(types.NewEntity("T001", types.Field{Name: "name", Value: "Tag"})))
}

func TestAbsenceTrigger_MissingTargetStillRaises(t *testing.T) {
	tasks := notify.AbsenceTrigger{}.Tasks(types.NewEntity("S001", types.Field{Name: "present", Value: false}))
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Target)
	assert.Equal(t, "Absence Notification for S001", tasks[0].Subject)
}

func TestTriggers_Combines(t *testing.T) {
	one := notify.TriggerFunc(func(e types.Entity) []types.NotificationTask {
		return []types.NotificationTask{{ID: "x", EntityID: e.ID}}
	})
	combined := notify.Triggers(one, nil, one)
	assert.Len(t, combined.Tasks(types.NewEntity("S001")), 2)
}

// ---------------------------------------------------------------------------
// Pruner
// ---------------------------------------------------------------------------

func TestPruner_DisabledWhenRetentionZero(t *testing.T) {
	p := notify.NewPruner(memory.NewNotificationStore(), notify.PrunerConfig{
		RetentionDays: 0,
		IntervalHours: 1,
	}, silentLogger(), nil)

	p.Start(context.Background())
	p.Stop()
}

func TestPruner_PrunesOnStartup(t *testing.T) {
	q := memory.NewNotificationStore()
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, 0, -40)

	require.NoError(t, q.Enqueue(ctx, task("old", "a@example.org")))
	require.NoError(t, q.MarkSent(ctx, "old", old))
	require.NoError(t, q.Enqueue(ctx, task("pending", "a@example.org")))

	m := metrics.New(prometheus.NewRegistry())
	p := notify.NewPruner(q, notify.PrunerConfig{RetentionDays: 30, IntervalHours: 1}, silentLogger(), m)
	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool {
		all, _ := q.List(ctx, "")
		return len(all) == 1 && all[0].ID == "pending"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PrunedTasks))
}

func TestPruner_PruneKeepsRecentAndPending(t *testing.T) {
	q := memory.NewNotificationStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, q.Enqueue(ctx, task("old-sent", "a@example.org")))
	require.NoError(t, q.MarkSent(ctx, "old-sent", now.AddDate(0, 0, -10)))
	require.NoError(t, q.Enqueue(ctx, task("old-failed", "a@example.org")))
	require.NoError(t, q.MarkFailed(ctx, "old-failed", "down", now.AddDate(0, 0, -10)))
	require.NoError(t, q.Enqueue(ctx, task("recent", "a@example.org")))
	require.NoError(t, q.MarkSent(ctx, "recent", now.AddDate(0, 0, -1)))
	require.NoError(t, q.Enqueue(ctx, task("pending", "a@example.org")))

	p := notify.NewPruner(q, notify.PrunerConfig{RetentionDays: 7}, silentLogger(), nil)
	n, err := p.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	all, err := q.List(ctx, "")
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, x := range all {
		ids = append(ids, x.ID)
	}
	assert.ElementsMatch(t, []string{"recent", "pending"}, ids)
}

func TestPruner_PruneDisabledIsNoop(t *testing.T) {
	q := memory.NewNotificationStore()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, task("old", "a@example.org")))
	require.NoError(t, q.MarkSent(ctx, "old", time.Now().UTC().AddDate(-1, 0, 0)))

	n, err := notify.NewPruner(q, notify.PrunerConfig{}, silentLogger(), nil).Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPruner_StopIsIdempotent(t *testing.T) {
	p := notify.NewPruner(memory.NewNotificationStore(), notify.PrunerConfig{
		RetentionDays: 30,
		IntervalHours: 1,
	}, silentLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.Stop()
	p.Stop()
}

// ---------------------------------------------------------------------------
// Broker-backed notifiers against unreachable endpoints
// ---------------------------------------------------------------------------

func TestRedis_UnreachableIsChannelDown(t *testing.T) {
	client := redisClient("127.0.0.1:1")
	r := notify.NewRedis(client, "")
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := r.Dispatch(ctx, task("n1", "a@example.org"))
	require.ErrorIs(t, err, notify.ErrChannelDown)
	assert.False(t, r.Reconnect(ctx))
	assert.ErrorIs(t, r.Dispatch(ctx, task("n2", "")), notify.ErrNoTarget)
}

func TestKafka_UnreachableIsChannelDown(t *testing.T) {
	k, err := notify.NewKafka([]string{"127.0.0.1:1"}, "")
	require.NoError(t, err)
	defer k.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err = k.Dispatch(ctx, task("n1", "a@example.org"))
	require.ErrorIs(t, err, notify.ErrChannelDown)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancelPing()
	assert.False(t, k.Reconnect(pingCtx))
}
