package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	sqlitestore "github.com/BrandonDHaskell/Registrar/server/internal/registrar/store/sqlite"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

func task(id, entityID string) types.NotificationTask {
	return types.NotificationTask{
		ID:       id,
		EntityID: entityID,
		Target:   "guardian@example.org",
		Subject:  "Absence Notification for " + entityID,
		Payload:  "body",
	}
}

func TestNotificationStore_Enqueue_DefaultsPending(t *testing.T) {
	conn := openTestDB(t)
	ns := sqlitestore.NewNotificationStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := ns.Enqueue(ctx, task("n1", "S001")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := ns.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.NotificationPending {
		t.Errorf("expected pending, got %q", got.Status)
	}
	if got.EntityID != "S001" || got.Target != "guardian@example.org" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestNotificationStore_Get_NotFound(t *testing.T) {
	conn := openTestDB(t)
	ns := sqlitestore.NewNotificationStore(conn, newTestWriter(t, conn))

	if _, err := ns.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationStore_Pending_OldestFirstWithLimit(t *testing.T) {
	conn := openTestDB(t)
	ns := sqlitestore.NewNotificationStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	for _, id := range []string{"n1", "n2", "n3"} {
		if err := ns.Enqueue(ctx, task(id, "S001")); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}
	if err := ns.MarkSent(ctx, "n1", time.Now()); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	pending, err := ns.Pending(ctx, 1)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "n2" {
		t.Errorf("expected [n2], got %+v", pending)
	}

	all, err := ns.Pending(ctx, 0)
	if err != nil {
		t.Fatalf("Pending all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 pending, got %d", len(all))
	}
}

func TestNotificationStore_MarkFailed_RecordsReasonAndAttempts(t *testing.T) {
	conn := openTestDB(t)
	ns := sqlitestore.NewNotificationStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := ns.Enqueue(ctx, task("n1", "S001")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := ns.MarkFailed(ctx, "n1", "mail server unavailable", time.Now()); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	failed, err := ns.List(ctx, types.NotificationFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed, got %d", len(failed))
	}
	if failed[0].Reason != "mail server unavailable" {
		t.Errorf("unexpected reason %q", failed[0].Reason)
	}
	if failed[0].Attempts != 1 {
		t.Errorf("expected attempts=1, got %d", failed[0].Attempts)
	}

	if err := ns.MarkSent(ctx, "missing", time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound marking unknown task, got %v", err)
	}
}

func TestNotificationStore_PruneOlderThan_KeepsPendingAndRecent(t *testing.T) {
	conn := openTestDB(t)
	ns := sqlitestore.NewNotificationStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"old-sent", "old-pending", "recent-sent"} {
		tk := task(id, "S001")
		tk.CreatedAt = now.AddDate(0, 0, -40)
		if err := ns.Enqueue(ctx, tk); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}
	if err := ns.MarkSent(ctx, "old-sent", now.AddDate(0, 0, -40)); err != nil {
		t.Fatalf("MarkSent old: %v", err)
	}
	if err := ns.MarkSent(ctx, "recent-sent", now.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("MarkSent recent: %v", err)
	}

	deleted, err := ns.PruneOlderThan(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	all, err := ns.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 remaining tasks, got %d", len(all))
	}
}
