package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Registrar/server/internal/db"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type NotificationStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewNotificationStore(db *sql.DB, writer *dbpkg.Worker) *NotificationStore {
	return &NotificationStore{db: db, writer: writer}
}

const notificationColumns = `id, entity_id, target, subject, payload, status, reason, attempts, created_at_ms, updated_at_ms`

func (s *NotificationStore) Enqueue(ctx context.Context, task types.NotificationTask) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == "" {
		task.Status = types.NotificationPending
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		seq, err := nextSeq(ctx, tx, "notifications")
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO notifications(
  id, seq, entity_id, target, subject, payload,
  status, reason, attempts, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			task.ID, seq, task.EntityID, task.Target, task.Subject, task.Payload,
			string(task.Status), task.Reason, task.Attempts,
			task.CreatedAt.UTC().UnixMilli(), task.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("Enqueue insert: %w", err)
		}
		return nil
	})
}

func (s *NotificationStore) Get(ctx context.Context, id string) (types.NotificationTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?;`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NotificationTask{}, store.ErrNotFound
	}
	return t, err
}

func (s *NotificationStore) List(ctx context.Context, status types.NotificationStatus) ([]types.NotificationTask, error) {
	if status == "" {
		return s.query(ctx, `SELECT `+notificationColumns+` FROM notifications ORDER BY seq;`)
	}
	return s.query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE status = ? ORDER BY seq;`,
		string(status))
}

func (s *NotificationStore) Pending(ctx context.Context, limit int) ([]types.NotificationTask, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE status = 'pending' ORDER BY seq LIMIT ?;`,
		limit)
}

func (s *NotificationStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.mark(ctx, id, types.NotificationSent, "", at)
}

func (s *NotificationStore) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	return s.mark(ctx, id, types.NotificationFailed, reason, at)
}

// PruneOlderThan deletes finished tasks whose updated_at_ms is before the
// cutoff.  Uses idx_notifications_updated for the range scan.
func (s *NotificationStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM notifications
WHERE updated_at_ms < ? AND status IN ('sent', 'failed');
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

func (s *NotificationStore) mark(ctx context.Context, id string, status types.NotificationStatus, reason string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE notifications
SET status = ?,
    reason = ?,
    attempts = attempts + 1,
    updated_at_ms = ?
WHERE id = ?;
`, string(status), reason, at.UTC().UnixMilli(), id)
		if err != nil {
			return fmt.Errorf("mark %s %s: %w", id, status, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *NotificationStore) query(ctx context.Context, q string, args ...any) ([]types.NotificationTask, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []types.NotificationTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (types.NotificationTask, error) {
	var (
		t                  types.NotificationTask
		status             string
		createdMs, updated int64
	)
	if err := sc.Scan(
		&t.ID, &t.EntityID, &t.Target, &t.Subject, &t.Payload,
		&status, &t.Reason, &t.Attempts, &createdMs, &updated,
	); err != nil {
		return types.NotificationTask{}, err
	}
	t.Status = types.NotificationStatus(status)
	t.CreatedAt = time.UnixMilli(createdMs).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return t, nil
}
