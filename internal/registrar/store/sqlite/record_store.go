package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Registrar/server/internal/db"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type RecordStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRecordStore(db *sql.DB, writer *dbpkg.Worker) *RecordStore {
	return &RecordStore{db: db, writer: writer}
}

func (s *RecordStore) Get(ctx context.Context, id string) (types.Entity, error) {
	id = strings.TrimSpace(id)

	var raw string
	err := s.db.QueryRowContext(ctx, `
SELECT fields_json FROM records WHERE id = ?;
`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, store.ErrNotFound
	}
	if err != nil {
		return types.Entity{}, classify("Get", err)
	}

	return decodeEntity(id, raw)
}

func (s *RecordStore) List(ctx context.Context) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, fields_json FROM records ORDER BY seq;
`)
	if err != nil {
		return nil, classify("List", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		e, err := decodeEntity(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("List", err)
	}
	return out, nil
}

func (s *RecordStore) Upsert(ctx context.Context, e types.Entity) error {
	if err := store.CheckID(e.ID); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	id := e.ID

	raw, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("Upsert encode %s: %w", id, err)
	}
	nowMs := time.Now().UTC().UnixMilli()

	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		seq, err := nextSeq(ctx, tx, "records")
		if err != nil {
			return err
		}

		// seq and created_at_ms are only taken on first insert so a
		// replaced record keeps its position.
		if _, err := tx.ExecContext(ctx, `
INSERT INTO records(id, seq, fields_json, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  fields_json   = excluded.fields_json,
  updated_at_ms = excluded.updated_at_ms;
`, id, seq, string(raw), nowMs, nowMs); err != nil {
			return fmt.Errorf("Upsert %s: %w", id, err)
		}
		return nil
	})
	return classify("Upsert", err)
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("Delete %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return classify("Delete", err)
}

func decodeEntity(id, raw string) (types.Entity, error) {
	var fields types.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return types.Entity{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return types.Entity{ID: id, Fields: fields}, nil
}

// classify maps timeouts and a shut-down writer to store.ErrTransient so the
// caller's retry policy applies.  Everything else passes through.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrTransient):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, dbpkg.ErrWorkerClosed):
		return fmt.Errorf("%w: %s: %v", store.ErrTransient, op, err)
	case strings.Contains(err.Error(), "SQLITE_BUSY"), strings.Contains(err.Error(), "database is locked"):
		return fmt.Errorf("%w: %s: %v", store.ErrTransient, op, err)
	}
	return err
}
