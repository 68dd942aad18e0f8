// Package postgres is a RecordStore backed by PostgreSQL through pgx.  Row
// locking and MVCC give the per-entity write serialization that the sqlite
// backend gets from its single writer.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
  id          TEXT PRIMARY KEY,
  seq         BIGSERIAL NOT NULL,
  fields_json JSON NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_records_seq ON records(seq);
`

type RecordStore struct {
	pool *pgxpool.Pool
}

func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Connect opens a pool for dsn and makes sure the records table exists.
func Connect(ctx context.Context, dsn string) (*RecordStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	s := NewRecordStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return classify("EnsureSchema", err)
	}
	return nil
}

func (s *RecordStore) Close() { s.pool.Close() }

func (s *RecordStore) Get(ctx context.Context, id string) (types.Entity, error) {
	id = strings.TrimSpace(id)

	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT fields_json::text FROM records WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Entity{}, store.ErrNotFound
	}
	if err != nil {
		return types.Entity{}, classify("Get", err)
	}
	return decode(id, raw)
}

func (s *RecordStore) List(ctx context.Context) ([]types.Entity, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, fields_json::text FROM records ORDER BY seq`)
	if err != nil {
		return nil, classify("List", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify("List", err)
		}
		e, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, classify("List", rows.Err())
}

// Upsert stores fields in a JSON (not JSONB) column so key order survives.
func (s *RecordStore) Upsert(ctx context.Context, e types.Entity) error {
	if err := store.CheckID(e.ID); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	id := e.ID
	raw, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("Upsert encode %s: %w", id, err)
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO records(id, fields_json) VALUES ($1, $2::json)
ON CONFLICT (id) DO UPDATE SET
  fields_json = excluded.fields_json,
  updated_at  = now()`, id, string(raw))
	return classify("Upsert", err)
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return classify("Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func decode(id string, raw []byte) (types.Entity, error) {
	var fields types.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return types.Entity{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return types.Entity{ID: id, Fields: fields}, nil
}

// classify maps connection-level failures to store.ErrTransient.  Server
// errors (constraint violations, syntax) are returned as-is.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		errors.As(err, &connErr),
		pgconn.SafeToRetry(err):
		return fmt.Errorf("%w: %s: %v", store.ErrTransient, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
