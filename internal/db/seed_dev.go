package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

type seedRecord struct {
	id     string
	fields string
}

// Sample records for local development: one absence row per use case the
// dev UI exercises.
var devRecords = []seedRecord{
	{"S001", `{"kind":"absence","name":"Mario Rossi","date":"2026-02-15","present":true,"guardian_email":"rossi.family@example.org"}`},
	{"S002", `{"kind":"absence","name":"Giulia Bianchi","date":"2026-02-15","present":true,"guardian_email":"bianchi@example.org"}`},
	{"T001", `{"kind":"tag","name":"museum","description":"Museums and galleries"}`},
	{"H001", `{"kind":"heritage","name":"Castel Sant'Elmo","city":"Napoli","phone":"+39 081 229 4589"}`},
}

// SeedDev inserts the dev sample records.  Existing rows are left alone so
// edits made during a dev session survive a restart.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	for _, r := range devRecords {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO records(id, seq, fields_json, created_at_ms, updated_at_ms)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?, ?, ?);
`, r.id, r.fields, now, now); err != nil {
			return fmt.Errorf("seed record %s: %w", r.id, err)
		}
	}

	return nil
}

// DevEntities decodes the dev sample set for backends that do not sit on
// sqlite.  Field order matches the seeded rows.
func DevEntities() ([]types.Entity, error) {
	out := make([]types.Entity, 0, len(devRecords))
	for _, r := range devRecords {
		var fs types.Fields
		if err := json.Unmarshal([]byte(r.fields), &fs); err != nil {
			return nil, fmt.Errorf("decode dev record %s: %w", r.id, err)
		}
		out = append(out, types.Entity{ID: r.id, Fields: fs})
	}
	return out, nil
}
