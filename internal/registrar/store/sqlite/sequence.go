package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// nextSeq returns the next insertion-order value for table.  Must be called
// inside a writer transaction so the read and the insert cannot race.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM %s;", table),
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("nextSeq %s: %w", table, err)
	}
	return seq, nil
}
