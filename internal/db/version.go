package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DataVersion returns the current data version. It only grows.
func (db *DB) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := db.QueryRowContext(ctx, `SELECT version FROM data_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

// bumpVersion increments the version inside tx and returns the new value.
func bumpVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`UPDATE data_version SET version = version + 1, updated_at = ? WHERE id = 1`,
		time.Now().Unix(),
	); err != nil {
		return 0, fmt.Errorf("bump data version: %w", err)
	}

	var v int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM data_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}
