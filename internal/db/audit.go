package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// AuditEntry is one committed write as recorded in audit_log.
type AuditEntry struct {
	ID            int64
	Event         string
	ReservationID string
	Date          string
	Hour          int
	StaffID       string
	Type          string
	Profile       string
	DataVersion   int64
	CreatedAt     time.Time
}

// InsertAudit appends an audit row.
func (db *DB) InsertAudit(ctx context.Context, e AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query, args, err := builder.Insert("audit_log").
		Columns("event", "reservation_id", "date", "hour", "staff_id", "type", "profile", "data_version", "created_at").
		Values(e.Event, e.ReservationID, e.Date, e.Hour, e.StaffID, e.Type, e.Profile, e.DataVersion, e.CreatedAt.Unix()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit %s %s: %w", e.Event, e.ReservationID, err)
	}
	return nil
}

// ListAudit returns audit rows created in [from, to), oldest first.
func (db *DB) ListAudit(ctx context.Context, from, to time.Time) ([]AuditEntry, error) {
	query, args, err := builder.
		Select("id", "event", "reservation_id", "date", "hour", "staff_id", "type", "profile", "data_version", "created_at").
		From("audit_log").
		Where(sq.GtOrEq{"created_at": from.Unix()}).
		Where(sq.Lt{"created_at": to.Unix()}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e       AuditEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Event, &e.ReservationID, &e.Date, &e.Hour, &e.StaffID,
			&e.Type, &e.Profile, &e.DataVersion, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0).In(db.loc)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteAuditBefore drops audit rows older than cutoff and reports how many were removed.
func (db *DB) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
