package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"randevu/internal/model"
)

var reservationColumns = []string{
	"id", "date", "hour", "start_at", "end_at", "staff_id", "type", "profile", "status",
	"customer_name", "customer_phone", "customer_email", "note", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (db *DB) scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		r                model.Reservation
		hour             int
		typ, profile, st string
		start, end       int64
		created, updated int64
	)
	if err := row.Scan(
		&r.ID, &r.Date, &hour, &start, &end, &r.StaffID, &typ, &profile, &st,
		&r.Customer.Name, &r.Customer.Phone, &r.Customer.Email, &r.Customer.Note, &created, &updated,
	); err != nil {
		return nil, err
	}
	r.Type = model.AppointmentType(typ)
	r.Profile = model.ProfileCode(profile)
	r.Status = model.Status(st)
	r.StartTime = time.Unix(start, 0).In(db.loc)
	r.EndTime = time.Unix(end, 0).In(db.loc)
	r.CreatedAt = time.Unix(created, 0).In(db.loc)
	r.UpdatedAt = time.Unix(updated, 0).In(db.loc)
	return &r, nil
}

func (db *DB) queryReservations(ctx context.Context, q sq.SelectBuilder) ([]model.Reservation, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		r, err := db.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (db *DB) activeOnDay(date time.Time) sq.SelectBuilder {
	start, end := db.dayBounds(date)
	return builder.Select(reservationColumns...).
		From("reservations").
		Where(sq.Lt{"start_at": end.Unix()}).
		Where(sq.Gt{"end_at": start.Unix()}).
		Where(sq.NotEq{"status": string(model.StatusCancelled)}).
		OrderBy("start_at", "id")
}

// ListForDate returns non-cancelled reservations intersecting the calendar day of date.
func (db *DB) ListForDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	return db.queryReservations(ctx, db.activeOnDay(date))
}

// ListForDateAndStaff narrows ListForDate to one staff member.
func (db *DB) ListForDateAndStaff(ctx context.Context, date time.Time, staffID string) ([]model.Reservation, error) {
	return db.queryReservations(ctx, db.activeOnDay(date).Where(sq.Eq{"staff_id": staffID}))
}

// ListBetween returns every reservation starting in [from, to), cancelled ones included.
func (db *DB) ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	return db.queryReservations(ctx, builder.Select(reservationColumns...).
		From("reservations").
		Where(sq.GtOrEq{"start_at": from.Unix()}).
		Where(sq.Lt{"start_at": to.Unix()}).
		OrderBy("start_at", "id"))
}

// Get returns a reservation by id.
func (db *DB) Get(ctx context.Context, id string) (*model.Reservation, error) {
	query, args, err := builder.Select(reservationColumns...).
		From("reservations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	r, err := db.scanReservation(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrReservationNotFound, id)
	}
	return r, err
}

// Create inserts r and bumps the data version in the same transaction.
func (db *DB) Create(ctx context.Context, r *model.Reservation) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("reservation is nil")
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := builder.Insert("reservations").
			Columns(reservationColumns...).
			Values(db.values(r)...).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert reservation %s: %w", r.ID, err)
		}
		return nil
	})
}

// Update overwrites every mutable column of r and bumps the data version.
func (db *DB) Update(ctx context.Context, r *model.Reservation) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("reservation is nil")
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		values := db.values(r)
		q := builder.Update("reservations")
		// id and created_at are immutable.
		for i, col := range reservationColumns {
			if col == "id" || col == "created_at" {
				continue
			}
			q = q.Set(col, values[i])
		}
		query, args, err := q.Where(sq.Eq{"id": r.ID}).ToSql()
		if err != nil {
			return err
		}
		return execOne(ctx, tx, r.ID, query, args...)
	})
}

// Delete removes a reservation and bumps the data version.
func (db *DB) Delete(ctx context.Context, id string) (int64, error) {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := builder.Delete("reservations").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return err
		}
		return execOne(ctx, tx, id, query, args...)
	})
}

func (db *DB) values(r *model.Reservation) []interface{} {
	start := r.StartTime.In(db.loc)
	return []interface{}{
		r.ID, start.Format(model.DateLayout), start.Hour(), r.StartTime.Unix(), r.EndTime.Unix(),
		r.StaffID, string(r.Type), string(r.Profile), string(r.Status),
		r.Customer.Name, r.Customer.Phone, r.Customer.Email, r.Customer.Note,
		r.CreatedAt.Unix(), r.UpdatedAt.Unix(),
	}
}

// inTx runs fn and the version bump atomically. Nothing is visible unless both succeed.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return 0, err
	}
	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

func execOne(ctx context.Context, tx *sql.Tx, id, query string, args ...interface{}) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write reservation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrReservationNotFound, id)
	}
	return nil
}
