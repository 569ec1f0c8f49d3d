package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"randevu/internal/model"
)

// SyncProfiles applies profile settings to the database. Codes missing from settings are removed.
// The table mirrors configuration for exports; the engine reads profiles from memory.
func (db *DB) SyncProfiles(ctx context.Context, settings map[model.ProfileCode]model.ProfileSettings) error {
	if len(settings) == 0 {
		return fmt.Errorf("profile settings are empty")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	codes := make([]string, 0, len(settings))
	for code, p := range settings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profile_settings (
				code, max_slot_appointment, max_daily_delivery, max_daily_per_staff, duration, same_day_booking, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(code) DO UPDATE SET
				max_slot_appointment = excluded.max_slot_appointment,
				max_daily_delivery = excluded.max_daily_delivery,
				max_daily_per_staff = excluded.max_daily_per_staff,
				duration = excluded.duration,
				same_day_booking = excluded.same_day_booking,
				updated_at = excluded.updated_at`,
			string(code), p.MaxSlotAppointment, p.MaxDailyDelivery, p.MaxDailyPerStaff, p.Duration, p.SameDayBooking, now,
		)
		if err != nil {
			return fmt.Errorf("sync profile %s: %w", code, err)
		}
		codes = append(codes, string(code))
	}

	query, args, err := builder.Delete("profile_settings").Where(sq.NotEq{"code": codes}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove stale profiles: %w", err)
	}

	return tx.Commit()
}

// ListProfiles returns the persisted profile settings.
func (db *DB) ListProfiles(ctx context.Context) (map[model.ProfileCode]model.ProfileSettings, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT code, max_slot_appointment, max_daily_delivery, max_daily_per_staff, duration, same_day_booking
		FROM profile_settings
		ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.ProfileCode]model.ProfileSettings)
	for rows.Next() {
		var (
			p       model.ProfileSettings
			code    string
			sameDay sql.NullBool
		)
		if err := rows.Scan(&code, &p.MaxSlotAppointment, &p.MaxDailyDelivery, &p.MaxDailyPerStaff, &p.Duration, &sameDay); err != nil {
			return nil, err
		}
		p.Code = model.ProfileCode(code)
		p.SameDayBooking = sameDay.Valid && sameDay.Bool
		out[p.Code] = p
	}
	return out, rows.Err()
}
