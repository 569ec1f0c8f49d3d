package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the reservation store.
type DB struct {
	*sql.DB
	path string
	loc  *time.Location
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// NewDB opens database at path and runs migrations. Day boundaries are computed in loc.
func NewDB(path string, loc *time.Location) (*DB, error) {
	if loc == nil {
		loc = time.UTC
	}

	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, path: path, loc: loc}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL,
			start_at INTEGER NOT NULL,
			end_at INTEGER NOT NULL,
			staff_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			profile TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			customer_name TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS profile_settings (
			code TEXT PRIMARY KEY,
			max_slot_appointment INTEGER NOT NULL DEFAULT 0,
			max_daily_delivery INTEGER NOT NULL DEFAULT 0,
			max_daily_per_staff INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 60,
			same_day_booking BOOLEAN NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS data_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO data_version (id, version, updated_at) VALUES (1, 0, strftime('%s','now'))`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event TEXT NOT NULL,
			reservation_id TEXT NOT NULL,
			date TEXT NOT NULL DEFAULT '',
			hour INTEGER NOT NULL DEFAULT 0,
			staff_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			profile TEXT NOT NULL DEFAULT '',
			data_version INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_reservations_times ON reservations(start_at, end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_date_staff ON reservations(date, staff_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Location returns the zone used for day boundaries.
func (db *DB) Location() *time.Location {
	return db.loc
}

// dayBounds returns [midnight, next midnight) of date in the store location.
func (db *DB) dayBounds(date time.Time) (time.Time, time.Time) {
	d := date.In(db.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, db.loc)
	return start, start.AddDate(0, 0, 1)
}
