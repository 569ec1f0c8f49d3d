package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"randevu/internal/db"
	"randevu/internal/model"
)

// Source provides the data exported for a month.
type Source interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	ListAudit(ctx context.Context, from, to time.Time) ([]db.AuditEntry, error)
	ListProfiles(ctx context.Context) (map[model.ProfileCode]model.ProfileSettings, error)
}

// Cleaner removes audit rows past retention.
type Cleaner interface {
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	SaveToFile(path string) error
	Close() error
}

// MonthNames in Turkish for filename generation.
var MonthNames = map[time.Month]string{
	time.January:   "Ocak",
	time.February:  "Şubat",
	time.March:     "Mart",
	time.April:     "Nisan",
	time.May:       "Mayıs",
	time.June:      "Haziran",
	time.July:      "Temmuz",
	time.August:    "Ağustos",
	time.September: "Eylül",
	time.October:   "Ekim",
	time.November:  "Kasım",
	time.December:  "Aralık",
}

// GenerateFilename creates a filename like "Şubat_2025.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("%s_%d.xlsx", MonthNames[t.Month()], t.Year())
}

// MonthBounds returns [first day of month, first day of next month) in t's location.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// ParseMonth parses "YYYY-MM" in loc.
func ParseMonth(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", raw)
	}
	return t, nil
}
