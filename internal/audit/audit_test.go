package audit

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"randevu/internal/config"
	"randevu/internal/db"
	"randevu/internal/model"
)

var ist = time.FixedZone("TRT", 3*60*60)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *mockSource) ListAudit(ctx context.Context, from, to time.Time) ([]db.AuditEntry, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.AuditEntry), args.Error(1)
}

func (m *mockSource) ListProfiles(ctx context.Context) (map[model.ProfileCode]model.ProfileSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.ProfileCode]model.ProfileSettings), args.Error(1)
}

func seededDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "audit.db"), ist)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	start := time.Date(2025, 2, 15, 14, 0, 0, 0, ist)
	_, err = store.Create(ctx, &model.Reservation{
		ID: "r1", StartTime: start, EndTime: start.Add(time.Hour), StaffID: "S1",
		Type: model.TypeDelivery, Profile: model.ProfileBoutique, Status: model.StatusConfirmed,
		Customer:  model.Customer{Name: "Zeynep", Note: "zil çalışmıyor"},
		CreatedAt: start.Add(-48 * time.Hour), UpdatedAt: start.Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	march := time.Date(2025, 3, 2, 11, 0, 0, 0, ist)
	_, err = store.Create(ctx, &model.Reservation{
		ID: "r2", StartTime: march, EndTime: march.Add(time.Hour),
		Type: model.TypeService, Profile: model.ProfileGeneral, Status: model.StatusConfirmed,
		CreatedAt: march, UpdatedAt: march,
	})
	require.NoError(t, err)

	require.NoError(t, store.InsertAudit(ctx, db.AuditEntry{
		Event: "reservation.created", ReservationID: "r1", Date: "2025-02-15", Hour: 14,
		StaffID: "S1", Type: "delivery", Profile: "b", DataVersion: 1, CreatedAt: start.Add(-48 * time.Hour),
	}))
	require.NoError(t, store.SyncProfiles(ctx, config.DefaultProfilesConfig().Settings()))
	return store
}

func newTestService(source Source, cleaner Cleaner, cfg config.ExportConfig) *Service {
	logger := zerolog.Nop()
	return NewService(cfg, source, cleaner, ist, &logger)
}

func TestExportMonth(t *testing.T) {
	store := seededDB(t)
	svc := newTestService(store, store, config.ExportConfig{})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportMonth(context.Background(), time.Date(2025, 2, 20, 0, 0, 0, 0, ist), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"reservations", "audit_log", "profiles"}, f.GetSheetList())

	rows, err := f.GetRows("reservations")
	require.NoError(t, err)
	require.Len(t, rows, 2, "header and the February reservation only")
	assert.Equal(t, reservationColumns, rows[0])
	assert.Equal(t, "r1", rows[1][0])
	assert.Equal(t, "14", rows[1][2])
	assert.Equal(t, "2025-02-15 14:00", rows[1][3])
	assert.Equal(t, "zil çalışmıyor", rows[1][12])

	audit, err := f.GetRows("audit_log")
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, "reservation.created", audit[1][1])

	profiles, err := f.GetRows("profiles")
	require.NoError(t, err)
	require.Len(t, profiles, len(model.ProfileCodes)+1)
	assert.Equal(t, "b", profiles[1][0])
}

func TestExportMonth_SourceError(t *testing.T) {
	source := new(mockSource)
	source.On("ListBetween", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db closed"))
	svc := newTestService(source, nil, config.ExportConfig{})

	var buf bytes.Buffer
	err := svc.ExportMonth(context.Background(), time.Date(2025, 2, 1, 0, 0, 0, 0, ist), &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list reservations")
	assert.Zero(t, buf.Len())
}

func TestExportMonthToFile(t *testing.T) {
	store := seededDB(t)
	svc := newTestService(store, store, config.ExportConfig{})
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := svc.ExportMonthToFile(context.Background(), time.Date(2025, 2, 3, 0, 0, 0, 0, ist), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Şubat_2025.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunExportAndCleanup(t *testing.T) {
	store := seededDB(t)
	dir := t.TempDir()
	svc := newTestService(store, store, config.ExportConfig{Path: dir, AuditRetentionDays: 10})
	svc.now = func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, ist) }

	svc.RunExportAndCleanup()

	_, err := os.Stat(filepath.Join(dir, "Şubat_2025.xlsx"))
	assert.NoError(t, err, "previous month is exported")

	left, err := store.ListAudit(context.Background(), time.Time{}, time.Date(2030, 1, 1, 0, 0, 0, 0, ist))
	require.NoError(t, err)
	assert.Empty(t, left, "rows older than retention are removed")
}

func TestStartStop(t *testing.T) {
	svc := newTestService(new(mockSource), nil, config.ExportConfig{Enabled: true, Path: t.TempDir()})
	svc.Start()
	svc.Start()
	svc.Stop()
	svc.Stop()

	disabled := newTestService(new(mockSource), nil, config.ExportConfig{})
	disabled.Start()
	assert.False(t, disabled.running)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "Ağustos_2025.xlsx", GenerateFilename(time.Date(2025, 8, 31, 0, 0, 0, 0, ist)))

	from, to := MonthBounds(time.Date(2024, 12, 31, 23, 0, 0, 0, ist))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, ist), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, ist), to)

	m, err := ParseMonth("2025-02", ist)
	require.NoError(t, err)
	assert.Equal(t, time.February, m.Month())
	_, err = ParseMonth("02/2025", ist)
	assert.Error(t, err)
}

func TestExcelizeWriter(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()

	assert.Error(t, w.WriteRow([]interface{}{"x"}), "no active sheet")
	require.NoError(t, w.AddSheet("a_sheet_name_that_is_longer_than_excel_allows"))
	require.NoError(t, w.WriteHeader([]string{"a", "b"}))
	require.NoError(t, w.WriteRow([]interface{}{1, "x"}))

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetList()[0]
	assert.Len(t, sheet, maxSheetName)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "x"}}, rows)
}
