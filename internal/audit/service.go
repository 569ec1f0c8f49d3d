package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"randevu/internal/config"
	"randevu/internal/model"
)

var (
	reservationColumns = []string{
		"id", "date", "hour", "start_time", "end_time", "staff_id", "appointment_type", "profile",
		"status", "customer_name", "customer_phone", "customer_email", "note", "created_at", "updated_at",
	}
	auditColumns   = []string{"id", "event", "reservation_id", "date", "hour", "staff_id", "appointment_type", "profile", "data_version", "created_at"}
	profileColumns = []string{"code", "max_slot_appointment", "max_daily_delivery", "max_daily_per_staff", "duration", "same_day_booking"}
)

const timestampLayout = "2006-01-02 15:04"

// Service exports monthly workbooks and trims the audit log.
type Service struct {
	config  config.ExportConfig
	source  Source
	cleaner Cleaner
	writer  func() ExcelWriter
	loc     *time.Location
	logger  *zerolog.Logger
	now     func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewService(cfg config.ExportConfig, source Source, cleaner Cleaner, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		config:  cfg,
		source:  source,
		cleaner: cleaner,
		writer:  NewExcelizeWriter,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// ExportMonth writes the workbook for the month containing month to w.
func (s *Service) ExportMonth(ctx context.Context, month time.Time, w io.Writer) error {
	from, to := MonthBounds(month.In(s.loc))

	reservations, err := s.source.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	entries, err := s.source.ListAudit(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list audit log: %w", err)
	}
	profiles, err := s.source.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	excel := s.writer()
	defer excel.Close()

	if err := s.writeSheet(excel, "reservations", reservationColumns, len(reservations), func(i int) []interface{} {
		r := reservations[i]
		return []interface{}{
			r.ID, r.Date, r.Hour(s.loc), s.format(r.StartTime), s.format(r.EndTime), r.StaffID,
			string(r.Type), string(r.Profile), string(r.Status),
			r.Name, r.Phone, r.Email, r.Note, s.format(r.CreatedAt), s.format(r.UpdatedAt),
		}
	}); err != nil {
		return err
	}

	if err := s.writeSheet(excel, "audit_log", auditColumns, len(entries), func(i int) []interface{} {
		e := entries[i]
		return []interface{}{
			e.ID, e.Event, e.ReservationID, e.Date, e.Hour, e.StaffID, e.Type, e.Profile, e.DataVersion, s.format(e.CreatedAt),
		}
	}); err != nil {
		return err
	}

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	if err := s.writeSheet(excel, "profiles", profileColumns, len(codes), func(i int) []interface{} {
		p := profiles[model.ProfileCode(codes[i])]
		return []interface{}{codes[i], p.MaxSlotAppointment, p.MaxDailyDelivery, p.MaxDailyPerStaff, p.Duration, p.SameDayBooking}
	}); err != nil {
		return err
	}

	if err := excel.Save(w); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}

	s.logger.Debug().
		Str("month", from.Format("2006-01")).
		Int("reservations", len(reservations)).
		Int("audit_rows", len(entries)).
		Msg("Exported month")
	return nil
}

func (s *Service) writeSheet(excel ExcelWriter, name string, columns []string, n int, row func(i int) []interface{}) error {
	if err := excel.AddSheet(name); err != nil {
		return err
	}
	if err := excel.WriteHeader(columns); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for i := 0; i < n; i++ {
		if err := excel.WriteRow(row(i)); err != nil {
			return fmt.Errorf("write %s row: %w", name, err)
		}
	}
	return nil
}

func (s *Service) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.loc).Format(timestampLayout)
}

// ExportMonthToFile writes the month workbook into dir and returns its path.
func (s *Service) ExportMonthToFile(ctx context.Context, month time.Time, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, GenerateFilename(month.In(s.loc)))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := s.ExportMonth(ctx, month, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Start schedules an export of the previous month on the first of every month.
func (s *Service) Start() {
	if !s.config.Enabled {
		s.logger.Info().Msg("Export service is disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Str("path", s.config.Path).Int("audit_retention_days", s.config.AuditRetentionDays).Msg("Export service started")
}

// Stop gracefully stops the scheduler.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("Export service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := s.nextFirstOfMonth()
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()
	s.logger.Info().Time("time", nextRun).Msg("Next export scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.RunExportAndCleanup()

			nextRun = s.nextFirstOfMonth()
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("time", nextRun).Msg("Next export scheduled")
		}
	}
}

func (s *Service) nextFirstOfMonth() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, s.loc)
}

// RunExportAndCleanup exports the previous month and trims the audit log.
func (s *Service) RunExportAndCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	current, _ := MonthBounds(s.now().In(s.loc))
	prev := current.AddDate(0, -1, 0)
	path, err := s.ExportMonthToFile(ctx, prev, s.config.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to export month")
	} else {
		s.logger.Info().Str("path", path).Msg("Monthly export written")
	}

	if _, err := s.Cleanup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clean up audit log")
	}
}

// Cleanup removes audit rows older than the retention window.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	if s.cleaner == nil || s.config.AuditRetentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -s.config.AuditRetentionDays)
	deleted, err := s.cleaner.DeleteAuditBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit rows: %w", err)
	}
	s.logger.Info().Int64("deleted_count", deleted).Int("retention_days", s.config.AuditRetentionDays).Msg("Cleaned up audit log")
	return deleted, nil
}
