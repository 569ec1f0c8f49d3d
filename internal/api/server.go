package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"randevu/internal/model"
	"randevu/internal/reservation"
)

// Service is the reservation engine as seen by the HTTP layer.
type Service interface {
	ComputeDayAvailability(ctx context.Context, date, profile, typ string) (model.DayAvailability, error)
	List(ctx context.Context, date string) ([]model.Reservation, error)
	Get(ctx context.Context, id string) (*model.Reservation, error)
	ValidateAndReserve(ctx context.Context, req reservation.Request) (model.ReservationResult, error)
	ValidateAndUpdate(ctx context.Context, id string, req reservation.Request) (model.ReservationResult, error)
	AssignStaff(ctx context.Context, id, staffID string) (model.ReservationResult, error)
	Delete(ctx context.Context, id string) (int64, error)
	DataVersion(ctx context.Context) (int64, error)
	Profiles() map[model.ProfileCode]model.ProfileSettings
	SlotsForShift(shift string) []int
}

// Exporter renders the monthly workbook.
type Exporter interface {
	ExportMonth(ctx context.Context, month time.Time, w io.Writer) error
}

// ReadinessCheck is probed by /readyz.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Options configure the HTTP server.
type Options struct {
	Port           int
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	Metrics        bool
}

// HTTPServer exposes the engine over JSON.
type HTTPServer struct {
	server   *http.Server
	svc      Service
	exporter Exporter
	checks   []ReadinessCheck
	apiKey   string
	limiter  *rate.Limiter
	loc      *time.Location
	logger   *zerolog.Logger
}

func NewHTTPServer(opts Options, svc Service, exporter Exporter, loc *time.Location, logger *zerolog.Logger, checks ...ReadinessCheck) *HTTPServer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &HTTPServer{
		svc:      svc,
		exporter: exporter,
		checks:   checks,
		apiKey:   opts.APIKey,
		loc:      loc,
		logger:   logger,
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = int(opts.RateLimitRPS) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.routes(opts.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes(withMetrics bool) http.Handler {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if withMetrics {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware, s.authMiddleware)

	api.HandleFunc("/availability", s.handleAvailability).Methods(http.MethodGet)
	api.HandleFunc("/reservations", s.handleListReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}", s.handleGetReservation).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", s.handleUpdateReservation).Methods(http.MethodPut)
	api.HandleFunc("/reservations/{id}", s.handleDeleteReservation).Methods(http.MethodDelete)
	api.HandleFunc("/reservations/{id}/staff", s.handleAssignStaff).Methods(http.MethodPut)
	api.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	api.HandleFunc("/profiles", s.handleProfiles).Methods(http.MethodGet)
	api.HandleFunc("/shifts/{shift}/slots", s.handleShiftSlots).Methods(http.MethodGet)
	if s.exporter != nil {
		api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	}

	// Method mismatches inside a subrouter never reach the root handler.
	r.MethodNotAllowedHandler = countUnmatched(http.HandlerFunc(methodNotAllowed))
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	r.NotFoundHandler = countUnmatched(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Handler returns the root router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Str("check", c.Name).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, c.Name+" not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps the engine error taxonomy to a status code and a safe message.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reservation.ErrBadRequest):
		writeError(w, http.StatusBadRequest, reservation.PublicMessage(err))
	case errors.Is(err, reservation.ErrNotFound):
		writeError(w, http.StatusNotFound, reservation.PublicMessage(err))
	case reservation.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, reservation.PublicMessage(err))
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled api error")
		writeError(w, http.StatusInternalServerError, reservation.PublicMessage(err))
	}
}
