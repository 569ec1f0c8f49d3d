package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"randevu/internal/gate"
	"randevu/internal/metrics"
	"randevu/internal/model"
	"randevu/internal/slots"
	"randevu/internal/validation"
)

// Store is the authoritative reservation storage. Writes bump the data version in the
// same transaction and return the new value.
type Store interface {
	slots.OccupancyReader
	Get(ctx context.Context, id string) (*model.Reservation, error)
	Create(ctx context.Context, r *model.Reservation) (int64, error)
	Update(ctx context.Context, r *model.Reservation) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	DataVersion(ctx context.Context) (int64, error)
}

type ProfileSource interface {
	Get(code model.ProfileCode) model.ProfileSettings
	GetAll() map[model.ProfileCode]model.ProfileSettings
}

// AvailabilityCache is an optional read-through cache keyed by data version and profile settings.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, version int64, date string, profile model.ProfileSettings, typ model.AppointmentType) (model.DayAvailability, bool)
	SetAvailability(ctx context.Context, profile model.ProfileSettings, typ model.AppointmentType, a model.DayAvailability) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Engine answers availability queries and performs validated writes. Every write runs
// its validation and persist step while holding the gate for the candidate date.
type Engine struct {
	store     Store
	profiles  ProfileSource
	universe  *slots.Universe
	validator *validation.Validator
	calc      *slots.Calculator
	gate      *gate.Gate
	key       gate.KeyFunc
	cache     AvailabilityCache
	events    EventPublisher
	loc       *time.Location
	logger    *zerolog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Engine)

// WithKeyFunc selects the gate key per date. The default serializes every writer.
func WithKeyFunc(k gate.KeyFunc) Option {
	return func(e *Engine) { e.key = k }
}

func WithCache(c AvailabilityCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(
	store Store,
	profiles ProfileSource,
	universe *slots.Universe,
	g *gate.Gate,
	loc *time.Location,
	logger *zerolog.Logger,
	opts ...Option,
) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	e := &Engine{
		store:     store,
		profiles:  profiles,
		universe:  universe,
		validator: validation.New(universe, store, loc),
		calc:      slots.NewCalculator(universe, store, loc),
		gate:      g,
		key:       gate.Global,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Universe returns the configured slot universe.
func (e *Engine) Universe() *slots.Universe {
	return e.universe
}

func (e *Engine) Profiles() map[model.ProfileCode]model.ProfileSettings {
	return e.profiles.GetAll()
}

// SlotsForShift returns the hours of a named shift, empty for unknown shifts.
func (e *Engine) SlotsForShift(shift string) []int {
	return e.universe.SlotsForShift(shift)
}

// ComputeDayAvailability returns the advisory view of a day for a profile and optional type.
// Storage failures produce a degraded view with every slot occupied rather than an error.
func (e *Engine) ComputeDayAvailability(ctx context.Context, date, profile, typ string) (model.DayAvailability, error) {
	day, err := e.parseDate(date)
	if err != nil {
		return model.DayAvailability{}, err
	}
	t, err := parseOptionalType(typ)
	if err != nil {
		return model.DayAvailability{}, err
	}
	code := model.NormalizeProfileCode(profile)
	settings := e.profiles.Get(code)
	dateStr := day.Format(model.DateLayout)

	version, verr := e.store.DataVersion(ctx)
	if verr == nil && e.cache != nil {
		if cached, ok := e.cache.GetAvailability(ctx, version, dateStr, settings, t); ok {
			metrics.IncAvailability("cache")
			return cached, nil
		}
	}

	out, err := e.calc.Compute(ctx, day, settings, t)
	if err != nil {
		metrics.IncAvailability("degraded")
		metrics.IncStoreError("list")
		e.logger.Error().Err(err).Str("date", dateStr).Str("profile", string(code)).Msg("availability degraded")
		return out, nil
	}
	metrics.IncAvailability("store")

	if verr != nil {
		// Data is fine but cannot be stamped, so it is not cached either.
		metrics.IncStoreError("version")
		e.logger.Warn().Err(verr).Str("date", dateStr).Msg("data version unavailable")
		return out, nil
	}
	out.DataVersion = version

	if e.cache != nil {
		if err := e.cache.SetAvailability(ctx, settings, t, out); err != nil {
			e.logger.Debug().Err(err).Str("date", dateStr).Msg("availability cache write failed")
		}
	}
	return out, nil
}

// DataVersion returns the current change token.
func (e *Engine) DataVersion(ctx context.Context) (int64, error) {
	v, err := e.store.DataVersion(ctx)
	if err != nil {
		return 0, e.unavailable("version", err)
	}
	return v, nil
}

// Get returns one reservation.
func (e *Engine) Get(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, badRequest("reservation id is required")
	}
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, e.storeError("get", id, err)
	}
	return r, nil
}

// List returns active reservations starting on date, ordered by start time.
func (e *Engine) List(ctx context.Context, date string) ([]model.Reservation, error) {
	day, err := e.parseDate(date)
	if err != nil {
		return nil, err
	}
	list, err := e.store.ListForDate(ctx, day)
	if err != nil {
		return nil, e.unavailable("list", err)
	}

	dateStr := day.Format(model.DateLayout)
	out := make([]model.Reservation, 0, len(list))
	for _, r := range list {
		if r.StartTime.In(e.loc).Format(model.DateLayout) == dateStr {
			out = append(out, r)
		}
	}
	return out, nil
}

func (e *Engine) unavailable(op string, err error) error {
	metrics.IncStoreError(op)
	e.logger.Error().Err(err).Str("op", op).Msg("reservation store failure")
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// storeError maps a store error for a single reservation id.
func (e *Engine) storeError(op, id string, err error) error {
	if errors.Is(err, model.ErrReservationNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.unavailable(op, err)
}

// busy classifies gate failures. Other errors pass through unchanged.
func (e *Engine) busy(date string, err error) error {
	if errors.Is(err, gate.ErrTimeout) {
		e.logger.Warn().Err(err).Str("date", date).Msg("write gate timeout")
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	return err
}
