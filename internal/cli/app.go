package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"randevu/internal/audit"
	"randevu/internal/cache"
	"randevu/internal/config"
	"randevu/internal/db"
	"randevu/internal/events"
	"randevu/internal/gate"
	"randevu/internal/metrics"
	"randevu/internal/profiles"
	"randevu/internal/reservation"
	"randevu/internal/slots"
)

// app is the wired process: storage, engine and the event subscribers.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	logger   zerolog.Logger
	db       *db.DB
	profiles *profiles.Store
	cache    *cache.Cache
	bus      *events.EventBus
	engine   *reservation.Engine
}

func newLogger(cfg *config.Config, levelOverride string, out io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if strings.EqualFold(cfg.Logging.Format, "json") {
		logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger()
	}

	raw := cfg.Logging.Level
	if levelOverride != "" {
		raw = levelOverride
	}
	level := zerolog.InfoLevel
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		} else {
			logger.Warn().Str("level", raw).Msg("unknown log level, using info")
		}
	}
	return logger.Level(level)
}

func newApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath())
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "load config", err)
	}
	logger := newLogger(cfg, opts.LogLevel, logOut)

	loc, err := cfg.Location()
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "load config", err)
	}

	pc, err := config.LoadProfilesConfig(cfg.ProfilesPath)
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "load profiles", err)
	}

	database, err := db.NewDB(cfg.Database.Path, loc)
	if err != nil {
		return nil, wrapExitError(ExitCommandError, "open db", err)
	}

	a := &app{
		cfg:      cfg,
		loc:      loc,
		logger:   logger,
		db:       database,
		profiles: profiles.NewStore(pc.Settings()),
		bus:      events.NewEventBus(&logger),
	}
	if err := a.syncProfiles(ctx, pc); err != nil {
		_ = database.Close()
		return nil, wrapExitError(ExitCommandError, "sync profiles", err)
	}

	g := gate.New(gate.Options{
		Timeout: cfg.LockTimeout(),
		Retries: cfg.Engine.LockRetries,
		OnWait: func(_ string, waited time.Duration, acquired bool) {
			metrics.ObserveGateWait(waited, acquired)
		},
	})

	engineOpts := []reservation.Option{reservation.WithEvents(a.bus)}
	if cfg.ShardLocksByDate() {
		engineOpts = append(engineOpts, reservation.WithKeyFunc(gate.ByDate))
	}

	var mirror events.VersionMirror
	if cfg.Redis.Address != "" {
		a.cache = cache.New(cache.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB), cfg.CacheTTL())
		engineOpts = append(engineOpts, reservation.WithCache(a.cache))
		mirror = a.cache
	}
	a.bus.SubscribeReservations(events.AuditHandler(database), events.VersionHandler(mirror))

	a.engine = reservation.NewEngine(
		database,
		a.profiles,
		slots.NewUniverse(pc.SlotUniverse, pc.Shifts),
		g,
		loc,
		&a.logger,
		engineOpts...,
	)

	if v, err := database.DataVersion(ctx); err == nil {
		metrics.SetDataVersion(v)
		if a.cache != nil {
			if err := a.cache.SetVersion(ctx, v); err != nil {
				logger.Warn().Err(err).Msg("redis version mirror unavailable")
			}
		}
	}

	logger.Info().
		Str("db", cfg.Database.Path).
		Str("timezone", loc.String()).
		Str("lock_scope", cfg.Engine.LockScope).
		Str("profiles", pc.String()).
		Bool("cache", a.cache != nil).
		Msg("engine ready")
	return a, nil
}

// syncProfiles mirrors the active profile set into the database for exports.
func (a *app) syncProfiles(ctx context.Context, pc *config.ProfilesConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.db.SyncProfiles(ctx, pc.Settings())
}

// reloadProfiles swaps the store contents. The slot universe is fixed for the process lifetime.
func (a *app) reloadProfiles(ctx context.Context, pc *config.ProfilesConfig) {
	a.profiles.Replace(pc.Settings())
	if err := a.syncProfiles(ctx, pc); err != nil {
		a.logger.Error().Err(err).Msg("profile sync to db failed")
	}
}

func (a *app) exporter() *audit.Service {
	return audit.NewService(a.cfg.Export, a.db, a.db, a.loc, &a.logger)
}

func (a *app) Close() error {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
