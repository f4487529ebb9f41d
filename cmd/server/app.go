package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain/srs"
	"github.com/phrazzld/pathwise/internal/engine"
	"github.com/phrazzld/pathwise/internal/events"
	"github.com/phrazzld/pathwise/internal/service"
	"github.com/phrazzld/pathwise/internal/service/auth"
	"github.com/phrazzld/pathwise/internal/store"
)

// application holds the wired dependencies of the server.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	jwtService auth.JWTService
	dispatcher *engine.Dispatcher
	emitter    *events.InMemoryEventEmitter
	closers    []func() error
}

// newApplication builds the services, the dispatcher and the invalidation
// emitter over tx. Extra handlers receive every invalidation event after the
// log handler.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	tx store.Transactor,
	handlers ...events.EventHandler,
) (*application, error) {
	if cfg == nil || tx == nil {
		return nil, errors.New("config and transactor are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := cfg.Engine.Streak.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid streak time zone: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	srsService := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		GrowthFactor:         cfg.Engine.SRS.GrowthFactor,
		FirstIntervalDays:    cfg.Engine.SRS.FirstIntervalDays,
		MaxIntervalDays:      cfg.Engine.SRS.MaxIntervalDays,
		StrugglingExitStreak: cfg.Engine.SRS.StrugglingExitStreak,
	}))

	unlock := service.NewUnlockService(tx, nil, logger)
	hearts := service.NewHeartsService(tx, cfg.Engine.Hearts, logger)
	scheduler := service.NewSchedulerService(tx, srsService, logger)
	xp := service.NewXPService(tx, cfg.Engine.XP, loc, logger)

	services := engine.Services{
		Unlock:    unlock,
		Hearts:    hearts,
		Streak:    service.NewStreakService(tx, loc, logger),
		Scheduler: scheduler,
		XP:        xp,
		Sessions:  service.NewReviewSessionService(tx, scheduler, xp, hearts, cfg.Engine.Sessions, logger),
		Lessons:   service.NewLessonService(tx, unlock, scheduler, hearts, xp, logger),
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))
	for _, h := range handlers {
		emitter.RegisterHandler(h)
	}

	clock := func() time.Time { return time.Now().UTC() }
	dispatcher, err := engine.NewDispatcher(services, emitter, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	return &application{
		config:     cfg,
		logger:     logger,
		jwtService: jwtService,
		dispatcher: dispatcher,
		emitter:    emitter,
	}, nil
}

// cleanup closes resources in reverse order of acquisition.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("cleanup failed", slog.String("error", err.Error()))
		}
	}
	app.closers = nil
}
