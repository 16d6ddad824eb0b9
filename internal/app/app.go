// Package app provides application-level orchestration and dependency
// injection. It wires the adapters to the playback controller and manages
// startup and shutdown.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/halcyon-player/halcyon/internal/adapter/audio/mock"
	"github.com/halcyon-player/halcyon/internal/adapter/eventbus"
	"github.com/halcyon-player/halcyon/internal/adapter/provider/httpapi"
	"github.com/halcyon-player/halcyon/internal/adapter/repository/sqlite"
	"github.com/halcyon-player/halcyon/internal/cache"
	"github.com/halcyon-player/halcyon/internal/config"
	"github.com/halcyon-player/halcyon/internal/ports"
	"github.com/halcyon-player/halcyon/internal/resolver"
	"github.com/halcyon-player/halcyon/internal/service"
)

// Application holds the wired component graph.
type Application struct {
	logger *slog.Logger

	eventBus ports.EventBus
	engine   ports.AudioEngine
	store    *sqlite.Store

	controller *service.Controller
}

// New creates an application with all dependencies wired from the given
// configuration.
func New(logger *slog.Logger, cfg *config.Config) (*Application, error) {
	bus := eventbus.NewSyncEventBus(logger)

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	contentCache, err := cache.New(cfg.Cache.Dir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	provider := httpapi.NewClient(logger, cfg.Provider.BaseURL, cfg.Provider.RequestsPerSec)
	res := resolver.New(logger, provider, contentCache)

	// The in-memory engine produces no sound; audio output comes from a
	// backend adapter implementing ports.AudioEngine.
	engine := mock.NewEngine()

	controller := service.NewController(logger, engine, bus, store, res, service.Options{
		ProgressInterval: time.Duration(cfg.Playback.ProgressIntervalMS) * time.Millisecond,
		RestorePosition:  cfg.Playback.RestorePosition,
	})

	logger.Info("application wired",
		slog.String("db", cfg.Database.Path),
		slog.String("cache", cfg.Cache.Dir),
		slog.String("provider", cfg.Provider.BaseURL))

	return &Application{
		logger:     logger,
		eventBus:   bus,
		engine:     engine,
		store:      store,
		controller: controller,
	}, nil
}

// Controller exposes the playback controller.
func (a *Application) Controller() *service.Controller {
	return a.controller
}

// EventBus exposes the event bus for frontends to subscribe on.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Resume restores the persisted queue and starts playback at the saved
// position when one exists.
func (a *Application) Resume() error {
	index, err := a.controller.RestoreSession()
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if index < 0 {
		a.logger.Info("no previous session to restore")
		return nil
	}
	return a.controller.PlayAt(index)
}

// Shutdown stops playback and releases every resource in reverse wiring
// order.
func (a *Application) Shutdown() error {
	var firstErr error

	if err := a.controller.Shutdown(); err != nil {
		firstErr = err
		a.logger.Error("controller shutdown failed", slog.Any("error", err))
	}
	if err := a.store.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		a.logger.Error("store close failed", slog.Any("error", err))
	}
	if err := a.eventBus.Close(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		a.logger.Error("event bus close failed", slog.Any("error", err))
	}

	a.logger.Info("application shut down")
	return firstErr
}
