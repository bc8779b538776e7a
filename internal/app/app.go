// Package app wires configuration, clients, storage, and services.
package app

import (
	"fmt"

	"github.com/gbard/histcache/internal/calendar"
	"github.com/gbard/histcache/internal/clients/yahoo"
	"github.com/gbard/histcache/internal/common"
	"github.com/gbard/histcache/internal/services/reconcile"
	"github.com/gbard/histcache/internal/storage/cachefs"
)

// App holds the application's wired components.
type App struct {
	Config     *common.Config
	Logger     *common.Logger
	Store      *cachefs.Store
	Provider   *yahoo.Client
	Calendar   *calendar.Calendar
	Reconciler *reconcile.Service
}

// NewApp loads configuration and wires all components.
func NewApp(configPath string) (*App, error) {
	cfg, err := common.LoadConfig(configPath, "histcache.toml")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	store, err := cachefs.NewStore(logger, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series store: %w", err)
	}

	provider := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.Provider.BaseURL),
		yahoo.WithRateLimit(cfg.Provider.RateLimit),
		yahoo.WithTimeout(cfg.Provider.GetTimeout()),
		yahoo.WithMaxRetries(cfg.Provider.MaxRetries),
		yahoo.WithLogger(logger),
	)

	cal := calendar.New(cfg.Reconcile.CalendarWindowDays)

	svc := reconcile.NewService(
		provider,
		store,
		cal,
		cfg.Reconcile.Tolerance,
		cfg.Reconcile.Concurrency,
		logger,
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Provider:   provider,
		Calendar:   cal,
		Reconciler: svc,
	}, nil
}
