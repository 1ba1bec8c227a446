// Package app wires the pieces both binaries share: engines, the result
// cache and the services on top of them.
package app

import (
	"context"
	"log/slog"
	"time"

	"nodule-lens/api/internal/analysis"
	"nodule-lens/api/internal/analysis/gemini"
	"nodule-lens/api/internal/analysis/openai"
	"nodule-lens/api/internal/config"
	"nodule-lens/api/internal/risk"
	"nodule-lens/api/internal/store"
)

type purger interface {
	PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

type App struct {
	Cfg       *config.Config
	Log       *slog.Logger
	Engines   *analysis.Engines
	Service   *analysis.Service
	Presenter *risk.Presenter

	// Ping is nil without a database.
	Ping  func(ctx context.Context) error
	close func() error
	purge purger
}

// NewEngines only includes providers whose key is set.
func NewEngines(cfg *config.Config) *analysis.Engines {
	e := &analysis.Engines{Default: cfg.DefaultEngine}
	if cfg.GeminiAPIKey != "" {
		e.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		e.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	return e
}

// New opens the Postgres cache when DATABASE_URL is set and falls back to
// memory otherwise.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Cfg:       cfg,
		Log:       logger,
		Engines:   NewEngines(cfg),
		Presenter: risk.NewPresenter(cfg.Development(), logger),
		close:     func() error { return nil },
	}

	var cache analysis.Cache
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := store.NewAnalysisRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("db connected", "dsn", store.SafeDSNSummary(cfg.DatabaseURL))
		cache, a.purge = repo, repo
		a.Ping = db.PingContext
		a.close = db.Close
	} else {
		mem := store.NewMemoryRepo()
		logger.Info("DATABASE_URL not set, caching results in memory")
		cache, a.purge = mem, mem
	}
	a.Service = analysis.NewService(a.Engines, cache, cfg.CacheMaxAge, logger)
	return a, nil
}

// PurgeLoop drops cache rows past their max age once an hour until ctx ends.
func (a *App) PurgeLoop(ctx context.Context) {
	if a.Cfg.CacheMaxAge <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.purge.PurgeOlderThan(ctx, a.Cfg.CacheMaxAge)
			if err != nil {
				a.Log.Warn("cache purge failed", "err", err)
				continue
			}
			if n > 0 {
				a.Log.Info("cache purged", "rows", n)
			}
		}
	}
}

func (a *App) Close() error { return a.close() }
