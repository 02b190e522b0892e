package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alejandroruanova/review-refinery/internal/core/services/batch"
	"github.com/alejandroruanova/review-refinery/internal/core/services/deduplication"
	"github.com/alejandroruanova/review-refinery/internal/core/services/refinery"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/cache"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/database"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/database/repositories"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/storage"
	"github.com/alejandroruanova/review-refinery/internal/pkg/config"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// App carries what every command needs
type App struct {
	ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

// refineryConfig turns disabled step names and the configured lexicon
// into refinery custom config
func (a *App) refineryConfig(disabled []string) (map[string]interface{}, error) {
	custom := make(map[string]interface{}, len(disabled)+1)

	known := make(map[string]bool)
	for _, step := range refinery.StepNames() {
		known[step] = true
	}
	for _, step := range disabled {
		if !known[step] {
			return nil, apperrors.InvalidConfig("unknown step: " + step).
				WithDetails("available", refinery.StepNames())
		}
		custom[step] = false
	}

	if path := a.Config.SegmenterLexicon; path != "" {
		seg, err := refinery.LoadDictionarySegmenterFile(path)
		if err != nil {
			return nil, apperrors.InvalidLexicon(err, path)
		}
		a.Logger.Debug("segmenter lexicon loaded",
			slog.String("path", path),
			slog.Int("words", seg.Size()))
		custom["segmenter"] = seg
	}

	return custom, nil
}

func (a *App) pipeline(version string, disabled []string) (*refinery.Pipeline, map[string]interface{}, error) {
	if version == "" {
		version = a.Config.RefineryVersion
	}

	custom, err := a.refineryConfig(disabled)
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := refinery.NewPipeline(version, custom)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, custom, nil
}

// resultCache builds the configured cache; nil means caching is off
func (a *App) resultCache() (batch.ResultCache, func(), error) {
	switch a.Config.CacheBackend {
	case config.CacheBackendMemory:
		c, err := cache.NewMemoryCache(a.Config.CacheSize, time.Duration(a.Config.CacheTTLSeconds)*time.Second)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	case config.CacheBackendRedis:
		c, err := cache.NewRedisCache(a.Config.Cache(), a.Logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// batchService wires the batch service with the configured cache and,
// when enabled, the PostgreSQL ledger and cross-batch deduplication
func (a *App) batchService(version string, disabled []string) (*batch.Service, func(), error) {
	pipeline, custom, err := a.pipeline(version, disabled)
	if err != nil {
		return nil, nil, err
	}

	// cache keys only carry the refinery version
	var resultCache batch.ResultCache
	closeCache := func() {}
	if len(custom) == 0 {
		resultCache, closeCache, err = a.resultCache()
		if err != nil {
			return nil, nil, err
		}
	} else if a.Config.CacheBackend != config.CacheBackendNone {
		a.Logger.Debug("result cache skipped for a customized refinery")
	}
	closers := []func(){closeCache}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := batch.Dependencies{
		Pipeline:       pipeline,
		RefineryConfig: custom,
		Cache:          resultCache,
		Logger:         a.Logger.With(slog.String("service", "batch")),
	}

	if a.Config.DBEnabled {
		db, err := database.NewPostgresDB(a.Config.Database(), a.Logger)
		if err != nil {
			closeAll()
			return nil, nil, apperrors.DatabaseError(err)
		}
		closers = append(closers, func() { _ = db.Close() })

		if err := db.Migrate(); err != nil {
			closeAll()
			return nil, nil, apperrors.DatabaseError(err)
		}

		dedupConfig := deduplication.DefaultConfig()
		dedupConfig.Strategy = deduplication.StrategyUniversal
		dedupConfig.EnableLevel2 = true

		deps.Batches = repositories.NewBatchRepository(db.DB, a.Logger)
		deps.Deduplicator = deduplication.NewService(dedupConfig,
			repositories.NewDedupHashRepository(db.DB, a.Logger), a.Logger)
	}

	service, err := batch.NewService(deps)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return service, closeAll, nil
}

func (a *App) storage() (*storage.LocalStorage, error) {
	return storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: a.Config.StorageDir}, a.Logger)
}
