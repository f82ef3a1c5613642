package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/cli"
	"horse.fit/parley/internal/config"
	"horse.fit/parley/internal/db"
	"horse.fit/parley/internal/logging"
	"horse.fit/parley/internal/translation"
)

// services is the translation stack shared by every command.
type services struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *db.Pool
	files   *translation.FileStore
	store   translation.Store
	cache   *translation.Cache
	service *translation.Service
}

// openServices loads configuration and builds the cache backend and the
// translation service. Logs go to logOut so commands can keep stdout clean.
func openServices(ctx context.Context, envLoader *cli.EnvLoader, logOut io.Writer) (*services, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewWithWriter(cfg.Environment, cfg.LogLevel, logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	svc := &services{cfg: cfg, logger: logger}
	switch cfg.NormalizedCacheBackend() {
	case config.CacheBackendPostgres:
		pool, err := db.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		svc.pool = pool
		svc.store = translation.NewPoolStore(pool)
	case config.CacheBackendFile:
		svc.files = translation.NewFileStore(cfg.CacheFile, logger)
		svc.store = svc.files
	default:
		svc.store = translation.NewMemoryStore()
	}

	svc.cache = translation.NewCache(svc.store, cfg.CacheTTL, logger)
	loaded := svc.cache.Load(ctx)
	logger.Debug().
		Str("backend", cfg.NormalizedCacheBackend()).
		Int("entries", loaded).
		Msg("translation cache loaded")

	svc.service = translation.NewService(translation.Options{
		Registry:     translation.NewRegistryFromConfig(cfg, logger),
		Cache:        svc.cache,
		Limiter:      translation.NewRateLimiter(translation.DefaultIntervals(), translation.DefaultMinInterval),
		IndianChain:  cfg.IndianChain(),
		DefaultChain: cfg.DefaultChain(),
		Timeout:      cfg.TranslationTimeout,
		Logger:       logger,
	})
	return svc, nil
}

func (s *services) Close() {
	if s == nil || s.pool == nil {
		return
	}
	if err := s.pool.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("close database pool")
	}
}
