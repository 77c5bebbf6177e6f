// Package backend выбирает реализацию хранилищ по STORAGE_BACKEND.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"example.com/budpal/backend/internal/config"
	"example.com/budpal/backend/internal/database"
	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/memstore"
	"example.com/budpal/backend/internal/mongostore"
	"example.com/budpal/backend/internal/repository"
)

// Open подключает хранилище, выбранное в конфигурации.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (docstore.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage {
	case config.StoragePostgres:
		return openPostgres(ctx, cfg.Database, logger)
	case config.StorageMongo:
		return openMongo(ctx, cfg.Mongo, logger)
	case config.StorageMemory:
		logger.Info("initialized memory storage")
		return memstore.NewBackend(), nil
	default:
		return docstore.Backend{}, fmt.Errorf("unsupported storage backend: %s", cfg.Storage)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (docstore.Backend, error) {
	pool, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return docstore.Backend{}, err
	}

	if cfg.AutoMigrate {
		if err := repository.RunMigrations(pool); err != nil {
			pool.Close()
			return docstore.Backend{}, err
		}
		logger.Info("database migrations applied")
	}

	logger.Info("initialized postgres storage",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
	)
	return repository.NewBackend(pool), nil
}

func openMongo(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (docstore.Backend, error) {
	client, err := database.OpenMongo(ctx, cfg)
	if err != nil {
		return docstore.Backend{}, err
	}

	if err := mongostore.EnsureIndexes(ctx, client.Database(cfg.Database)); err != nil {
		_ = client.Disconnect(ctx)
		return docstore.Backend{}, err
	}

	logger.Info("initialized mongo storage", slog.String("database", cfg.Database))
	return mongostore.NewBackend(client, cfg.Database), nil
}
