// index.go — выбор и открытие хранилища индекса по MS_INDEX_DRIVER.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/media-service/internal/config"
	"github.com/bigkaa/goartstore/media-service/internal/database"
	"github.com/bigkaa/goartstore/media-service/internal/repository"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

// indexBackend — открытое хранилище индекса и его ресурсы.
type indexBackend struct {
	idx index.Index
	// pgDB — адаптер пула для topologymetrics (только postgres)
	pgDB *sql.DB
	// closers вызываются в обратном порядке при остановке
	closers []func()
}

// close освобождает ресурсы хранилища.
func (b *indexBackend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openIndex открывает индекс выбранного драйвера и применяет миграции.
func openIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*indexBackend, error) {
	switch cfg.IndexDriver {
	case config.IndexDriverMemory:
		logger.Warn("Индекс в памяти: метаданные будут потеряны при перезапуске")
		return &indexBackend{idx: index.NewMemory(logger)}, nil

	case config.IndexDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(db, logger); err != nil {
			db.Close()
			return nil, err
		}
		return &indexBackend{
			idx:     repository.NewSQLiteIndex(db),
			closers: []func(){func() { db.Close() }},
		}, nil

	case config.IndexDriverPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, err
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}

		// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode):
		// проверка идёт через существующий пул соединений
		pgDB := stdlib.OpenDBFromPool(pool)

		return &indexBackend{
			idx:  repository.NewPostgresIndex(pool),
			pgDB: pgDB,
			closers: []func(){
				pool.Close,
				func() { pgDB.Close() },
			},
		}, nil

	default:
		return nil, fmt.Errorf("неизвестный драйвер индекса %q", cfg.IndexDriver)
	}
}
