// Точка входа media-service — сервиса загрузки и выдачи медиафайлов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/goartstore/media-service/internal/api/handlers"
	"github.com/bigkaa/goartstore/media-service/internal/config"
	"github.com/bigkaa/goartstore/media-service/internal/database"
	"github.com/bigkaa/goartstore/media-service/internal/server"
	"github.com/bigkaa/goartstore/media-service/internal/service"
	"github.com/bigkaa/goartstore/media-service/internal/storage/filestore"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("media-service запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("upload_dir", cfg.UploadDir),
		slog.String("index_driver", cfg.IndexDriver),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	store, err := filestore.New(cfg.UploadDir)
	if err != nil {
		logger.Error("Ошибка инициализации FileStore", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := store.EnsureLayout(); err != nil {
		logger.Error("Ошибка создания директорий хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Индекс метаданных
	backend, err := openIndex(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации индекса", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.close()

	idx := index.NewCached(backend.idx, cfg.CacheSize, cfg.CacheTTL)
	if cfg.CacheSize > 0 {
		logger.Info("Кэш метаданных включён",
			slog.Int("size", cfg.CacheSize),
			slog.String("ttl", cfg.CacheTTL.String()),
		)
	}

	// 3. Сервисы
	mediaSvc := service.NewMediaService(store, idx, logger)
	if err := mediaSvc.RefreshMetrics(ctx); err != nil {
		logger.Warn("Не удалось обновить метрики хранилища", slog.String("error", err.Error()))
	}

	// 4. Фоновые процессы

	// 4.1 Reconciliation — фоновая сверка диска и индекса
	reconcileSvc := service.NewReconcileService(store, idx, service.ReconcileOptions{
		Interval:      cfg.ReconcileInterval,
		RemoveOrphans: cfg.ReconcileRemoveOrphans,
		Grace:         cfg.ReconcileGrace,
	}, logger)
	reconcileSvc.Start(ctx)

	// 4.2 topologymetrics — мониторинг PostgreSQL (только драйвер postgres)
	var dephealthSvc *service.DephealthService
	if backend.pgDB != nil {
		dephealthSvc = startDephealth(ctx, cfg, backend, logger)
	}

	// 5. Handlers
	readiness := database.NewReadinessChecker("Индекс "+cfg.IndexDriver, func(ctx context.Context) error {
		return index.Ping(ctx, idx)
	})
	apiHandler := handlers.NewAPIHandler(
		handlers.NewMediaHandler(mediaSvc, cfg.MaxFileSize, cfg.PublicBaseURL, logger),
		handlers.NewSystemHandler(cfg, mediaSvc, diskUsageFn(cfg.UploadDir), logger),
		handlers.NewMaintenanceHandler(reconcileSvc, logger),
		handlers.NewHealthHandler(cfg.UploadDir, readiness),
		server.NewMetricsHandler(),
	)

	// 6. Создание и запуск HTTP-сервера
	srv, err := server.New(cfg, logger, apiHandler)
	if err != nil {
		logger.Error("Ошибка создания HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")
	reconcileSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("media-service остановлен")
}

// startDephealth запускает мониторинг PostgreSQL.
// Ошибки не фатальны: сервис работает без мониторинга зависимостей.
func startDephealth(ctx context.Context, cfg *config.Config, backend *indexBackend, logger *slog.Logger) *service.DephealthService {
	dephealthSvc, err := service.NewDephealthService(
		"media-service",
		cfg.DephealthGroup,
		backend.pgDB,
		cfg.DatabaseURL("postgres"),
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("topologymetrics запущен",
		slog.String("check_interval", cfg.DephealthCheckInterval.String()),
	)
	return dephealthSvc
}

// diskUsageFn возвращает функцию для получения информации об ёмкости диска.
func diskUsageFn(dir string) handlers.DiskUsageFunc {
	return func() (int64, int64, int64, error) {
		return getDiskUsage(dir)
	}
}
