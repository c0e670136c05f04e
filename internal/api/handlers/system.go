// system.go — обработчик GET /api/system/info (информация о сервисе).
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/media-service/internal/api/errors"
	"github.com/bigkaa/goartstore/media-service/internal/config"
	"github.com/bigkaa/goartstore/media-service/internal/service"
)

// StatsProvider — источник агрегатов по индексу.
// Реализуется *service.MediaService.
type StatsProvider interface {
	Stats(ctx context.Context) (service.Stats, error)
}

// DiskUsageFunc возвращает total, used, available в байтах для корня хранилища.
type DiskUsageFunc func() (total, used, available int64, err error)

// DiskInfo — ёмкость диска под корнем хранилища.
type DiskInfo struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Available int64 `json:"available"`
}

// SystemInfo — ответ GET /api/system/info.
type SystemInfo struct {
	Version     string    `json:"version"`
	IndexDriver string    `json:"indexDriver"`
	UploadDir   string    `json:"uploadDir"`
	MaxFileSize int64     `json:"maxFileSize"`
	Images      int       `json:"images"`
	Videos      int       `json:"videos"`
	TotalBytes  int64     `json:"totalBytes"`
	Disk        *DiskInfo `json:"disk,omitempty"`
}

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg       *config.Config
	stats     StatsProvider
	diskUsage DiskUsageFunc
	logger    *slog.Logger
}

// NewSystemHandler создаёт обработчик системных endpoints.
// diskUsage может быть nil: блок disk в ответе опускается.
func NewSystemHandler(cfg *config.Config, stats StatsProvider, diskUsage DiskUsageFunc, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		cfg:       cfg,
		stats:     stats,
		diskUsage: diskUsage,
		logger:    logger.With(slog.String("component", "system_handler")),
	}
}

// GetSystemInfo обрабатывает GET /api/system/info.
func (h *SystemHandler) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Не удалось получить статистику индекса")
		return
	}

	info := SystemInfo{
		Version:     config.Version,
		IndexDriver: h.cfg.IndexDriver,
		UploadDir:   h.cfg.UploadDir,
		MaxFileSize: h.cfg.MaxFileSize,
		Images:      st.Images,
		Videos:      st.Videos,
		TotalBytes:  st.TotalBytes,
	}

	if h.diskUsage != nil {
		total, used, available, err := h.diskUsage()
		if err != nil {
			h.logger.Warn("Ошибка получения ёмкости диска", slog.String("error", err.Error()))
		} else {
			info.Disk = &DiskInfo{Total: total, Used: used, Available: available}
		}
	}

	writeJSON(w, http.StatusOK, info)
}
