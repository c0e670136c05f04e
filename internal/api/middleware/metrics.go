// metrics.go — Prometheus HTTP метрики для media-service.
// Регистрирует метрики: ms_http_requests_total, ms_http_request_duration_seconds.
// Бизнес-метрики (ms_media_files_total, ms_storage_bytes и др.) обновляются
// из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms_http_requests_total",
			Help: "Общее количество HTTP-запросов к media-service",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ms_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к media-service в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// MediaFilesTotal — текущее количество медиафайлов по категориям (gauge).
	MediaFilesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ms_media_files_total",
			Help: "Текущее количество медиафайлов в индексе",
		},
		[]string{"kind"},
	)

	// StorageBytes — суммарный размер файлов по записям индекса (gauge).
	StorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ms_storage_bytes",
			Help: "Суммарный размер медиафайлов в байтах",
		},
	)

	// OperationsTotal — общее количество операций с медиафайлами.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ms_operations_total",
			Help: "Общее количество операций с медиафайлами",
		},
		[]string{"operation", "result"},
	)

	// OrphanedBlobsTotal — файлы, записанные на диск без записи в индексе.
	OrphanedBlobsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ms_orphaned_blobs_total",
			Help: "Количество файлов, оставшихся на диске после ошибки вставки в индекс",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем числовой ID на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// mediaPrefix — префикс endpoints медиафайлов.
const mediaPrefix = "/api/media/"

// normalizePath заменяет числовой сегмент ID на {id} для предотвращения
// взрывного роста кардинальности метрик.
// /api/media/42/download → /api/media/{id}/download
func normalizePath(path string) string {
	if !strings.HasPrefix(path, mediaPrefix) {
		return path
	}

	rest := path[len(mediaPrefix):]
	segment, suffix, _ := strings.Cut(rest, "/")
	if !isNumeric(segment) {
		return path
	}

	switch suffix {
	case "":
		return mediaPrefix + "{id}"
	case "download":
		return mediaPrefix + "{id}/download"
	default:
		return mediaPrefix + "{id}/other"
	}
}

// isNumeric проверяет, что строка непуста и состоит только из цифр.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
