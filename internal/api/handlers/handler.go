// handler.go — APIHandler реализует routes.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goartstore/media-service/internal/api/routes"
	"github.com/bigkaa/goartstore/media-service/internal/server"
)

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	media       *MediaHandler
	system      *SystemHandler
	maintenance *MaintenanceHandler
	health      *HealthHandler
	metrics     *server.MetricsHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	media *MediaHandler,
	system *SystemHandler,
	maintenance *MaintenanceHandler,
	health *HealthHandler,
	metrics *server.MetricsHandler,
) *APIHandler {
	return &APIHandler{
		media:       media,
		system:      system,
		maintenance: maintenance,
		health:      health,
		metrics:     metrics,
	}
}

// --- Media ---

func (h *APIHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.media.UploadImage(w, r)
}

func (h *APIHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	h.media.UploadVideo(w, r)
}

func (h *APIHandler) ListMedia(w http.ResponseWriter, r *http.Request, params routes.ListMediaParams) {
	h.media.ListMedia(w, r, params)
}

func (h *APIHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	h.media.ListImages(w, r)
}

func (h *APIHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	h.media.ListVideos(w, r)
}

func (h *APIHandler) GetMedia(w http.ResponseWriter, r *http.Request, id int64) {
	h.media.GetMedia(w, r, id)
}

func (h *APIHandler) DeleteMedia(w http.ResponseWriter, r *http.Request, id int64) {
	h.media.DeleteMedia(w, r, id)
}

func (h *APIHandler) DownloadMedia(w http.ResponseWriter, r *http.Request, id int64) {
	h.media.DownloadMedia(w, r, id)
}

// --- System ---

func (h *APIHandler) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	h.system.GetSystemInfo(w, r)
}

func (h *APIHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	h.maintenance.Reconcile(w, r)
}

// --- Health ---

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// --- Metrics ---

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.GetMetrics(w, r)
}

// Проверка на этапе компиляции
var _ routes.ServerInterface = (*APIHandler)(nil)
