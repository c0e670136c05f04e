// maintenance.go — обработчик POST /api/system/reconcile.
// Делегирует сверку в ReconcileService.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/media-service/internal/api/errors"
	"github.com/bigkaa/goartstore/media-service/internal/service"
)

// ReconcileRunner — интерфейс для запуска reconciliation.
// Позволяет тестировать handler без полного ReconcileService.
type ReconcileRunner interface {
	// RunOnce выполняет один цикл reconciliation.
	// Если сверка уже идёт, возвращает service.ErrReconcileInProgress.
	RunOnce(ctx context.Context) (*service.ReconcileReport, error)
}

// MaintenanceHandler — обработчик endpoints обслуживания.
type MaintenanceHandler struct {
	reconciler ReconcileRunner
	logger     *slog.Logger
}

// NewMaintenanceHandler создаёт обработчик maintenance endpoints.
func NewMaintenanceHandler(reconciler ReconcileRunner, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		reconciler: reconciler,
		logger:     logger.With(slog.String("component", "maintenance_handler")),
	}
}

// Reconcile обрабатывает POST /api/system/reconcile.
// Запускает синхронный цикл reconciliation и возвращает отчёт.
// Если reconciliation уже выполняется — 409 RECONCILE_IN_PROGRESS.
func (h *MaintenanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrReconcileInProgress) {
			apierrors.ReconcileInProgress(w, "Reconciliation уже выполняется")
			return
		}
		h.logger.Error("Ошибка reconciliation", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка выполнения reconciliation")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
