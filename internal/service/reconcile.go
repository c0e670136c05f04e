// reconcile.go — сервис фоновой сверки (Reconciliation) хранилища.
//
// Reconciliation сравнивает файлы в {root}/images и {root}/videos
// с записями индекса метаданных и обнаруживает проблемы:
//   - orphaned_file: файл на диске без записи в индексе
//     (например, после ошибки вставки при загрузке)
//   - missing_file: запись в индексе, но файла нет
//
// Осиротевшие файлы старше grace period могут удаляться
// (MS_RECONCILE_REMOVE_ORPHANS). Записи с отсутствующими файлами
// только сообщаются: удаление метаданных требует решения оператора.
//
// Запускается как горутина с периодическим тикером (MS_RECONCILE_INTERVAL)
// и вручную через POST /api/system/reconcile.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/media-service/internal/storage/filestore"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

// Prometheus метрики Reconciliation
var (
	// reconcileRunsTotal — количество запусков reconciliation.
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_reconcile_runs_total",
		Help: "Общее количество запусков reconciliation",
	})

	// reconcileIssuesTotal — количество обнаруженных проблем по типу.
	reconcileIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ms_reconcile_issues_total",
		Help: "Общее количество проблем, обнаруженных reconciliation",
	}, []string{"type"})

	// reconcileRemovedTotal — количество удалённых осиротевших файлов.
	reconcileRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_reconcile_removed_files_total",
		Help: "Общее количество осиротевших файлов, удалённых reconciliation",
	})

	// reconcileDurationSeconds — длительность выполнения reconciliation.
	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ms_reconcile_duration_seconds",
		Help:    "Длительность выполнения reconciliation в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})
)

// IssueType — тип проблемы, обнаруженной сверкой.
type IssueType string

const (
	// IssueOrphanedFile — файл на диске без записи в индексе.
	IssueOrphanedFile IssueType = "orphaned_file"
	// IssueMissingFile — запись в индексе без файла на диске.
	IssueMissingFile IssueType = "missing_file"
)

// ReconcileIssue — обнаруженная проблема.
type ReconcileIssue struct {
	Type        IssueType `json:"type"`
	MediaID     *int64    `json:"mediaId,omitempty"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
	// Removed — осиротевший файл удалён в ходе сверки
	Removed bool `json:"removed"`
}

// ReconcileSummary — сводка по результатам сверки.
type ReconcileSummary struct {
	Ok            int `json:"ok"`
	OrphanedFiles int `json:"orphanedFiles"`
	MissingFiles  int `json:"missingFiles"`
	RemovedFiles  int `json:"removedFiles"`
}

// ReconcileReport — результат одного цикла сверки.
type ReconcileReport struct {
	StartedAt    time.Time        `json:"startedAt"`
	CompletedAt  time.Time        `json:"completedAt"`
	FilesChecked int              `json:"filesChecked"`
	Issues       []ReconcileIssue `json:"issues"`
	Summary      ReconcileSummary `json:"summary"`
}

// BlobScanner — операции с диском, нужные сверке.
// Реализуется *filestore.FileStore.
type BlobScanner interface {
	ListBlobs() ([]filestore.BlobInfo, error)
	Exists(path string) bool
	Delete(path string) error
}

// ReconcileOptions — параметры сверки.
type ReconcileOptions struct {
	// Interval — период фоновой сверки
	Interval time.Duration
	// RemoveOrphans — удалять осиротевшие файлы
	RemoveOrphans bool
	// Grace — минимальный возраст осиротевшего файла перед удалением.
	// Защищает файлы загрузок, которые ещё не успели попасть в индекс.
	Grace time.Duration
}

// ReconcileService — сервис фоновой сверки хранилища.
type ReconcileService struct {
	store  BlobScanner
	idx    index.Index
	opts   ReconcileOptions
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool       // reconciliation в процессе выполнения
	last      *ReconcileReport
	cancel    context.CancelFunc
}

// NewReconcileService создаёт сервис reconciliation.
func NewReconcileService(
	store BlobScanner,
	idx index.Index,
	opts ReconcileOptions,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		store:  store,
		idx:    idx,
		opts:   opts,
		now:    time.Now,
		logger: logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину reconciliation с периодическим тикером.
// При нулевом интервале фоновая сверка не запускается.
func (rs *ReconcileService) Start(ctx context.Context) {
	if rs.opts.Interval <= 0 {
		rs.logger.Info("Фоновая reconciliation отключена")
		return
	}

	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(rsCtx)

	rs.logger.Info("Reconciliation запущена",
		slog.String("interval", rs.opts.Interval.String()),
		slog.Bool("remove_orphans", rs.opts.RemoveOrphans),
	)
}

// Stop останавливает фоновой процесс reconciliation.
func (rs *ReconcileService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
		rs.logger.Info("Reconciliation остановлена")
	}
}

// IsInProgress возвращает true, если reconciliation выполняется.
func (rs *ReconcileService) IsInProgress() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.inProcess
}

// LastReport возвращает результат последней завершённой сверки или nil.
func (rs *ReconcileService) LastReport() *ReconcileReport {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.last
}

// run — основной цикл фоновой горутины.
func (rs *ReconcileService) run(ctx context.Context) {
	ticker := time.NewTicker(rs.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := rs.RunOnce(ctx); err != nil {
				rs.logger.Warn("Reconciliation не выполнена", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce выполняет один цикл reconciliation.
// Если сверка уже выполняется, возвращает ErrReconcileInProgress.
func (rs *ReconcileService) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	rs.mu.Lock()
	if rs.inProcess {
		rs.mu.Unlock()
		return nil, ErrReconcileInProgress
	}
	rs.inProcess = true
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.inProcess = false
		rs.mu.Unlock()
	}()

	startedAt := rs.now().UTC()
	rs.logger.Info("Reconciliation начата")

	report, err := rs.reconcile(ctx)
	if err != nil {
		rs.logger.Error("Ошибка reconciliation", slog.String("error", err.Error()))
		return nil, err
	}

	report.StartedAt = startedAt
	report.CompletedAt = rs.now().UTC()
	duration := report.CompletedAt.Sub(startedAt)

	reconcileRunsTotal.Inc()
	reconcileDurationSeconds.Observe(duration.Seconds())
	for _, issue := range report.Issues {
		reconcileIssuesTotal.WithLabelValues(string(issue.Type)).Inc()
	}
	reconcileRemovedTotal.Add(float64(report.Summary.RemovedFiles))

	rs.logger.Info("Reconciliation завершена",
		slog.Int("files_checked", report.FilesChecked),
		slog.Int("issues", len(report.Issues)),
		slog.Int("ok", report.Summary.Ok),
		slog.Int("removed", report.Summary.RemovedFiles),
		slog.Duration("duration", duration),
	)

	rs.mu.Lock()
	rs.last = report
	rs.mu.Unlock()

	return report, nil
}

// reconcile сверяет содержимое диска с индексом.
func (rs *ReconcileService) reconcile(ctx context.Context) (*ReconcileReport, error) {
	records, err := rs.idx.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения индекса: %w", ErrIO, err)
	}
	blobs, err := rs.store.ListBlobs()
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка сканирования хранилища: %w", ErrIO, err)
	}

	report := &ReconcileReport{Issues: []ReconcileIssue{}}

	indexed := make(map[string]bool, len(records))
	for _, rec := range records {
		indexed[filepath.Clean(rec.StoragePath)] = true
	}
	onDisk := make(map[string]bool, len(blobs))
	for _, b := range blobs {
		onDisk[filepath.Clean(b.Path)] = true
	}

	// 1. Запись без файла (missing_file). Путь вне раскладки
	// проверяется напрямую: записи хранят абсолютный путь.
	for _, rec := range records {
		path := filepath.Clean(rec.StoragePath)
		if onDisk[path] || rs.store.Exists(path) {
			report.Summary.Ok++
			continue
		}
		id := rec.ID
		report.Issues = append(report.Issues, ReconcileIssue{
			Type:        IssueMissingFile,
			MediaID:     &id,
			Path:        rec.StoragePath,
			Description: "Запись в индексе без файла на диске",
		})
		report.Summary.MissingFiles++
	}
	report.FilesChecked = len(records)

	// 2. Файл без записи (orphaned_file)
	var orphans []filestore.BlobInfo
	for _, b := range blobs {
		if !indexed[filepath.Clean(b.Path)] {
			orphans = append(orphans, b)
		}
	}
	if len(orphans) == 0 {
		return report, nil
	}

	removable, err := rs.removableOrphans(ctx, orphans)
	if err != nil {
		return nil, err
	}

	for _, b := range orphans {
		issue := ReconcileIssue{
			Type:        IssueOrphanedFile,
			Path:        b.Path,
			Description: "Файл на диске без записи в индексе",
		}
		report.Summary.OrphanedFiles++

		if removable[b.Path] {
			if delErr := rs.store.Delete(b.Path); delErr != nil {
				rs.logger.Warn("Ошибка удаления осиротевшего файла",
					slog.String("path", b.Path),
					slog.String("error", delErr.Error()),
				)
			} else {
				issue.Removed = true
				report.Summary.RemovedFiles++
				rs.logger.Info("Осиротевший файл удалён",
					slog.String("path", b.Path),
					slog.Int64("size", b.Size),
				)
			}
		}

		report.Issues = append(report.Issues, issue)
	}

	return report, nil
}

// removableOrphans отбирает осиротевшие файлы старше grace period.
// Индекс перечитывается: файл могла успеть зарегистрировать
// параллельная загрузка.
func (rs *ReconcileService) removableOrphans(ctx context.Context, orphans []filestore.BlobInfo) (map[string]bool, error) {
	result := make(map[string]bool)
	if !rs.opts.RemoveOrphans {
		return result, nil
	}

	cutoff := rs.now().Add(-rs.opts.Grace)
	for _, b := range orphans {
		if !b.ModTime.After(cutoff) {
			result[b.Path] = true
		}
	}
	if len(result) == 0 {
		return result, nil
	}

	records, err := rs.idx.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения индекса: %w", ErrIO, err)
	}
	for _, rec := range records {
		delete(result, filepath.Clean(rec.StoragePath))
	}
	return result, nil
}
