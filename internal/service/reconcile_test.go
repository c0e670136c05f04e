package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/storage/filestore"
)

// writeOrphan создаёт файл в поддиректории без записи в индексе.
func writeOrphan(t *testing.T, root, sub, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(root, sub, name)
	if err := os.WriteFile(path, []byte("orphan"), 0o640); err != nil {
		t.Fatalf("Ошибка создания файла: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("Ошибка установки времени файла: %v", err)
	}
	return path
}

func TestReconcileRunOnce_NoIssues(t *testing.T) {
	env := setupMediaTestEnv(t)
	env.storeString(t, "a.png", model.KindImage, "img")
	env.storeString(t, "b.mp4", model.KindVideo, "vid")

	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{}, testLogger())
	report, err := rs.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Ошибка RunOnce: %v", err)
	}

	if len(report.Issues) != 0 {
		t.Errorf("Найдено %d проблем, ожидалось 0: %+v", len(report.Issues), report.Issues)
	}
	if report.Summary.Ok != 2 {
		t.Errorf("Ok: хотели 2, получили %d", report.Summary.Ok)
	}
	if report.FilesChecked != 2 {
		t.Errorf("FilesChecked: хотели 2, получили %d", report.FilesChecked)
	}
	if rs.LastReport() != report {
		t.Error("LastReport должен возвращать результат последней сверки")
	}
}

func TestReconcileRunOnce_MissingFile(t *testing.T) {
	env := setupMediaTestEnv(t)
	rec := env.storeString(t, "a.png", model.KindImage, "img")
	if err := os.Remove(rec.StoragePath); err != nil {
		t.Fatal(err)
	}

	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{}, testLogger())
	report, err := rs.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Ошибка RunOnce: %v", err)
	}

	if report.Summary.MissingFiles != 1 {
		t.Fatalf("MissingFiles: хотели 1, получили %d", report.Summary.MissingFiles)
	}
	issue := report.Issues[0]
	if issue.Type != IssueMissingFile || issue.MediaID == nil || *issue.MediaID != rec.ID {
		t.Errorf("неверная проблема: %+v", issue)
	}

	// Запись не удаляется сверкой
	if _, err := env.svc.FetchMetadata(context.Background(), rec.ID); err != nil {
		t.Errorf("запись должна сохраниться: %v", err)
	}
}

func TestReconcileRunOnce_OrphanReportOnly(t *testing.T) {
	env := setupMediaTestEnv(t)
	old := time.Now().Add(-time.Hour)
	path := writeOrphan(t, env.root, filestore.ImagesDir, "orphan.png", old)

	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{Grace: time.Minute}, testLogger())
	report, err := rs.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Ошибка RunOnce: %v", err)
	}

	if report.Summary.OrphanedFiles != 1 || report.Summary.RemovedFiles != 0 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("без RemoveOrphans файл не должен удаляться")
	}
}

func TestReconcileRunOnce_RemoveOrphans(t *testing.T) {
	env := setupMediaTestEnv(t)
	oldPath := writeOrphan(t, env.root, filestore.VideosDir, "old.mp4", time.Now().Add(-time.Hour))
	freshPath := writeOrphan(t, env.root, filestore.ImagesDir, "fresh.png", time.Now())
	kept := env.storeString(t, "kept.png", model.KindImage, "img")

	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{
		RemoveOrphans: true,
		Grace:         15 * time.Minute,
	}, testLogger())
	report, err := rs.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Ошибка RunOnce: %v", err)
	}

	if report.Summary.OrphanedFiles != 2 {
		t.Errorf("OrphanedFiles: хотели 2, получили %d", report.Summary.OrphanedFiles)
	}
	if report.Summary.RemovedFiles != 1 {
		t.Errorf("RemovedFiles: хотели 1, получили %d", report.Summary.RemovedFiles)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("старый осиротевший файл должен быть удалён")
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Error("файл моложе grace period не должен удаляться")
	}
	if _, err := os.Stat(kept.StoragePath); err != nil {
		t.Error("файл с записью в индексе не должен удаляться")
	}
}

func TestReconcileRunOnce_InProgress(t *testing.T) {
	env := setupMediaTestEnv(t)
	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{}, testLogger())

	rs.mu.Lock()
	rs.inProcess = true
	rs.mu.Unlock()

	if !rs.IsInProgress() {
		t.Error("IsInProgress должен возвращать true")
	}
	if _, err := rs.RunOnce(context.Background()); !errors.Is(err, ErrReconcileInProgress) {
		t.Errorf("ожидалась ErrReconcileInProgress, получено %v", err)
	}
}

func TestReconcileRunOnce_IndexFailure(t *testing.T) {
	env := setupMediaTestEnv(t)
	env.idx.listErr = errors.New("база недоступна")

	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{}, testLogger())
	if _, err := rs.RunOnce(context.Background()); !errors.Is(err, ErrIO) {
		t.Errorf("ожидалась ErrIO, получено %v", err)
	}
	if rs.IsInProgress() {
		t.Error("после ошибки флаг выполнения должен сбрасываться")
	}
}

func TestReconcileStartStop(t *testing.T) {
	env := setupMediaTestEnv(t)
	rs := NewReconcileService(env.store.FileStore, env.idx, ReconcileOptions{
		Interval: 20 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for rs.LastReport() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	rs.Stop()

	if rs.LastReport() == nil {
		t.Error("фоновая сверка должна выполниться хотя бы один раз")
	}
}
