package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/media-service/internal/config"
	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGetDiskUsage(t *testing.T) {
	total, used, available, err := getDiskUsage(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка getDiskUsage: %v", err)
	}
	if total <= 0 {
		t.Errorf("total должен быть > 0, получили %d", total)
	}
	if used < 0 || available < 0 || available > total {
		t.Errorf("некорректные значения: total=%d used=%d available=%d", total, used, available)
	}
}

func TestGetDiskUsage_Missing(t *testing.T) {
	if _, _, _, err := getDiskUsage(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ожидалась ошибка для несуществующего пути")
	}
}

func TestOpenIndex_Memory(t *testing.T) {
	backend, err := openIndex(context.Background(), &config.Config{IndexDriver: config.IndexDriverMemory}, testLogger())
	if err != nil {
		t.Fatalf("Ошибка openIndex: %v", err)
	}
	defer backend.close()

	if _, ok := backend.idx.(*index.Memory); !ok {
		t.Errorf("ожидался *index.Memory, получен %T", backend.idx)
	}
	if backend.pgDB != nil {
		t.Error("для memory не должен создаваться адаптер PostgreSQL")
	}
}

func TestOpenIndex_SQLite(t *testing.T) {
	cfg := &config.Config{
		IndexDriver: config.IndexDriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "data", "media.db"),
	}
	backend, err := openIndex(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("Ошибка openIndex: %v", err)
	}
	defer backend.close()

	ctx := context.Background()
	rec, err := backend.idx.Insert(ctx, &model.MediaRecord{
		StoredName:   "a.png",
		OriginalName: "a.png",
		Kind:         model.KindImage,
		StoragePath:  "/tmp/a.png",
		ContentType:  "image/png",
		SizeBytes:    1,
		UploadedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Ошибка Insert: %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("id: хотели 1, получили %d", rec.ID)
	}
}

func TestOpenIndex_UnknownDriver(t *testing.T) {
	if _, err := openIndex(context.Background(), &config.Config{IndexDriver: "redis"}, testLogger()); err == nil {
		t.Error("ожидалась ошибка для неизвестного драйвера")
	}
}
