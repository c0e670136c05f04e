// Пакет indextest — общий набор тестов контракта index.Index.
// Запускается для каждой реализации: memory, sqlite, postgres.
package indextest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

// Factory создаёт пустой индекс для одного подтеста.
type Factory func(t *testing.T) index.Index

// baseTime — фиксированное время с точностью до микросекунд
// (точность timestamptz в PostgreSQL).
var baseTime = time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)

// NewRecord создаёт тестовую запись без ID.
func NewRecord(name string, kind model.Kind, uploadedAt time.Time) *model.MediaRecord {
	sub := "images"
	if kind == model.KindVideo {
		sub = "videos"
	}
	stored := "00000000-0000-4000-8000-000000000000-" + name
	return &model.MediaRecord{
		StoredName:   stored,
		OriginalName: name,
		Kind:         kind,
		StoragePath:  "/srv/media/" + sub + "/" + stored,
		ContentType:  "application/octet-stream",
		SizeBytes:    int64(len(name)),
		UploadedAt:   uploadedAt,
	}
}

// RunContract запускает все проверки контракта index.Index.
func RunContract(t *testing.T, newIndex Factory) {
	t.Helper()

	t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, newIndex(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newIndex(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newIndex(t)) })
	t.Run("IDsNotReused", func(t *testing.T) { testIDsNotReused(t, newIndex(t)) })
	t.Run("Ordering", func(t *testing.T) { testOrdering(t, newIndex(t)) })
	t.Run("ListByKind", func(t *testing.T) { testListByKind(t, newIndex(t)) })
	t.Run("EmptyLists", func(t *testing.T) { testEmptyLists(t, newIndex(t)) })
	t.Run("ReturnsCopies", func(t *testing.T) { testReturnsCopies(t, newIndex(t)) })
	t.Run("InsertInvalid", func(t *testing.T) { testInsertInvalid(t, newIndex(t)) })
	t.Run("ConcurrentInsert", func(t *testing.T) { testConcurrentInsert(t, newIndex(t)) })
}

func testInsertAndGet(t *testing.T, idx index.Index) {
	ctx := context.Background()
	in := NewRecord("cat.png", model.KindImage, baseTime)
	in.ID = 999 // должен игнорироваться

	got, err := idx.Insert(ctx, in)
	if err != nil {
		t.Fatalf("ошибка Insert: %v", err)
	}
	if got.ID <= 0 {
		t.Fatalf("ожидался положительный ID, получен %d", got.ID)
	}

	fetched, err := idx.Get(ctx, got.ID)
	if err != nil {
		t.Fatalf("ошибка Get: %v", err)
	}
	assertSameRecord(t, fetched, in, got.ID)
}

func testGetNotFound(t *testing.T, idx index.Index) {
	_, err := idx.Get(context.Background(), 42)
	if !errors.Is(err, index.ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func testDelete(t *testing.T, idx index.Index) {
	ctx := context.Background()
	rec, err := idx.Insert(ctx, NewRecord("clip.mp4", model.KindVideo, baseTime))
	if err != nil {
		t.Fatal(err)
	}

	if err := idx.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("ошибка Delete: %v", err)
	}
	if _, err := idx.Get(ctx, rec.ID); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("после Delete ожидалась ErrNotFound, получено %v", err)
	}
	if err := idx.Delete(ctx, rec.ID); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("повторный Delete: ожидалась ErrNotFound, получено %v", err)
	}

	all, err := idx.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("после Delete список должен быть пуст, получено %d", len(all))
	}
}

func testIDsNotReused(t *testing.T, idx index.Index) {
	ctx := context.Background()
	first, err := idx.Insert(ctx, NewRecord("a.png", model.KindImage, baseTime))
	if err != nil {
		t.Fatal(err)
	}
	second, err := idx.Insert(ctx, NewRecord("b.png", model.KindImage, baseTime))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ID должны возрастать: %d, %d", first.ID, second.ID)
	}

	if err := idx.Delete(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	third, err := idx.Insert(ctx, NewRecord("c.png", model.KindImage, baseTime))
	if err != nil {
		t.Fatal(err)
	}
	if third.ID <= second.ID {
		t.Errorf("ID удалённой записи не должен переиспользоваться: %d <= %d", third.ID, second.ID)
	}
}

func testOrdering(t *testing.T, idx index.Index) {
	ctx := context.Background()

	old, _ := idx.Insert(ctx, NewRecord("old.png", model.KindImage, baseTime.Add(-time.Hour)))
	tieA, _ := idx.Insert(ctx, NewRecord("tie-a.mp4", model.KindVideo, baseTime))
	tieB, _ := idx.Insert(ctx, NewRecord("tie-b.png", model.KindImage, baseTime))
	// Вставлена последней, но загружена раньше остальных
	oldest, err := idx.Insert(ctx, NewRecord("oldest.png", model.KindImage, baseTime.Add(-2*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}

	all, err := idx.ListAll(ctx)
	if err != nil {
		t.Fatalf("ошибка ListAll: %v", err)
	}
	assertOrder(t, all, tieB.ID, tieA.ID, old.ID, oldest.ID)

	images, err := idx.ListByKind(ctx, model.KindImage)
	if err != nil {
		t.Fatalf("ошибка ListByKind: %v", err)
	}
	assertOrder(t, images, tieB.ID, old.ID, oldest.ID)
}

func testListByKind(t *testing.T, idx index.Index) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := idx.Insert(ctx, NewRecord(fmt.Sprintf("img-%d.png", i), model.KindImage, baseTime)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := idx.Insert(ctx, NewRecord("clip.mp4", model.KindVideo, baseTime)); err != nil {
		t.Fatal(err)
	}

	images, err := idx.ListByKind(ctx, model.KindImage)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 3 {
		t.Errorf("ожидалось 3 изображения, получено %d", len(images))
	}
	for _, r := range images {
		if r.Kind != model.KindImage {
			t.Errorf("в выборке IMAGE запись категории %s", r.Kind)
		}
	}

	videos, err := idx.ListByKind(ctx, model.KindVideo)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 1 || videos[0].OriginalName != "clip.mp4" {
		t.Errorf("ожидалось одно видео clip.mp4, получено %+v", videos)
	}
}

func testEmptyLists(t *testing.T, idx index.Index) {
	ctx := context.Background()

	all, err := idx.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("ожидался пустой список, получено %d", len(all))
	}

	videos, err := idx.ListByKind(ctx, model.KindVideo)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 0 {
		t.Errorf("ожидался пустой список, получено %d", len(videos))
	}
}

func testReturnsCopies(t *testing.T, idx index.Index) {
	ctx := context.Background()
	in := NewRecord("cat.png", model.KindImage, baseTime)
	got, err := idx.Insert(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	// Изменения входной и возвращённых записей не должны влиять на индекс
	in.OriginalName = "changed-input"
	got.OriginalName = "changed-result"

	fetched, err := idx.Get(ctx, got.ID)
	if err != nil {
		t.Fatal(err)
	}
	fetched.OriginalName = "changed-get"

	again, err := idx.Get(ctx, got.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.OriginalName != "cat.png" {
		t.Errorf("индекс должен хранить независимую копию, получено %q", again.OriginalName)
	}
}

func testInsertInvalid(t *testing.T, idx index.Index) {
	ctx := context.Background()
	if _, err := idx.Insert(ctx, nil); err == nil {
		t.Error("Insert(nil): ожидалась ошибка")
	}
	if _, err := idx.Insert(ctx, NewRecord("a.mp3", model.Kind("AUDIO"), baseTime)); err == nil {
		t.Error("Insert с неизвестной категорией: ожидалась ошибка")
	}
}

func testConcurrentInsert(t *testing.T, idx index.Index) {
	const workers = 16
	const perWorker = 10

	ids := make([][]int64, workers)
	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				rec, err := idx.Insert(ctx, NewRecord(fmt.Sprintf("w%d-%d.png", w, i), model.KindImage, baseTime))
				if err != nil {
					return err
				}
				ids[w] = append(ids[w], rec.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("ошибка конкурентной вставки: %v", err)
	}

	seen := make(map[int64]bool, workers*perWorker)
	for _, list := range ids {
		for _, id := range list {
			if seen[id] {
				t.Fatalf("повторный ID %d при конкурентной вставке", id)
			}
			seen[id] = true
		}
	}

	all, err := idx.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != workers*perWorker {
		t.Errorf("ожидалось %d записей, получено %d", workers*perWorker, len(all))
	}
}

// assertSameRecord сравнивает поля записи с ожидаемыми.
func assertSameRecord(t *testing.T, got, want *model.MediaRecord, wantID int64) {
	t.Helper()
	if got.ID != wantID {
		t.Errorf("ID = %d, ожидался %d", got.ID, wantID)
	}
	if got.StoredName != want.StoredName {
		t.Errorf("StoredName = %q, ожидался %q", got.StoredName, want.StoredName)
	}
	if got.OriginalName != want.OriginalName {
		t.Errorf("OriginalName = %q, ожидался %q", got.OriginalName, want.OriginalName)
	}
	if got.Kind != want.Kind {
		t.Errorf("Kind = %q, ожидался %q", got.Kind, want.Kind)
	}
	if got.StoragePath != want.StoragePath {
		t.Errorf("StoragePath = %q, ожидался %q", got.StoragePath, want.StoragePath)
	}
	if got.ContentType != want.ContentType {
		t.Errorf("ContentType = %q, ожидался %q", got.ContentType, want.ContentType)
	}
	if got.SizeBytes != want.SizeBytes {
		t.Errorf("SizeBytes = %d, ожидался %d", got.SizeBytes, want.SizeBytes)
	}
	if !got.UploadedAt.Equal(want.UploadedAt) {
		t.Errorf("UploadedAt = %v, ожидалось %v", got.UploadedAt, want.UploadedAt)
	}
}

// assertOrder проверяет порядок ID в выдаче.
func assertOrder(t *testing.T, got []*model.MediaRecord, wantIDs ...int64) {
	t.Helper()
	if len(got) != len(wantIDs) {
		t.Fatalf("ожидалось %d записей, получено %d", len(wantIDs), len(got))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			gotIDs := make([]int64, len(got))
			for j, r := range got {
				gotIDs[j] = r.ID
			}
			t.Fatalf("порядок ID = %v, ожидался %v", gotIDs, wantIDs)
		}
	}
}
