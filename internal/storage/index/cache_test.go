package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// countingIndex — Index, считающий обращения к Get.
type countingIndex struct {
	Index
	gets    atomic.Int64
	pingErr error
}

func (c *countingIndex) Get(ctx context.Context, id int64) (*model.MediaRecord, error) {
	c.gets.Add(1)
	return c.Index.Get(ctx, id)
}

func (c *countingIndex) Ping(context.Context) error {
	return c.pingErr
}

func newCounting() *countingIndex {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &countingIndex{Index: NewMemory(logger)}
}

func sampleRecord() *model.MediaRecord {
	return &model.MediaRecord{
		StoredName:   "id.png",
		OriginalName: "cat.png",
		Kind:         model.KindImage,
		StoragePath:  "/srv/media/images/id.png",
		ContentType:  "image/png",
		SizeBytes:    3,
		UploadedAt:   time.Now().UTC(),
	}
}

// TestNewCached_Disabled проверяет, что при размере 0 кэш не создаётся.
func TestNewCached_Disabled(t *testing.T) {
	next := newCounting()
	if got := NewCached(next, 0, time.Minute); got != Index(next) {
		t.Error("при maxSize=0 должен возвращаться исходный индекс")
	}
}

// TestCached_GetHit проверяет, что повторный Get обслуживается из кэша.
func TestCached_GetHit(t *testing.T) {
	next := newCounting()
	c := NewCached(next, 10, time.Minute).(*Cached)
	ctx := context.Background()

	rec, err := next.Insert(ctx, sampleRecord())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, rec.ID)
		if err != nil {
			t.Fatalf("ошибка Get: %v", err)
		}
		if got.OriginalName != "cat.png" {
			t.Errorf("OriginalName = %q", got.OriginalName)
		}
	}

	if n := next.gets.Load(); n != 1 {
		t.Errorf("ожидалось 1 обращение к next, получено %d", n)
	}
	if c.Len() != 1 {
		t.Errorf("ожидалась 1 запись в кэше, получено %d", c.Len())
	}
}

// TestCached_InsertWarmsCache проверяет заполнение кэша при вставке.
func TestCached_InsertWarmsCache(t *testing.T) {
	next := newCounting()
	c := NewCached(next, 10, time.Minute)
	ctx := context.Background()

	rec, err := c.Insert(ctx, sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if n := next.gets.Load(); n != 0 {
		t.Errorf("после Insert Get должен обслуживаться из кэша, обращений к next: %d", n)
	}
}

// TestCached_DeleteInvalidates проверяет инвалидацию при удалении.
func TestCached_DeleteInvalidates(t *testing.T) {
	c := NewCached(newCounting(), 10, time.Minute)
	ctx := context.Background()

	rec, err := c.Insert(ctx, sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("ошибка Delete: %v", err)
	}
	if _, err := c.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("после Delete ожидалась ErrNotFound, получено %v", err)
	}
}

// TestCached_TTL проверяет истечение записи по TTL.
func TestCached_TTL(t *testing.T) {
	next := newCounting()
	c := NewCached(next, 10, 50*time.Millisecond)
	ctx := context.Background()

	rec, err := c.Insert(ctx, sampleRecord())
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := c.Get(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if n := next.gets.Load(); n != 1 {
		t.Errorf("после истечения TTL ожидалось обращение к next, получено %d", n)
	}
}

// TestCached_Ping проверяет делегирование Ping.
func TestCached_Ping(t *testing.T) {
	next := newCounting()
	next.pingErr = errors.New("база недоступна")
	c := NewCached(next, 10, time.Minute)

	if err := Ping(context.Background(), c); !errors.Is(err, next.pingErr) {
		t.Errorf("ожидалась ошибка next, получено %v", err)
	}
}
