// cache.go — LRU-кэш записей по ID поверх любой реализации Index.
// Обёртка над hashicorp/golang-lru/v2/expirable. Списки не кэшируются.
package index

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_index_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ms_index_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
)

// Cached — индекс с LRU-кэшем записей по ID и автоматическим TTL.
//
// Get держит RLock на время чтения из next и заполнения кэша, Delete —
// эксклюзивный Lock на время удаления из next и инвалидации. Поэтому
// запись, удалённая из next, не может вернуться в кэш.
type Cached struct {
	next  Index
	mu    sync.RWMutex
	cache *expirable.LRU[int64, *model.MediaRecord]
}

// NewCached оборачивает next в LRU-кэш.
// maxSize — максимальное количество записей, 0 — кэш выключен
// и возвращается next без изменений.
func NewCached(next Index, maxSize int, ttl time.Duration) Index {
	if maxSize <= 0 {
		return next
	}
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[int64, *model.MediaRecord](maxSize, nil, ttl),
	}
}

// Insert сохраняет запись в next и сразу кладёт её в кэш.
func (c *Cached) Insert(ctx context.Context, rec *model.MediaRecord) (*model.MediaRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stored, err := c.next.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.cache.Add(stored.ID, stored.Clone())
	return stored, nil
}

// Get возвращает запись из кэша или из next при промахе.
// Обновляет Prometheus-метрики hit/miss.
func (c *Cached) Get(ctx context.Context, id int64) (*model.MediaRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rec, ok := c.cache.Get(id); ok {
		cacheHitsTotal.Inc()
		return rec.Clone(), nil
	}
	cacheMissesTotal.Inc()

	rec, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, rec.Clone())
	return rec, nil
}

// Delete удаляет запись из next и инвалидирует кэш.
func (c *Cached) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(id)
	return c.next.Delete(ctx, id)
}

// ListAll делегирует next.
func (c *Cached) ListAll(ctx context.Context) ([]*model.MediaRecord, error) {
	return c.next.ListAll(ctx)
}

// ListByKind делегирует next.
func (c *Cached) ListByKind(ctx context.Context, kind model.Kind) ([]*model.MediaRecord, error) {
	return c.next.ListByKind(ctx, kind)
}

// Ping делегирует next, если он умеет проверять доступность.
func (c *Cached) Ping(ctx context.Context) error {
	return Ping(ctx, c.next)
}

// Len возвращает количество записей в кэше.
func (c *Cached) Len() int {
	return c.cache.Len()
}
