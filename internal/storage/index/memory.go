package index

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// Memory — потокобезопасный in-memory индекс.
// Использует sync.RWMutex для конкурентного чтения и
// эксклюзивной записи. Не персистентный: при рестарте индекс пуст,
// а файлы на диске становятся осиротевшими.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]*model.MediaRecord // id → запись
	nextID  int64
	logger  *slog.Logger
}

// NewMemory создаёт пустой in-memory индекс.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		records: make(map[int64]*model.MediaRecord),
		nextID:  1,
		logger:  logger.With(slog.String("component", "index")),
	}
}

// Insert назначает следующий ID и сохраняет копию записи.
// ID не переиспользуются даже после удаления.
func (m *Memory) Insert(_ context.Context, rec *model.MediaRecord) (*model.MediaRecord, error) {
	if err := ValidateForInsert(rec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Создаём копию, чтобы избежать data race при внешних изменениях
	stored := rec.Clone()
	stored.ID = m.nextID
	m.nextID++
	m.records[stored.ID] = stored

	m.logger.Debug("Запись добавлена в индекс",
		slog.Int64("media_id", stored.ID),
		slog.String("kind", stored.Kind.String()),
	)

	return stored.Clone(), nil
}

// Get возвращает копию записи по ID.
func (m *Memory) Get(_ context.Context, id int64) (*model.MediaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Delete удаляет запись по ID.
func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// ListAll возвращает копии всех записей, новые первые.
func (m *Memory) ListAll(_ context.Context) ([]*model.MediaRecord, error) {
	return m.list(""), nil
}

// ListByKind возвращает копии записей категории kind, новые первые.
func (m *Memory) ListByKind(_ context.Context, kind model.Kind) ([]*model.MediaRecord, error) {
	return m.list(kind), nil
}

// Count возвращает общее количество записей.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// list собирает записи с опциональным фильтром по категории.
func (m *Memory) list(kind model.Kind) []*model.MediaRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.MediaRecord, 0, len(m.records))
	for _, rec := range m.records {
		if kind != "" && rec.Kind != kind {
			continue
		}
		result = append(result, rec.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].NewerThan(result[j])
	})
	return result
}
