// Пакет index — индекс метаданных медиафайлов.
//
// Index — контракт хранилища записей MediaRecord. Реализации:
//   - Memory — потокобезопасный in-memory индекс (не персистентный,
//     для разработки и тестов);
//   - repository.SQLiteIndex / repository.PostgresIndex — персистентные;
//   - Cached — LRU-кэш поверх любой реализации.
//
// Все реализации возвращают копии записей и сортируют списки
// по дате загрузки (новые первые), при равенстве — по ID (больший первый).
package index

import (
	"context"
	"errors"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
)

// ErrNotFound — запись с указанным ID отсутствует в индексе.
var ErrNotFound = errors.New("запись не найдена в индексе")

// Index — хранилище метаданных медиафайлов.
// Реализации безопасны для конкурентного использования.
type Index interface {
	// Insert сохраняет запись и возвращает её копию с назначенным ID.
	// Поле ID входной записи игнорируется.
	Insert(ctx context.Context, rec *model.MediaRecord) (*model.MediaRecord, error)
	// Get возвращает запись по ID или ErrNotFound.
	Get(ctx context.Context, id int64) (*model.MediaRecord, error)
	// Delete удаляет запись по ID или возвращает ErrNotFound.
	Delete(ctx context.Context, id int64) error
	// ListAll возвращает все записи.
	ListAll(ctx context.Context) ([]*model.MediaRecord, error)
	// ListByKind возвращает записи указанной категории.
	ListByKind(ctx context.Context, kind model.Kind) ([]*model.MediaRecord, error)
}

// Pinger — индекс, умеющий проверять доступность своего хранилища.
// Используется readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping проверяет доступность индекса, если он реализует Pinger.
// Для остальных реализаций возвращает nil.
func Ping(ctx context.Context, idx Index) error {
	if p, ok := idx.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// errNilRecord — попытка вставить nil.
var errNilRecord = errors.New("запись не может быть nil")

// ValidateForInsert проверяет запись перед вставкой.
// Общая проверка для всех реализаций.
func ValidateForInsert(rec *model.MediaRecord) error {
	if rec == nil {
		return errNilRecord
	}
	if !rec.Kind.Valid() {
		return errors.New("недопустимая категория записи: " + rec.Kind.String())
	}
	return nil
}
