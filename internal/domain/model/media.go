// Пакет model — доменные модели media-service.
// MediaRecord — единственная сущность: метаданные загруженного
// медиафайла, связанные с байтами на диске через StoragePath.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind — категория медиафайла. Определяет поддиректорию хранения.
type Kind string

const (
	// KindImage — изображение
	KindImage Kind = "IMAGE"
	// KindVideo — видео
	KindVideo Kind = "VIDEO"
)

// ParseKind нормализует строку к верхнему регистру и возвращает Kind.
// Допустимые значения (без учёта регистра): image, video.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("недопустимый тип медиафайла %q, допустимые: IMAGE, VIDEO", s)
	}
	return k, nil
}

// Valid проверяет, что значение — одна из известных категорий.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// String реализует fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// MediaRecord — метаданные медиафайла. Неизменяемы после создания.
type MediaRecord struct {
	// ID — идентификатор, назначается индексом при вставке
	ID int64 `json:"id"`

	// StoredName — имя файла на диске: {uuid}{ext}
	StoredName string `json:"stored_name"`

	// OriginalName — имя файла от клиента без сегментов пути
	OriginalName string `json:"original_name"`

	// Kind — категория (IMAGE / VIDEO)
	Kind Kind `json:"kind"`

	// StoragePath — абсолютный путь к байтам на диске.
	// Вычисляется из StoredName и Kind, не меняется.
	StoragePath string `json:"storage_path"`

	// ContentType — MIME-тип, заявленный клиентом (не проверяется)
	ContentType string `json:"content_type"`

	// SizeBytes — фактическое количество записанных байт
	SizeBytes int64 `json:"size_bytes"`

	// UploadedAt — время вставки в индекс (UTC)
	UploadedAt time.Time `json:"uploaded_at"`
}

// Clone возвращает независимую копию записи.
func (r *MediaRecord) Clone() *MediaRecord {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

// NewerThan сообщает, должна ли запись r идти раньше other в выдаче:
// сначала по UploadedAt (новые первые), при равенстве — по ID (позже вставленные первые).
func (r *MediaRecord) NewerThan(other *MediaRecord) bool {
	if !r.UploadedAt.Equal(other.UploadedAt) {
		return r.UploadedAt.After(other.UploadedAt)
	}
	return r.ID > other.ID
}
