// Пакет service — бизнес-логика media-service.
// media.go — фасад хранилища: согласует запись байт на диск
// и записи в индексе метаданных.
package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/goartstore/media-service/internal/api/middleware"
	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/storage/filestore"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

// BlobStore — операции с байтами на диске, нужные фасаду.
// Реализуется *filestore.FileStore.
type BlobStore interface {
	Allocate(originalName string, kind model.Kind) (filestore.Allocation, error)
	Write(path string, reader io.Reader) (int64, error)
	OpenForRead(path string) (*os.File, error)
	Delete(path string) error
}

// StoreParams — параметры сохранения медиафайла.
type StoreParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalName — имя файла от клиента (очищается от сегментов пути)
	OriginalName string
	// ContentType — MIME-тип, заявленный клиентом
	ContentType string
	// Kind — категория файла
	Kind model.Kind
}

// Stats — агрегаты по записям индекса.
type Stats struct {
	Images     int
	Videos     int
	TotalBytes int64
}

// MediaService — фасад хранилища медиафайлов.
//
// Запись и вставка в индекс, а также два шага удаления не защищены
// общей блокировкой: согласованность обеспечивается порядком шагов.
// Файл без записи (ошибка вставки) остаётся на диске и обнаруживается
// сверкой как orphaned_file.
type MediaService struct {
	store  BlobStore
	idx    index.Index
	now    func() time.Time
	logger *slog.Logger
}

// NewMediaService создаёт фасад хранилища.
func NewMediaService(store BlobStore, idx index.Index, logger *slog.Logger) *MediaService {
	return &MediaService{
		store:  store,
		idx:    idx,
		now:    time.Now,
		logger: logger.With(slog.String("component", "media_service")),
	}
}

// Store сохраняет поток на диск и создаёт запись в индексе.
//
// Поток:
//  1. Проверка категории
//  2. Проверка, что поток не пуст (до создания файла)
//  3. Allocate → Write
//  4. Insert в индекс с UploadedAt = now
//
// При ошибке вставки файл остаётся на диске (без отката).
func (s *MediaService) Store(ctx context.Context, params StoreParams) (*model.MediaRecord, error) {
	if !params.Kind.Valid() {
		return nil, fmt.Errorf("%w: недопустимая категория %q", ErrValidation, params.Kind)
	}

	reader := bufio.NewReader(params.Reader)
	if _, err := reader.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: файл пуст", ErrValidation)
		}
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, fmt.Errorf("%w: ошибка чтения потока: %w", ErrIO, err)
	}

	alloc, err := s.store.Allocate(params.OriginalName, params.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	size, err := s.store.Write(alloc.StoragePath, reader)
	if err != nil {
		s.logger.Error("Ошибка записи файла",
			slog.String("storage_path", alloc.StoragePath),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, fmt.Errorf("%w: ошибка записи файла: %w", ErrIO, err)
	}

	rec, err := s.idx.Insert(ctx, &model.MediaRecord{
		StoredName:   alloc.StoredName,
		OriginalName: alloc.OriginalName,
		Kind:         params.Kind,
		StoragePath:  alloc.StoragePath,
		ContentType:  params.ContentType,
		SizeBytes:    size,
		UploadedAt:   s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		// Файл остаётся на диске: сверка сообщит о нём как orphaned_file
		s.logger.Error("Ошибка вставки в индекс, файл остался без записи",
			slog.String("storage_path", alloc.StoragePath),
			slog.Int64("size", size),
			slog.String("error", err.Error()),
		)
		middleware.OrphanedBlobsTotal.Inc()
		middleware.OperationsTotal.WithLabelValues("upload", "error").Inc()
		return nil, fmt.Errorf("%w: ошибка сохранения метаданных: %w", ErrIO, err)
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.MediaFilesTotal.WithLabelValues(rec.Kind.String()).Inc()
	middleware.StorageBytes.Add(float64(rec.SizeBytes))

	s.logger.Info("Медиафайл сохранён",
		slog.Int64("media_id", rec.ID),
		slog.String("kind", rec.Kind.String()),
		slog.String("original_name", rec.OriginalName),
		slog.String("stored_name", rec.StoredName),
		slog.Int64("size", rec.SizeBytes),
	)

	return rec, nil
}

// FetchBytes возвращает поток байт файла и его запись.
// Вызывающий код обязан закрыть поток.
func (s *MediaService) FetchBytes(ctx context.Context, id int64) (io.ReadCloser, *model.MediaRecord, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.store.OpenForRead(rec.StoragePath)
	if err != nil {
		s.logger.Warn("Файл из индекса недоступен на диске",
			slog.Int64("media_id", id),
			slog.String("storage_path", rec.StoragePath),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("download", "error").Inc()
		return nil, nil, fmt.Errorf("%w: файл %d отсутствует на диске", ErrNotFound, id)
	}

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()
	return f, rec, nil
}

// FetchMetadata возвращает запись без обращения к диску.
func (s *MediaService) FetchMetadata(ctx context.Context, id int64) (*model.MediaRecord, error) {
	return s.get(ctx, id)
}

// List возвращает записи, новые первые. kind == nil — все категории.
func (s *MediaService) List(ctx context.Context, kind *model.Kind) ([]*model.MediaRecord, error) {
	var (
		records []*model.MediaRecord
		err     error
	)
	if kind == nil {
		records, err = s.idx.ListAll(ctx)
	} else {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: недопустимая категория %q", ErrValidation, *kind)
		}
		records, err = s.idx.ListByKind(ctx, *kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка получения списка: %w", ErrIO, err)
	}
	return records, nil
}

// Delete удаляет файл с диска, затем запись из индекса.
// Если файл удалить не удалось, запись сохраняется.
func (s *MediaService) Delete(ctx context.Context, id int64) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(rec.StoragePath); err != nil {
		s.logger.Error("Ошибка удаления файла, запись сохранена",
			slog.Int64("media_id", id),
			slog.String("storage_path", rec.StoragePath),
			slog.String("error", err.Error()),
		)
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("%w: ошибка удаления файла: %w", ErrIO, err)
	}

	if err := s.idx.Delete(ctx, id); err != nil {
		if errors.Is(err, index.ErrNotFound) {
			// Параллельное удаление успело раньше
			return fmt.Errorf("%w: запись %d", ErrNotFound, id)
		}
		middleware.OperationsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("%w: ошибка удаления записи: %w", ErrIO, err)
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	middleware.MediaFilesTotal.WithLabelValues(rec.Kind.String()).Dec()
	middleware.StorageBytes.Sub(float64(rec.SizeBytes))

	s.logger.Info("Медиафайл удалён",
		slog.Int64("media_id", id),
		slog.String("kind", rec.Kind.String()),
	)
	return nil
}

// Stats подсчитывает количество записей по категориям и суммарный размер.
func (s *MediaService) Stats(ctx context.Context) (Stats, error) {
	records, err := s.idx.ListAll(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: ошибка получения списка: %w", ErrIO, err)
	}

	var st Stats
	for _, rec := range records {
		switch rec.Kind {
		case model.KindImage:
			st.Images++
		case model.KindVideo:
			st.Videos++
		}
		st.TotalBytes += rec.SizeBytes
	}
	return st, nil
}

// RefreshMetrics выставляет бизнес-метрики по текущему содержимому индекса.
// Вызывается при старте, когда индекс уже содержит записи.
func (s *MediaService) RefreshMetrics(ctx context.Context) error {
	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	middleware.MediaFilesTotal.WithLabelValues(model.KindImage.String()).Set(float64(st.Images))
	middleware.MediaFilesTotal.WithLabelValues(model.KindVideo.String()).Set(float64(st.Videos))
	middleware.StorageBytes.Set(float64(st.TotalBytes))

	s.logger.Info("Метрики хранилища обновлены",
		slog.Int("images", st.Images),
		slog.Int("videos", st.Videos),
		slog.Int64("total_bytes", st.TotalBytes),
	)
	return nil
}

// get читает запись из индекса и переводит ошибки индекса в ошибки сервиса.
func (s *MediaService) get(ctx context.Context, id int64) (*model.MediaRecord, error) {
	rec, err := s.idx.Get(ctx, id)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, fmt.Errorf("%w: запись %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: ошибка чтения индекса: %w", ErrIO, err)
	}
	return rec, nil
}
