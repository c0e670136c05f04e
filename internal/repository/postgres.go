package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

// PostgresIndex — индекс метаданных в PostgreSQL.
// ID назначает BIGSERIAL: значения монотонны и не переиспользуются.
type PostgresIndex struct {
	db DBTX
}

// NewPostgresIndex создаёт индекс поверх пула или транзакции.
func NewPostgresIndex(db DBTX) *PostgresIndex {
	return &PostgresIndex{db: db}
}

// Insert сохраняет запись и возвращает копию с назначенным ID.
func (r *PostgresIndex) Insert(ctx context.Context, rec *model.MediaRecord) (*model.MediaRecord, error) {
	if err := index.ValidateForInsert(rec); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO media_files (stored_name, original_name, kind, storage_path,
			content_type, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	stored := rec.Clone()
	err := r.db.QueryRow(ctx, query,
		stored.StoredName, stored.OriginalName, string(stored.Kind), stored.StoragePath,
		stored.ContentType, stored.SizeBytes, stored.UploadedAt,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка вставки записи: %w", err)
	}
	return stored, nil
}

// Get возвращает запись по ID.
func (r *PostgresIndex) Get(ctx context.Context, id int64) (*model.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, index.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи %d: %w", id, err)
	}
	return rec, nil
}

// Delete удаляет запись по ID.
func (r *PostgresIndex) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return index.ErrNotFound
	}
	return nil
}

// ListAll возвращает все записи, новые первые.
func (r *PostgresIndex) ListAll(ctx context.Context) ([]*model.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files
		ORDER BY uploaded_at DESC, id DESC`
	return r.list(ctx, query)
}

// ListByKind возвращает записи категории kind, новые первые.
func (r *PostgresIndex) ListByKind(ctx context.Context, kind model.Kind) ([]*model.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files
		WHERE kind = $1
		ORDER BY uploaded_at DESC, id DESC`
	return r.list(ctx, query, string(kind))
}

// Ping проверяет доступность базы.
func (r *PostgresIndex) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

func (r *PostgresIndex) list(ctx context.Context, query string, args ...any) ([]*model.MediaRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	result := make([]*model.MediaRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации записей: %w", err)
	}
	return result, nil
}

// scanRecord читает строку media_files в MediaRecord.
func scanRecord(row pgx.Row) (*model.MediaRecord, error) {
	rec := &model.MediaRecord{}
	var kind string
	err := row.Scan(
		&rec.ID, &rec.StoredName, &rec.OriginalName, &kind, &rec.StoragePath,
		&rec.ContentType, &rec.SizeBytes, &rec.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Kind = model.Kind(kind)
	rec.UploadedAt = rec.UploadedAt.UTC()
	return rec, nil
}
