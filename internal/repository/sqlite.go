package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bigkaa/goartstore/media-service/internal/domain/model"
	"github.com/bigkaa/goartstore/media-service/internal/storage/index"
)

// SQLiteIndex — встроенный персистентный индекс метаданных.
// ID назначает INTEGER PRIMARY KEY AUTOINCREMENT: значения
// не переиспользуются даже после удаления последней записи.
type SQLiteIndex struct {
	db *sqlx.DB
}

// sqliteRow — строка media_files. uploaded_at хранится как
// unix-время в наносекундах, чтобы сортировка не зависела
// от текстового формата времени.
type sqliteRow struct {
	ID           int64  `db:"id"`
	StoredName   string `db:"stored_name"`
	OriginalName string `db:"original_name"`
	Kind         string `db:"kind"`
	StoragePath  string `db:"storage_path"`
	ContentType  string `db:"content_type"`
	SizeBytes    int64  `db:"size_bytes"`
	UploadedAt   int64  `db:"uploaded_at"`
}

func (r sqliteRow) toModel() *model.MediaRecord {
	return &model.MediaRecord{
		ID:           r.ID,
		StoredName:   r.StoredName,
		OriginalName: r.OriginalName,
		Kind:         model.Kind(r.Kind),
		StoragePath:  r.StoragePath,
		ContentType:  r.ContentType,
		SizeBytes:    r.SizeBytes,
		UploadedAt:   time.Unix(0, r.UploadedAt).UTC(),
	}
}

// NewSQLiteIndex создаёт индекс поверх открытой базы с применёнными миграциями.
func NewSQLiteIndex(db *sqlx.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

// Insert сохраняет запись и возвращает копию с назначенным ID.
func (r *SQLiteIndex) Insert(ctx context.Context, rec *model.MediaRecord) (*model.MediaRecord, error) {
	if err := index.ValidateForInsert(rec); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO media_files (stored_name, original_name, kind, storage_path,
			content_type, size_bytes, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	stored := rec.Clone()
	res, err := r.db.ExecContext(ctx, query,
		stored.StoredName, stored.OriginalName, string(stored.Kind), stored.StoragePath,
		stored.ContentType, stored.SizeBytes, stored.UploadedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка вставки записи: %w", err)
	}

	stored.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ID записи: %w", err)
	}
	return stored, nil
}

// Get возвращает запись по ID.
func (r *SQLiteIndex) Get(ctx context.Context, id int64) (*model.MediaRecord, error) {
	var row sqliteRow
	err := r.db.GetContext(ctx, &row, `SELECT `+mediaColumns+` FROM media_files WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, index.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи %d: %w", id, err)
	}
	return row.toModel(), nil
}

// Delete удаляет запись по ID.
func (r *SQLiteIndex) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка удаления записи %d: %w", id, err)
	}
	if n == 0 {
		return index.ErrNotFound
	}
	return nil
}

// ListAll возвращает все записи, новые первые.
func (r *SQLiteIndex) ListAll(ctx context.Context) ([]*model.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files
		ORDER BY uploaded_at DESC, id DESC`
	return r.list(ctx, query)
}

// ListByKind возвращает записи категории kind, новые первые.
func (r *SQLiteIndex) ListByKind(ctx context.Context, kind model.Kind) ([]*model.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files
		WHERE kind = ?
		ORDER BY uploaded_at DESC, id DESC`
	return r.list(ctx, query, string(kind))
}

// Ping проверяет доступность базы.
func (r *SQLiteIndex) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteIndex) list(ctx context.Context, query string, args ...any) ([]*model.MediaRecord, error) {
	var rows []sqliteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}

	result := make([]*model.MediaRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}
