// Пакет repository — персистентные реализации index.Index:
// PostgresIndex (pgx) и SQLiteIndex (sqlx + modernc.org/sqlite).
// Обе реализации хранят записи в таблице media_files и сортируют
// выдачу по uploaded_at DESC, id DESC.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX — интерфейс для выполнения запросов (pgxpool.Pool или pgx.Tx).
// Позволяет использовать репозиторий как с пулом, так и внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// mediaColumns — список колонок в порядке сканирования.
const mediaColumns = `id, stored_name, original_name, kind, storage_path,
	content_type, size_bytes, uploaded_at`
