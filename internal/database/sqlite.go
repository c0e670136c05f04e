// sqlite.go — встроенный персистентный индекс на SQLite
// (modernc.org/sqlite, без cgo) и его миграции через goose.
package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrationsFS embed.FS

// sqlitePragmas — параметры соединения: ожидание блокировки
// вместо SQLITE_BUSY и журнал WAL для конкурентного чтения.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// OpenSQLite открывает (и при необходимости создаёт) файл базы SQLite.
// Директория файла создаётся автоматически.
func OpenSQLite(path string, logger *slog.Logger) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию базы %s: %w", path, err)
	}

	db, err := sqlx.Connect("sqlite", path+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite %s: %w", path, err)
	}

	// SQLite допускает одного писателя: сериализуем доступ на уровне пула
	db.SetMaxOpenConns(1)

	logger.Info("База SQLite открыта", slog.String("path", path))
	return db, nil
}

// MigrateSQLite применяет миграции SQLite из embedded FS через goose.
func MigrateSQLite(db *sqlx.DB, logger *slog.Logger) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("ошибка установки диалекта goose: %w", err)
	}

	migrationsDir, err := fs.Sub(sqliteMigrationsFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("ошибка получения директории миграций: %w", err)
	}
	goose.SetBaseFS(migrationsDir)

	if err := goose.Up(db.DB, "."); err != nil {
		return fmt.Errorf("ошибка применения миграций SQLite: %w", err)
	}

	version, err := goose.GetDBVersion(db.DB)
	if err != nil {
		return fmt.Errorf("ошибка получения версии схемы: %w", err)
	}
	logger.Info("Миграции SQLite применены", slog.Int64("version", version))

	return nil
}
