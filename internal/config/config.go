// Пакет config — загрузка и валидация конфигурации media-service
// из переменных окружения (и необязательного файла .env).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы индекса метаданных.
const (
	IndexDriverMemory   = "memory"
	IndexDriverSQLite   = "sqlite"
	IndexDriverPostgres = "postgres"
)

// Config содержит все параметры конфигурации media-service.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Корневая директория загрузок ({root}/images, {root}/videos)
	UploadDir string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64

	// Драйвер индекса метаданных: memory, sqlite, postgres
	IndexDriver string
	// Путь к файлу SQLite (драйвер sqlite)
	SQLitePath string

	// Параметры PostgreSQL (драйвер postgres)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Максимальное количество соединений в пуле
	DBMaxConns int32

	// Размер LRU-кэша метаданных (0 — кэш отключён)
	CacheSize int
	// Время жизни записи в кэше
	CacheTTL time.Duration

	// Интервал фоновой сверки (0 — фоновая сверка отключена)
	ReconcileInterval time.Duration
	// Удалять ли осиротевшие файлы (байты без записи в индексе)
	ReconcileRemoveOrphans bool
	// Минимальный возраст осиротевшего файла перед удалением
	ReconcileGrace time.Duration

	// Базовый URL для downloadUrl в ответах (пусто — из запроса)
	PublicBaseURL string
	// Разрешённые CORS origins
	CORSAllowedOrigins []string

	// Путь к TLS сертификату (опционально)
	TLSCert string
	// Путь к TLS приватному ключу (опционально)
	TLSKey string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
// Если в рабочей директории есть .env, его значения подставляются
// только для не заданных переменных.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// MS_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("MS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("MS_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("MS_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// MS_UPLOAD_DIR — корень хранилища (по умолчанию ./uploads)
	cfg.UploadDir = getEnvDefault("MS_UPLOAD_DIR", "./uploads")

	// MS_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MB)
	cfg.MaxFileSize, err = getEnvInt64("MS_MAX_FILE_SIZE", 100<<20)
	if err != nil {
		return nil, fmt.Errorf("MS_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("MS_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// MS_INDEX_DRIVER — хранилище индекса метаданных (по умолчанию sqlite)
	cfg.IndexDriver = strings.ToLower(getEnvDefault("MS_INDEX_DRIVER", IndexDriverSQLite))
	switch cfg.IndexDriver {
	case IndexDriverMemory, IndexDriverSQLite, IndexDriverPostgres:
	default:
		return nil, fmt.Errorf("MS_INDEX_DRIVER: недопустимое значение %q, допустимые: memory, sqlite, postgres", cfg.IndexDriver)
	}

	cfg.SQLitePath = getEnvDefault("MS_SQLITE_PATH", "./data/media.db")

	if err := loadDatabase(cfg); err != nil {
		return nil, err
	}

	// MS_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("MS_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("MS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("MS_CACHE_SIZE: значение не может быть отрицательным")
	}

	cfg.CacheTTL, err = getEnvDuration("MS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MS_CACHE_TTL: %w", err)
	}

	// MS_RECONCILE_INTERVAL — интервал сверки (по умолчанию 1h, 0 — выключено)
	cfg.ReconcileInterval, err = getEnvDuration("MS_RECONCILE_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MS_RECONCILE_INTERVAL: %w", err)
	}

	cfg.ReconcileRemoveOrphans, err = getEnvBool("MS_RECONCILE_REMOVE_ORPHANS", false)
	if err != nil {
		return nil, fmt.Errorf("MS_RECONCILE_REMOVE_ORPHANS: %w", err)
	}

	cfg.ReconcileGrace, err = getEnvDuration("MS_RECONCILE_GRACE", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MS_RECONCILE_GRACE: %w", err)
	}

	// MS_PUBLIC_BASE_URL — базовый URL для ссылок на скачивание (опционально)
	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("MS_PUBLIC_BASE_URL", ""), "/")
	if cfg.PublicBaseURL != "" {
		u, parseErr := url.Parse(cfg.PublicBaseURL)
		if parseErr != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("MS_PUBLIC_BASE_URL: некорректный URL %q", cfg.PublicBaseURL)
		}
	}

	cfg.CORSAllowedOrigins = splitList(getEnvDefault("MS_CORS_ALLOWED_ORIGINS", "*"))

	cfg.TLSCert = getEnvDefault("MS_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("MS_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("MS_TLS_CERT и MS_TLS_KEY должны задаваться вместе")
	}

	if cfg.HTTPReadTimeout, err = getEnvDuration("MS_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("MS_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("MS_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("MS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("MS_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("MS_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("MS_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("MS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// MS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MS_LOG_LEVEL: %w", err)
	}

	// MS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.DephealthCheckInterval, err = getEnvDuration("MS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("MS_DEPHEALTH_GROUP", "media-service")

	return cfg, nil
}

// loadDatabase читает параметры PostgreSQL. Пароль обязателен
// только для драйвера postgres.
func loadDatabase(cfg *Config) error {
	var err error

	cfg.DBHost = getEnvDefault("MS_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("MS_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("MS_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("MS_DB_NAME", "media")
	cfg.DBUser = getEnvDefault("MS_DB_USER", "media")

	cfg.DBSSLMode = getEnvDefault("MS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("MS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	maxConns, err := getEnvInt("MS_DB_MAX_CONNS", 10)
	if err != nil {
		return fmt.Errorf("MS_DB_MAX_CONNS: %w", err)
	}
	if maxConns < 1 {
		return fmt.Errorf("MS_DB_MAX_CONNS: значение должно быть положительным")
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // значение проверено выше

	if cfg.IndexDriver == IndexDriverPostgres {
		cfg.DBPassword, err = getEnvRequired("MS_DB_PASSWORD")
		if err != nil {
			return err
		}
	} else {
		cfg.DBPassword = getEnvDefault("MS_DB_PASSWORD", "")
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
// scheme — "postgres" для метрик, "pgx5" для golang-migrate.
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает bool значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	if d < 0 {
		return 0, fmt.Errorf("длительность не может быть отрицательной: %q", val)
	}
	return d, nil
}

// splitList разбивает строку через запятую, отбрасывая пустые элементы.
func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
