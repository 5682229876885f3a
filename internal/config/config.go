// Пакет config — загрузка и валидация конфигурации PromoVault
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Минимальная длина секрета сессий (AES-256 ключи выводятся из него через HKDF).
const minSessionSecretLen = 32

// Config содержит все параметры конфигурации PromoVault.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Окружение (development, production)
	Env string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Разрешённые CORS origins (через запятую)
	CORSAllowedOrigins []string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Таймаут одной операции с хранилищем, если у вызывающего нет своего deadline
	StoreTimeout time.Duration
	// Максимум соединений в пуле
	DBMaxConns int

	// --- Сессии ---

	// Секрет, из которого выводятся ключи доменов visitor и admin
	SessionSecret string
	// Время жизни сессии
	SessionTTL time.Duration
	// Secure flag для cookie
	SecureCookies bool

	// --- Каталог ---

	// Префикс кодов флаеров (PROMO → PROMO-0001)
	CodePrefix string
	// Политика переходов статусов заявок (permissive, strict)
	RequestPolicy string
	// Схема хэширования паролей администраторов (sha256, bcrypt)
	AdminHashScheme string
	// Размер LRU-кэша публичного дерева категорий
	CatalogCacheSize int
	// TTL записей кэша дерева категорий
	CatalogCacheTTL time.Duration
	// Лимит журнала входов по умолчанию
	AuditListLimit int

	// --- Медиа ---

	// Бэкенд хранения изображений (local, s3)
	MediaBackend string
	// Директория локального хранилища
	MediaDir string
	// Публичный базовый URL медиа (для local — префикс /media)
	MediaPublicURL string
	// Максимальный размер загружаемого файла
	UploadMaxBytes int64
	// S3: bucket
	S3Bucket string
	// S3: endpoint (MinIO и совместимые)
	S3Endpoint string
	// S3: регион
	S3Region string
	// S3: access key
	S3AccessKey string
	// S3: secret key
	S3SecretKey string

	// --- Bootstrap администратора ---

	// Email администратора, создаваемого при старте (опционально)
	AdminEmail string
	// Пароль администратора, создаваемого при старте
	AdminPassword string
	// Отображаемое имя администратора
	AdminName string

	// --- Мониторинг ---

	// Группа в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PV_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("PV_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PV_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PV_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// PV_ENV — окружение (по умолчанию development)
	cfg.Env = getEnvDefault("PV_ENV", "development")

	// PV_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PV_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PV_LOG_LEVEL: %w", err)
	}

	// PV_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PV_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PV_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// PV_CORS_ALLOWED_ORIGINS — CORS origins (по умолчанию http://localhost:3000)
	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("PV_CORS_ALLOWED_ORIGINS", "http://localhost:3000"))

	// --- PostgreSQL ---

	// PV_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PV_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PV_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PV_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PV_DB_PORT: %w", err)
	}

	// PV_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PV_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PV_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PV_DB_USER")
	if err != nil {
		return nil, err
	}

	// PV_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PV_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PV_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PV_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PV_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// PV_STORE_TIMEOUT — таймаут операции с БД (по умолчанию 5s)
	cfg.StoreTimeout, err = getEnvDuration("PV_STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PV_STORE_TIMEOUT: %w", err)
	}
	if cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("PV_STORE_TIMEOUT: значение должно быть положительным")
	}

	// PV_DB_MAX_CONNS — размер пула соединений (по умолчанию 10)
	cfg.DBMaxConns, err = getEnvInt("PV_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("PV_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 1000 {
		return nil, fmt.Errorf("PV_DB_MAX_CONNS: значение должно быть в диапазоне 1..1000")
	}

	// --- Сессии ---

	// PV_SESSION_SECRET — обязательный, не короче 32 символов
	cfg.SessionSecret, err = getEnvRequired("PV_SESSION_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionSecret) < minSessionSecretLen {
		return nil, fmt.Errorf("PV_SESSION_SECRET: длина должна быть не меньше %d символов", minSessionSecretLen)
	}

	// PV_SESSION_TTL — время жизни сессии (по умолчанию 7 дней)
	cfg.SessionTTL, err = getEnvDuration("PV_SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PV_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("PV_SESSION_TTL: значение должно быть положительным")
	}

	// PV_SECURE_COOKIES — Secure flag (по умолчанию true для production)
	cfg.SecureCookies, err = getEnvBool("PV_SECURE_COOKIES", cfg.Env == "production")
	if err != nil {
		return nil, fmt.Errorf("PV_SECURE_COOKIES: %w", err)
	}

	// --- Каталог ---

	// PV_CODE_PREFIX — префикс кодов флаеров (по умолчанию PROMO)
	cfg.CodePrefix = getEnvDefault("PV_CODE_PREFIX", "PROMO")
	if strings.ContainsAny(cfg.CodePrefix, " -") {
		return nil, fmt.Errorf("PV_CODE_PREFIX: префикс %q не должен содержать пробелы и дефисы", cfg.CodePrefix)
	}

	// PV_REQUEST_POLICY — политика переходов статусов (по умолчанию permissive)
	cfg.RequestPolicy = getEnvDefault("PV_REQUEST_POLICY", "permissive")
	if cfg.RequestPolicy != "permissive" && cfg.RequestPolicy != "strict" {
		return nil, fmt.Errorf("PV_REQUEST_POLICY: недопустимое значение %q, допустимые: permissive, strict", cfg.RequestPolicy)
	}

	// PV_ADMIN_HASH — схема хэширования паролей администраторов (по умолчанию sha256)
	cfg.AdminHashScheme = getEnvDefault("PV_ADMIN_HASH", "sha256")
	if cfg.AdminHashScheme != "sha256" && cfg.AdminHashScheme != "bcrypt" {
		return nil, fmt.Errorf("PV_ADMIN_HASH: недопустимое значение %q, допустимые: sha256, bcrypt", cfg.AdminHashScheme)
	}

	// PV_CATALOG_CACHE_SIZE — размер кэша дерева категорий (по умолчанию 16)
	cfg.CatalogCacheSize, err = getEnvInt("PV_CATALOG_CACHE_SIZE", 16)
	if err != nil {
		return nil, fmt.Errorf("PV_CATALOG_CACHE_SIZE: %w", err)
	}
	if cfg.CatalogCacheSize < 1 {
		return nil, fmt.Errorf("PV_CATALOG_CACHE_SIZE: значение %d должно быть не меньше 1", cfg.CatalogCacheSize)
	}

	// PV_CATALOG_CACHE_TTL — TTL кэша (по умолчанию 30s)
	cfg.CatalogCacheTTL, err = getEnvDuration("PV_CATALOG_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PV_CATALOG_CACHE_TTL: %w", err)
	}

	// PV_AUDIT_LIST_LIMIT — лимит журнала входов (по умолчанию 500)
	cfg.AuditListLimit, err = getEnvInt("PV_AUDIT_LIST_LIMIT", 500)
	if err != nil {
		return nil, fmt.Errorf("PV_AUDIT_LIST_LIMIT: %w", err)
	}
	if cfg.AuditListLimit < 1 || cfg.AuditListLimit > 1000 {
		return nil, fmt.Errorf("PV_AUDIT_LIST_LIMIT: значение %d вне допустимого диапазона 1-1000", cfg.AuditListLimit)
	}

	// --- Медиа ---

	// PV_MEDIA_BACKEND — бэкенд хранения (по умолчанию local)
	cfg.MediaBackend = getEnvDefault("PV_MEDIA_BACKEND", "local")
	switch cfg.MediaBackend {
	case "local":
		cfg.MediaDir = getEnvDefault("PV_MEDIA_DIR", "./data/media")
		cfg.MediaPublicURL = strings.TrimRight(getEnvDefault("PV_MEDIA_PUBLIC_URL", "/media"), "/")
	case "s3":
		cfg.S3Bucket, err = getEnvRequired("PV_S3_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.S3Endpoint = getEnvDefault("PV_S3_ENDPOINT", "")
		cfg.S3Region = getEnvDefault("PV_S3_REGION", "us-east-1")
		cfg.S3AccessKey = getEnvDefault("PV_S3_ACCESS_KEY", "")
		cfg.S3SecretKey = getEnvDefault("PV_S3_SECRET_KEY", "")
		cfg.MediaPublicURL, err = getEnvRequired("PV_MEDIA_PUBLIC_URL")
		if err != nil {
			return nil, err
		}
		cfg.MediaPublicURL = strings.TrimRight(cfg.MediaPublicURL, "/")
	default:
		return nil, fmt.Errorf("PV_MEDIA_BACKEND: недопустимое значение %q, допустимые: local, s3", cfg.MediaBackend)
	}

	// PV_UPLOAD_MAX_BYTES — максимальный размер загрузки (по умолчанию 10 MiB)
	maxBytes, err := getEnvInt("PV_UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("PV_UPLOAD_MAX_BYTES: %w", err)
	}
	if maxBytes < 1 {
		return nil, fmt.Errorf("PV_UPLOAD_MAX_BYTES: значение %d должно быть положительным", maxBytes)
	}
	cfg.UploadMaxBytes = int64(maxBytes)

	// --- Bootstrap администратора ---

	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(getEnvDefault("PV_ADMIN_EMAIL", "")))
	cfg.AdminPassword = getEnvDefault("PV_ADMIN_PASSWORD", "")
	cfg.AdminName = getEnvDefault("PV_ADMIN_NAME", "Admin")
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		return nil, fmt.Errorf("PV_ADMIN_PASSWORD: обязателен, если задан PV_ADMIN_EMAIL")
	}

	// --- Мониторинг ---

	// PV_DEPHEALTH_GROUP — группа topologymetrics (по умолчанию promovault)
	cfg.DephealthGroup = getEnvDefault("PV_DEPHEALTH_GROUP", "promovault")

	// PV_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PV_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PV_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// PV_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PV_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PV_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
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

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
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
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
