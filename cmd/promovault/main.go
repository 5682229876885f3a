// Точка входа PromoVault — галерея промо-флаеров.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт хранилище медиа, сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bigkaa/promovault/internal/api/handlers"
	"github.com/bigkaa/promovault/internal/api/middleware"
	"github.com/bigkaa/promovault/internal/api/openapi"
	"github.com/bigkaa/promovault/internal/config"
	"github.com/bigkaa/promovault/internal/credential"
	"github.com/bigkaa/promovault/internal/database"
	"github.com/bigkaa/promovault/internal/media"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/server"
	"github.com/bigkaa/promovault/internal/service"
	"github.com/bigkaa/promovault/internal/session"
	"github.com/bigkaa/promovault/internal/workflow"
)

func main() {
	// 0. Локальный .env (для разработки). Отсутствие файла — не ошибка.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Ошибка чтения .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("PromoVault запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("env", cfg.Env),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories. Каждый запрос ограничен PV_STORE_TIMEOUT.
	db := repository.NewTimed(pool, cfg.StoreTimeout)
	txRunner := repository.NewTxRunner(pool, cfg.StoreTimeout)

	settingsRepo := repository.NewSettingsRepository(db)
	visitorRepo := repository.NewVisitorRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	attemptRepo := repository.NewLoginAttemptRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	subcategoryRepo := repository.NewSubcategoryRepository(db)
	itemRepo := repository.NewItemRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// 6. Services
	hasher, err := credential.ForScheme(cfg.AdminHashScheme)
	if err != nil {
		logger.Error("Ошибка выбора схемы хэширования", slog.String("error", err.Error()))
		os.Exit(1)
	}
	policy, err := workflow.PolicyByName(cfg.RequestPolicy)
	if err != nil {
		logger.Error("Ошибка выбора политики статусов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	auditLog := service.NewAuditLog(attemptRepo, cfg.AuditListLimit, logger)
	authSvc := service.NewAuthService(settingsRepo, visitorRepo, adminRepo, auditLog, txRunner, hasher, logger)
	catalogSvc := service.NewCatalogService(
		categoryRepo, subcategoryRepo, itemRepo,
		service.NewSequenceAllocator(txRunner, logger),
		service.NewCatalogCache(cfg.CatalogCacheSize, cfg.CatalogCacheTTL),
		cfg.CodePrefix,
		logger,
	)
	requestSvc := service.NewRequestService(requestRepo, txRunner, policy, logger)
	settingsSvc := service.NewSettingsService(settingsRepo, logger)
	statsSvc := service.NewStatsService(statsRepo, itemRepo, requestRepo, logger)

	// 6.1 Bootstrap администратора из переменных окружения
	if cfg.AdminEmail != "" {
		admin, adminErr := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
		if adminErr != nil {
			logger.Error("Ошибка создания администратора", slog.String("error", adminErr.Error()))
			os.Exit(1)
		}
		logger.Info("Администратор готов",
			slog.String("email", admin.Email),
			slog.String("hash_scheme", hasher.Scheme()),
		)
	}

	// 7. Сессии (AES-GCM, отдельные ключи для посетителей и администраторов)
	authority, err := session.NewAuthority(session.Options{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
	})
	if err != nil {
		logger.Error("Ошибка инициализации сессий", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Хранилище изображений
	var store media.Store
	var opts server.Options
	switch cfg.MediaBackend {
	case "s3":
		store, err = media.NewS3Store(ctx, media.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.MediaPublicURL,
		}, logger)
	default:
		var local *media.LocalStore
		local, err = media.NewLocalStore(cfg.MediaDir, cfg.MediaPublicURL, logger)
		if err == nil {
			store = local
			opts.MediaDir = local.Dir()
		}
	}
	if err != nil {
		logger.Error("Ошибка инициализации хранилища медиа",
			slog.String("backend", cfg.MediaBackend),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Хранилище медиа готово", slog.String("backend", store.Backend()))

	// 9. OpenAPI-документ (/openapi.json)
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-документа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	opts.OpenAPI, err = openapi.Handler(doc)
	if err != nil {
		logger.Error("Ошибка сериализации OpenAPI-документа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Readiness checker и API handler
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		catalogSvc,
		requestSvc,
		settingsSvc,
		statsSvc,
		auditLog,
		store,
		authority,
		cfg.UploadMaxBytes,
		logger,
	)

	// 11. topologymetrics — мониторинг PostgreSQL
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "promovault",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 12. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, middleware.NewSessionAuth(authority), opts)
	runErr := srv.Run()

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	logger.Info("PromoVault остановлен")
}
