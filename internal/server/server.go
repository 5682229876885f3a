// Пакет server — HTTP-сервер PromoVault с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/bigkaa/promovault/internal/api/handlers"
	"github.com/bigkaa/promovault/internal/api/middleware"
	"github.com/bigkaa/promovault/internal/config"
)

// Server — HTTP-сервер PromoVault.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// Options — дополнительные обработчики, не входящие в APIHandler.
type Options struct {
	// OpenAPI — обработчик /openapi.json (nil — маршрут не регистрируется)
	OpenAPI http.Handler
	// MediaDir — директория локального хранилища для /media/* ("" — не раздавать)
	MediaDir string
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, sessions *middleware.SessionAuth, opts Options) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, h, sessions, opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
// Группы маршрутов защищаются middleware сессий своего домена.
func NewRouter(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, sessions *middleware.SessionAuth, opts Options) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// Служебные endpoints, опрашиваются Kubernetes и Prometheus напрямую
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)
	if opts.OpenAPI != nil {
		router.Method(http.MethodGet, "/openapi.json", opts.OpenAPI)
	}
	if opts.MediaDir != "" {
		router.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaDir))))
	}

	// Публичные маршруты
	router.Post("/auth/login", h.VisitorLogin)
	router.Post("/auth/register", h.VisitorRegister)
	router.Post("/admin/auth/login", h.AdminLogin)
	router.Get("/categories", h.ListPublicCategories)
	router.Get("/catalog/items", h.ListPublicItems)
	router.With(sessions.OptionalVisitor()).Post("/items/{id}/view", h.RecordItemView)

	// Сессия посетителя
	router.Group(func(r chi.Router) {
		r.Use(sessions.RequireVisitor())
		r.Get("/auth/me", h.VisitorMe)
		r.Post("/auth/logout", h.VisitorLogout)
		r.Post("/items/{id}/request", h.CreateItemRequest)
	})

	// Сессия администратора
	router.Group(func(r chi.Router) {
		r.Use(sessions.RequireAdmin())
		r.Get("/admin/auth/me", h.AdminMe)
		r.Post("/admin/auth/logout", h.AdminLogout)

		r.Get("/admin/categories", h.ListCategories)
		r.Post("/admin/categories", h.CreateCategory)
		r.Patch("/admin/categories/{id}", h.UpdateCategory)
		r.Delete("/admin/categories/{id}", h.DeleteCategory)
		r.Post("/admin/categories/{id}/subcategories", h.CreateSubcategory)
		r.Patch("/admin/categories/{id}/subcategories/{subId}", h.UpdateSubcategory)
		r.Delete("/admin/categories/{id}/subcategories/{subId}", h.DeleteSubcategory)

		r.Get("/admin/items", h.ListItems)
		r.Post("/admin/items", h.CreateItem)
		r.Patch("/admin/items/{id}", h.UpdateItem)
		r.Delete("/admin/items/{id}", h.DeleteItem)

		r.Get("/admin/requests", h.ListRequests)
		r.Patch("/requests/{id}", h.UpdateRequestStatus)

		r.Get("/admin/settings", h.GetSettings)
		r.Patch("/admin/settings", h.UpdateSettings)
		r.Get("/admin/logs", h.ListLoginLogs)
		r.Get("/admin/users", h.ListVisitors)
		r.Get("/admin/stats", h.GetStats)
		r.Post("/admin/uploads", h.UploadMedia)
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
