// handler.go — основной обработчик API PromoVault.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/promovault/internal/api/errors"
	"github.com/bigkaa/promovault/internal/media"
	"github.com/bigkaa/promovault/internal/service"
	"github.com/bigkaa/promovault/internal/session"
)

// APIHandler — основной обработчик API PromoVault.
type APIHandler struct {
	health         *HealthHandler
	auth           *service.AuthService
	catalog        *service.CatalogService
	requests       *service.RequestService
	settings       *service.SettingsService
	stats          *service.StatsService
	audit          *service.AuditLog
	media          media.Store
	sessions       *session.Authority
	uploadMaxBytes int64
	logger         *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// uploadMaxBytes — предельный размер загружаемого изображения.
func NewAPIHandler(
	health *HealthHandler,
	auth *service.AuthService,
	catalog *service.CatalogService,
	requests *service.RequestService,
	settings *service.SettingsService,
	stats *service.StatsService,
	audit *service.AuditLog,
	store media.Store,
	sessions *session.Authority,
	uploadMaxBytes int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:         health,
		auth:           auth,
		catalog:        catalog,
		requests:       requests,
		settings:       settings,
		stats:          stats,
		audit:          audit,
		media:          store,
		sessions:       sessions,
		uploadMaxBytes: uploadMaxBytes,
		logger:         logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — проверка liveness (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — проверка readiness (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Неизвестные ошибки логируются полностью, клиент получает общее сообщение.
// action — описание операции для лога и ответа 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		h.logger.Warn("Хранилище не ответило вовремя",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		apierrors.Unavailable(w, "Сервис временно недоступен, повторите запрос")
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка: "+action)
	}
}
