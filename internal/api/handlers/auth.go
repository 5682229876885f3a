// auth.go — обработчики входа посетителей и администраторов.
// POST /auth/login, /auth/register — вход посетителя по общему паролю галереи.
// POST /admin/auth/login — вход администратора.
// GET .../me, POST .../logout — текущая сессия и выход.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/promovault/internal/api/errors"
	"github.com/bigkaa/promovault/internal/api/middleware"
	"github.com/bigkaa/promovault/internal/service"
	"github.com/bigkaa/promovault/internal/session"
)

// VisitorLogin — POST /auth/login.
// Каждая попытка с заполненными email и паролем попадает в журнал входов.
func (h *APIHandler) VisitorLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.visitorSignIn(w, r, req)
}

// VisitorRegister — POST /auth/register.
// То же, что вход, но имя и фамилия обязательны.
func (h *APIHandler) VisitorRegister(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FirstName == nil || strings.TrimSpace(*req.FirstName) == "" ||
		req.LastName == nil || strings.TrimSpace(*req.LastName) == "" {
		apierrors.ValidationError(w, "Имя и фамилия обязательны")
		return
	}
	first := strings.TrimSpace(*req.FirstName)
	last := strings.TrimSpace(*req.LastName)
	req.FirstName, req.LastName = &first, &last
	h.visitorSignIn(w, r, req)
}

func (h *APIHandler) visitorSignIn(w http.ResponseWriter, r *http.Request, req loginRequest) {
	visitor, err := h.auth.AuthenticateVisitor(r.Context(), service.VisitorLogin{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IP:        middleware.ClientIP(r),
		UserAgent: middleware.UserAgent(r),
	})
	if err != nil {
		h.writeServiceError(w, err, "вход посетителя")
		return
	}

	err = h.sessions.Start(w, session.DomainVisitor, session.Identity{
		ID:    visitor.ID,
		Email: visitor.Email,
		Name:  visitor.DisplayName(),
	})
	if err != nil {
		h.logger.Error("Ошибка выпуска сессии посетителя",
			slog.String("visitor_id", visitor.ID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка создания сессии")
		return
	}

	writeJSON(w, http.StatusOK, mapVisitor(visitor))
}

// VisitorMe — GET /auth/me.
// Доступ: сессия посетителя.
func (h *APIHandler) VisitorMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.VisitorFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется вход в галерею")
		return
	}

	visitor, err := h.auth.GetVisitor(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.sessions.Destroy(w, session.DomainVisitor)
			apierrors.Unauthorized(w, "Посетитель не найден, войдите заново")
			return
		}
		h.writeServiceError(w, err, "получение посетителя")
		return
	}

	writeJSON(w, http.StatusOK, mapVisitor(visitor))
}

// VisitorLogout — POST /auth/logout.
func (h *APIHandler) VisitorLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, session.DomainVisitor)
	w.WriteHeader(http.StatusNoContent)
}

// AdminLogin — POST /admin/auth/login.
// Неизвестный email и неверный пароль дают одинаковый ответ 401.
func (h *APIHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	admin, err := h.auth.AuthenticateAdmin(r.Context(), string(req.Email), req.Password)
	if err != nil {
		h.writeServiceError(w, err, "вход администратора")
		return
	}

	err = h.sessions.Start(w, session.DomainAdmin, session.Identity{
		ID:    admin.ID,
		Email: admin.Email,
		Name:  admin.Name,
	})
	if err != nil {
		h.logger.Error("Ошибка выпуска сессии администратора",
			slog.String("admin_id", admin.ID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка создания сессии")
		return
	}

	writeJSON(w, http.StatusOK, mapAdmin(admin))
}

// AdminMe — GET /admin/auth/me.
// Доступ: сессия администратора.
func (h *APIHandler) AdminMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AdminFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется вход администратора")
		return
	}

	admin, err := h.auth.GetAdmin(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.sessions.Destroy(w, session.DomainAdmin)
			apierrors.Unauthorized(w, "Администратор не найден, войдите заново")
			return
		}
		h.writeServiceError(w, err, "получение администратора")
		return
	}

	writeJSON(w, http.StatusOK, mapAdmin(admin))
}

// AdminLogout — POST /admin/auth/logout.
func (h *APIHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, session.DomainAdmin)
	w.WriteHeader(http.StatusNoContent)
}
