// admin.go — обработчики панели администратора.
// Заявки, настройки галереи, журнал входов, посетители, сводка.
// Доступ: сессия администратора.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/promovault/internal/api/errors"
)

// ListRequests — GET /admin/requests.
// Заявки с кодом флаера и данными посетителя, новые первыми.
func (h *APIHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requests.ListRequests(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "получение заявок")
		return
	}
	writeJSON(w, http.StatusOK, mapRequests(reqs))
}

// UpdateRequestStatus — PATCH /requests/{id}.
// Неизвестный статус отклоняется с 400, сохранённый статус не меняется.
func (h *APIHandler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.requests.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeServiceError(w, err, "изменение статуса заявки")
		return
	}
	writeJSON(w, http.StatusOK, mapRequest(updated))
}

// GetSettings — GET /admin/settings.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "чтение настроек")
		return
	}
	writeJSON(w, http.StatusOK, mapSettings(st))
}

// UpdateSettings — PATCH /admin/settings.
// Меняет общий пароль галереи; действует на следующие попытки входа.
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st, err := h.settings.UpdateGalleryPassword(r.Context(), req.GalleryPassword)
	if err != nil {
		h.writeServiceError(w, err, "изменение настроек")
		return
	}
	writeJSON(w, http.StatusOK, mapSettings(st))
}

// ListLoginLogs — GET /admin/logs?limit=.
// Без limit возвращается лимит по умолчанию, больше 1000 не отдаётся.
func (h *APIHandler) ListLoginLogs(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр limit: "+err.Error())
		return
	}
	l := 0
	if limit != nil {
		l = *limit
	}

	entries, err := h.audit.ListRecent(r.Context(), l)
	if err != nil {
		h.writeServiceError(w, err, "чтение журнала входов")
		return
	}

	out := make([]loginLogResponse, len(entries))
	for i, e := range entries {
		out[i] = mapLoginLog(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListVisitors — GET /admin/users.
func (h *APIHandler) ListVisitors(w http.ResponseWriter, r *http.Request) {
	visitors, err := h.auth.ListVisitors(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "получение посетителей")
		return
	}

	out := make([]visitorResponse, len(visitors))
	for i, v := range visitors {
		out[i] = mapVisitor(v)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetStats — GET /admin/stats.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "получение сводки")
		return
	}
	writeJSON(w, http.StatusOK, mapStats(st))
}
