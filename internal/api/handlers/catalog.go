// catalog.go — публичные обработчики каталога.
// GET /categories, GET /catalog/items, POST /items/{id}/view, POST /items/{id}/request.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/promovault/internal/api/errors"
	"github.com/bigkaa/promovault/internal/api/middleware"
)

// ListPublicCategories — GET /categories.
// Возвращает дерево активных категорий с активными подкатегориями.
func (h *APIHandler) ListPublicCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context(), true)
	if err != nil {
		h.writeServiceError(w, err, "получение категорий")
		return
	}
	writeJSON(w, http.StatusOK, mapCategories(cats))
}

// ListPublicItems — GET /catalog/items?categoryId=&subcategoryId=.
// Фильтр по подкатегории имеет приоритет над фильтром по категории.
func (h *APIHandler) ListPublicItems(w http.ResponseWriter, r *http.Request) {
	var categoryID, subcategoryID *string
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "categoryId", query, &categoryID); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр categoryId: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "subcategoryId", query, &subcategoryID); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр subcategoryId: "+err.Error())
		return
	}

	items, err := h.catalog.ListActiveItems(r.Context(), categoryID, subcategoryID)
	if err != nil {
		h.writeServiceError(w, err, "получение флаеров")
		return
	}
	writeJSON(w, http.StatusOK, mapItems(items))
}

// RecordItemView — POST /items/{id}/view.
// Сессия посетителя необязательна: анонимный просмотр тоже учитывается.
func (h *APIHandler) RecordItemView(w http.ResponseWriter, r *http.Request) {
	var visitorID *string
	if claims := middleware.VisitorFromContext(r.Context()); claims != nil {
		id := claims.Subject
		visitorID = &id
	}

	if err := h.catalog.RecordView(r.Context(), chi.URLParam(r, "id"), visitorID); err != nil {
		h.writeServiceError(w, err, "учёт просмотра")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateItemRequest — POST /items/{id}/request.
// Доступ: сессия посетителя.
func (h *APIHandler) CreateItemRequest(w http.ResponseWriter, r *http.Request) {
	claims := middleware.VisitorFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется вход в галерею")
		return
	}

	// Тело необязательно: пустой запрос означает заявку без сообщения
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	req, err := h.requests.CreateRequest(r.Context(), chi.URLParam(r, "id"), claims.Subject, body.Message)
	if err != nil {
		h.writeServiceError(w, err, "создание заявки")
		return
	}
	writeJSON(w, http.StatusCreated, mapRequest(req))
}
