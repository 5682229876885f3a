// admin_catalog.go — обработчики /admin/categories и /admin/items.
// CRUD категорий, подкатегорий и флаеров. Доступ: сессия администратора.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/service"
)

// ListCategories — GET /admin/categories.
// Возвращает все категории, включая неактивные.
func (h *APIHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context(), false)
	if err != nil {
		h.writeServiceError(w, err, "получение категорий")
		return
	}
	writeJSON(w, http.StatusOK, mapCategories(cats))
}

// CreateCategory — POST /admin/categories.
func (h *APIHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var name string
	if req.Name != nil {
		name = *req.Name
	}

	c, err := h.catalog.CreateCategory(r.Context(), name, req.Description)
	if err != nil {
		h.writeServiceError(w, err, "создание категории")
		return
	}
	writeJSON(w, http.StatusCreated, mapCategory(c))
}

// UpdateCategory — PATCH /admin/categories/{id}.
func (h *APIHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.catalog.UpdateCategory(r.Context(), chi.URLParam(r, "id"), model.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Active:      req.Active,
	})
	if err != nil {
		h.writeServiceError(w, err, "изменение категории")
		return
	}
	writeJSON(w, http.StatusOK, mapCategory(c))
}

// DeleteCategory — DELETE /admin/categories/{id}.
// Подкатегории и флаеры удаляются каскадно.
func (h *APIHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "удаление категории")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSubcategory — POST /admin/categories/{id}/subcategories.
func (h *APIHandler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var name string
	if req.Name != nil {
		name = *req.Name
	}

	sub, err := h.catalog.CreateSubcategory(r.Context(), chi.URLParam(r, "id"), name)
	if err != nil {
		h.writeServiceError(w, err, "создание подкатегории")
		return
	}
	writeJSON(w, http.StatusCreated, mapSubcategory(sub))
}

// UpdateSubcategory — PATCH /admin/categories/{id}/subcategories/{subId}.
func (h *APIHandler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req subcategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.catalog.UpdateSubcategory(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subId"), model.SubcategoryPatch{
		Name:      req.Name,
		SortOrder: req.SortOrder,
		Active:    req.Active,
	})
	if err != nil {
		h.writeServiceError(w, err, "изменение подкатегории")
		return
	}
	writeJSON(w, http.StatusOK, mapSubcategory(sub))
}

// DeleteSubcategory — DELETE /admin/categories/{id}/subcategories/{subId}.
func (h *APIHandler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteSubcategory(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subId")); err != nil {
		h.writeServiceError(w, err, "удаление подкатегории")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListItems — GET /admin/items.
// Возвращает все флаеры, включая неактивные, со счётчиками.
func (h *APIHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListAllItems(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "получение флаеров")
		return
	}
	writeJSON(w, http.StatusOK, mapItems(items))
}

// CreateItem — POST /admin/items.
// Код флаера выделяется сервисом и в запросе не передаётся.
func (h *APIHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.NewItem{
		Description: req.Description,
		Active:      req.Active,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.ImageURL != nil {
		in.ImageURL = *req.ImageURL
	}
	if req.SubcategoryID != nil {
		in.SubcategoryID = *req.SubcategoryID
	}

	item, err := h.catalog.CreateItem(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "создание флаера")
		return
	}
	writeJSON(w, http.StatusCreated, mapItem(item))
}

// UpdateItem — PATCH /admin/items/{id}.
func (h *APIHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.catalog.UpdateItem(r.Context(), chi.URLParam(r, "id"), model.ItemPatch{
		Title:         req.Title,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Active:        req.Active,
		SubcategoryID: req.SubcategoryID,
	})
	if err != nil {
		h.writeServiceError(w, err, "изменение флаера")
		return
	}
	writeJSON(w, http.StatusOK, mapItem(item))
}

// DeleteItem — DELETE /admin/items/{id}.
func (h *APIHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "удаление флаера")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
