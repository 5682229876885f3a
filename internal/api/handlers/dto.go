// dto.go — типы запросов и ответов API и маппинг доменных моделей.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/service"
)

// --- Запросы ---

// loginRequest — тело POST /auth/login и POST /auth/register.
// Email не проверяется на формат: в журнал попадает любая непустая строка.
type loginRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// adminLoginRequest — тело POST /admin/auth/login.
type adminLoginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

// categoryRequest — тело создания и изменения категории.
type categoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// subcategoryRequest — тело создания и изменения подкатегории.
type subcategoryRequest struct {
	Name      *string `json:"name,omitempty"`
	SortOrder *int    `json:"sortOrder,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

// itemRequest — тело создания и изменения флаера.
type itemRequest struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	ImageURL      *string `json:"imageUrl,omitempty"`
	Active        *bool   `json:"active,omitempty"`
	SubcategoryID *string `json:"subcategoryId,omitempty"`
}

// createRequestBody — тело POST /items/{id}/request.
type createRequestBody struct {
	Message *string `json:"message,omitempty"`
}

// statusRequest — тело PATCH /requests/{id}.
type statusRequest struct {
	Status string `json:"status"`
}

// settingsRequest — тело PATCH /admin/settings.
type settingsRequest struct {
	GalleryPassword string `json:"galleryPassword"`
}

// --- Ответы ---

// visitorResponse — посетитель галереи.
type visitorResponse struct {
	ID        string              `json:"id"`
	Email     openapi_types.Email `json:"email"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Name      string              `json:"name"`
	CreatedAt time.Time           `json:"createdAt"`
}

// adminResponse — администратор.
type adminResponse struct {
	ID    string              `json:"id"`
	Email openapi_types.Email `json:"email"`
	Name  string              `json:"name"`
}

// subcategoryResponse — подкатегория.
type subcategoryResponse struct {
	ID         string `json:"id"`
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	SortOrder  int    `json:"sortOrder"`
	Active     bool   `json:"active"`
	ItemCount  int    `json:"itemCount"`
}

// categoryResponse — категория с подкатегориями.
type categoryResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Slug          string                `json:"slug"`
	Description   *string               `json:"description"`
	SortOrder     int                   `json:"sortOrder"`
	Active        bool                  `json:"active"`
	Subcategories []subcategoryResponse `json:"subcategories"`
}

// itemResponse — флаер с проекцией категории и счётчиками.
type itemResponse struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	ImageURL        string    `json:"imageUrl"`
	Active          bool      `json:"active"`
	SubcategoryID   string    `json:"subcategoryId"`
	SubcategoryName string    `json:"subcategoryName,omitempty"`
	CategoryID      string    `json:"categoryId,omitempty"`
	CategoryName    string    `json:"categoryName,omitempty"`
	ViewCount       int       `json:"viewCount"`
	RequestCount    int       `json:"requestCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// requestResponse — заявка посетителя.
type requestResponse struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"itemId"`
	VisitorID    string    `json:"visitorId"`
	Message      *string   `json:"message"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ItemCode     string    `json:"itemCode,omitempty"`
	ItemTitle    string    `json:"itemTitle,omitempty"`
	VisitorEmail string    `json:"visitorEmail,omitempty"`
	VisitorName  string    `json:"visitorName,omitempty"`
}

// loginLogResponse — запись журнала входов.
type loginLogResponse struct {
	ID        string    `json:"id"`
	VisitorID *string   `json:"visitorId"`
	Email     string    `json:"email"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Bot       bool      `json:"bot"`
	Mobile    bool      `json:"mobile"`
	CreatedAt time.Time `json:"createdAt"`
}

// settingsResponse — настройки галереи.
type settingsResponse struct {
	GalleryPassword    string    `json:"galleryPassword"`
	NextSequenceNumber int       `json:"nextSequenceNumber"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// statsResponse — сводка панели администратора.
type statsResponse struct {
	TotalItems        int               `json:"totalItems"`
	TotalViews        int               `json:"totalViews"`
	TotalRequests     int               `json:"totalRequests"`
	PendingRequests   int               `json:"pendingRequests"`
	CompletedRequests int               `json:"completedRequests"`
	TotalVisitors     int               `json:"totalVisitors"`
	TopItems          []itemResponse    `json:"topItems"`
	RecentRequests    []requestResponse `json:"recentRequests"`
}

// uploadResponse — результат загрузки изображения.
type uploadResponse struct {
	URL string `json:"url"`
}

// --- Маппинг ---

func mapVisitor(v *model.Visitor) visitorResponse {
	return visitorResponse{
		ID:        v.ID,
		Email:     openapi_types.Email(v.Email),
		FirstName: v.FirstName,
		LastName:  v.LastName,
		Name:      v.DisplayName(),
		CreatedAt: v.CreatedAt,
	}
}

func mapAdmin(a *model.Admin) adminResponse {
	return adminResponse{
		ID:    a.ID,
		Email: openapi_types.Email(a.Email),
		Name:  a.Name,
	}
}

func mapSubcategory(s *model.Subcategory) subcategoryResponse {
	return subcategoryResponse{
		ID:         s.ID,
		CategoryID: s.CategoryID,
		Name:       s.Name,
		Slug:       s.Slug,
		SortOrder:  s.SortOrder,
		Active:     s.Active,
		ItemCount:  s.ItemCount,
	}
}

func mapCategory(c *model.Category) categoryResponse {
	subs := make([]subcategoryResponse, len(c.Subcategories))
	for i, s := range c.Subcategories {
		subs[i] = mapSubcategory(s)
	}
	return categoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		Description:   c.Description,
		SortOrder:     c.SortOrder,
		Active:        c.Active,
		Subcategories: subs,
	}
}

func mapCategories(cats []*model.Category) []categoryResponse {
	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = mapCategory(c)
	}
	return out
}

func mapItem(it *model.Item) itemResponse {
	return itemResponse{
		ID:              it.ID,
		Code:            it.Code,
		Title:           it.Title,
		Description:     it.Description,
		ImageURL:        it.ImageURL,
		Active:          it.Active,
		SubcategoryID:   it.SubcategoryID,
		SubcategoryName: it.SubcategoryName,
		CategoryID:      it.CategoryID,
		CategoryName:    it.CategoryName,
		ViewCount:       it.ViewCount,
		RequestCount:    it.RequestCount,
		CreatedAt:       it.CreatedAt,
	}
}

func mapItems(items []*model.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = mapItem(it)
	}
	return out
}

func mapRequest(r *model.Request) requestResponse {
	return requestResponse{
		ID:           r.ID,
		ItemID:       r.ItemID,
		VisitorID:    r.VisitorID,
		Message:      r.Message,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ItemCode:     r.ItemCode,
		ItemTitle:    r.ItemTitle,
		VisitorEmail: r.VisitorEmail,
		VisitorName:  r.VisitorName,
	}
}

func mapRequests(reqs []*model.Request) []requestResponse {
	out := make([]requestResponse, len(reqs))
	for i, r := range reqs {
		out[i] = mapRequest(r)
	}
	return out
}

func mapLoginLog(e *service.AuditEntry) loginLogResponse {
	return loginLogResponse{
		ID:        e.ID,
		VisitorID: e.VisitorID,
		Email:     e.Email,
		Success:   e.Success,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Browser:   e.Browser,
		OS:        e.OS,
		Bot:       e.Bot,
		Mobile:    e.Mobile,
		CreatedAt: e.CreatedAt,
	}
}

func mapSettings(s *model.GallerySettings) settingsResponse {
	return settingsResponse{
		GalleryPassword:    s.GalleryPassword,
		NextSequenceNumber: s.NextSequenceNumber,
		UpdatedAt:          s.UpdatedAt,
	}
}

func mapStats(s *model.Stats) statsResponse {
	return statsResponse{
		TotalItems:        s.TotalItems,
		TotalViews:        s.TotalViews,
		TotalRequests:     s.TotalRequests,
		PendingRequests:   s.PendingRequests,
		CompletedRequests: s.CompletedRequests,
		TotalVisitors:     s.TotalVisitors,
		TopItems:          mapItems(s.TopItems),
		RecentRequests:    mapRequests(s.RecentRequests),
	}
}
