// Пакет model — доменные модели PromoVault.
// Модели соответствуют таблицам PostgreSQL и не зависят от транспорта.
package model

import (
	"time"

	"github.com/bigkaa/promovault/internal/workflow"
)

// SettingsID — идентификатор единственной строки настроек галереи.
const SettingsID = "settings"

// Visitor — посетитель галереи, зарегистрированный по общему паролю.
// Хранится в таблице visitors.
type Visitor struct {
	// ID — UUID записи
	ID string
	// Email — email в нижнем регистре (уникальный)
	Email string
	// FirstName — имя
	FirstName string
	// LastName — фамилия
	LastName string
	// CreatedAt — время первой успешной аутентификации
	CreatedAt time.Time
}

// DisplayName возвращает "Имя Фамилия" или email, если имя не задано.
func (v *Visitor) DisplayName() string {
	switch {
	case v.FirstName != "" && v.LastName != "":
		return v.FirstName + " " + v.LastName
	case v.FirstName != "":
		return v.FirstName
	case v.LastName != "":
		return v.LastName
	default:
		return v.Email
	}
}

// Admin — администратор галереи.
// Хранится в таблице admins, создаётся вне API (bootstrap).
type Admin struct {
	// ID — UUID записи
	ID string
	// Email — email в нижнем регистре (уникальный)
	Email string
	// PasswordHash — хэш пароля (sha256 hex или bcrypt)
	PasswordHash string
	// Name — отображаемое имя
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// GallerySettings — настройки галереи (единственная строка с id = "settings").
type GallerySettings struct {
	ID string
	// GalleryPassword — общий пароль посетителей (хранится открытым текстом)
	GalleryPassword string
	// NextSequenceNumber — следующий номер для кода флаера, начинается с 1
	NextSequenceNumber int
	UpdatedAt          time.Time
}

// Category — категория каталога.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description *string
	SortOrder   int
	Active      bool
	CreatedAt   time.Time
	// Subcategories — подкатегории (заполняется при чтении дерева)
	Subcategories []*Subcategory
}

// Subcategory — подкатегория каталога. Принадлежит ровно одной категории.
type Subcategory struct {
	ID         string
	CategoryID string
	Name       string
	Slug       string
	SortOrder  int
	Active     bool
	CreatedAt  time.Time
	// ItemCount — количество флаеров (заполняется при чтении дерева)
	ItemCount int
}

// Item — флаер каталога.
// Code присваивается один раз при создании и больше не меняется.
type Item struct {
	ID            string
	Code          string
	Title         string
	Description   *string
	ImageURL      string
	Active        bool
	SubcategoryID string
	CreatedAt     time.Time

	// Поля проекции (заполняются при чтении списков)
	SubcategoryName string
	CategoryID      string
	CategoryName    string
	ViewCount       int
	RequestCount    int
}

// ItemFilter — фильтр публичного списка флаеров.
// SubcategoryID имеет приоритет над CategoryID.
type ItemFilter struct {
	CategoryID    *string
	SubcategoryID *string
	// ActiveOnly — только активные флаеры
	ActiveOnly bool
}

// ItemPatch — изменяемые поля флаера. nil — поле не меняется.
type ItemPatch struct {
	Title         *string
	Description   *string
	ImageURL      *string
	Active        *bool
	SubcategoryID *string
}

// CategoryPatch — изменяемые поля категории.
type CategoryPatch struct {
	Name *string
	// Slug — вычисляется из Name сервисом каталога
	Slug        *string
	Description *string
	SortOrder   *int
	Active      *bool
}

// SubcategoryPatch — изменяемые поля подкатегории.
type SubcategoryPatch struct {
	Name *string
	// Slug — вычисляется из Name сервисом каталога
	Slug      *string
	SortOrder *int
	Active    *bool
}

// ViewEvent — факт просмотра флаера. Только добавление.
type ViewEvent struct {
	ID        string
	ItemID    string
	VisitorID *string
	CreatedAt time.Time
}

// Request — заявка посетителя на флаер.
type Request struct {
	ID        string
	ItemID    string
	VisitorID string
	Message   *string
	Status    workflow.Status
	CreatedAt time.Time
	UpdatedAt time.Time

	// Поля проекции (заполняются в списках администратора)
	ItemCode     string
	ItemTitle    string
	VisitorEmail string
	VisitorName  string
}

// LoginAttempt — запись журнала попыток входа посетителей. Только добавление.
type LoginAttempt struct {
	ID string
	// VisitorID — задан, если email соответствует посетителю
	VisitorID *string
	// Email — email в том виде, в котором был введён
	Email     string
	Success   bool
	IPAddress string
	// UserAgent — не длиннее 500 символов
	UserAgent string
	CreatedAt time.Time
}

// Stats — сводка для панели администратора.
type Stats struct {
	TotalItems        int
	TotalViews        int
	TotalRequests     int
	PendingRequests   int
	CompletedRequests int
	TotalVisitors     int
	TopItems          []*Item
	RecentRequests    []*Request
}
