// catalog.go — сервис каталога: категории, подкатегории, флаеры и просмотры.
// Коды флаеров выделяются SequenceAllocator в транзакции создания флаера.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
)

// Ключ кэша публичного дерева категорий.
const publicTreeKey = "tree:active"

// NewItem — данные для создания флаера.
type NewItem struct {
	SubcategoryID string
	Title         string
	Description   *string
	ImageURL      string
	// Active — nil означает true
	Active *bool
}

// CatalogService — сервис каталога.
type CatalogService struct {
	categories    repository.CategoryRepository
	subcategories repository.SubcategoryRepository
	items         repository.ItemRepository
	itemsIn       func(tx repository.DBTX) repository.ItemRepository
	allocator     *SequenceAllocator
	cache         *CatalogCache
	codePrefix    string
	logger        *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(
	categories repository.CategoryRepository,
	subcategories repository.SubcategoryRepository,
	items repository.ItemRepository,
	allocator *SequenceAllocator,
	cache *CatalogCache,
	codePrefix string,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		categories:    categories,
		subcategories: subcategories,
		items:         items,
		itemsIn:       repository.NewItemRepository,
		allocator:     allocator,
		cache:         cache,
		codePrefix:    codePrefix,
		logger:        logger.With(slog.String("component", "catalog_service")),
	}
}

// --- Категории ---

// ListCategories возвращает дерево категорий.
// activeOnly — публичное дерево (кэшируется), иначе полное дерево для администратора.
func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]*model.Category, error) {
	if activeOnly {
		if tree, ok := s.cache.Get(publicTreeKey); ok {
			return tree, nil
		}
	}

	tree, err := s.categories.List(ctx, activeOnly)
	if err != nil {
		return nil, translate(err, "список категорий")
	}
	if tree == nil {
		tree = []*model.Category{}
	}

	if activeOnly {
		s.cache.Set(publicTreeKey, tree)
	}
	return tree, nil
}

// CreateCategory создаёт категорию в конце списка.
func (s *CatalogService) CreateCategory(ctx context.Context, name string, description *string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	slug, err := slugFor(name, "категории")
	if err != nil {
		return nil, err
	}

	c := &model.Category{Name: name, Slug: slug, Description: trimOptional(description)}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, translate(err, "создание категории")
	}
	s.cache.Invalidate()

	s.logger.Info("Категория создана",
		slog.String("category_id", c.ID),
		slog.String("slug", c.Slug),
	)
	return c, nil
}

// UpdateCategory применяет патч к категории. Смена имени пересчитывает slug.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	if err := requireID(id, "категория"); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		slug, err := slugFor(name, "категории")
		if err != nil {
			return nil, err
		}
		patch.Name, patch.Slug = &name, &slug
	}
	patch.Description = trimOptional(patch.Description)

	c, err := s.categories.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "категория "+id)
	}
	s.cache.Invalidate()
	return c, nil
}

// DeleteCategory удаляет категорию вместе с подкатегориями и флаерами.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := requireID(id, "категория"); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return translate(err, "категория "+id)
	}
	s.cache.Invalidate()

	s.logger.Info("Категория удалена", slog.String("category_id", id))
	return nil
}

// --- Подкатегории ---

// CreateSubcategory создаёт подкатегорию в конце списка категории.
func (s *CatalogService) CreateSubcategory(ctx context.Context, categoryID, name string) (*model.Subcategory, error) {
	if err := requireID(categoryID, "категория"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	slug, err := slugFor(name, "подкатегории")
	if err != nil {
		return nil, err
	}

	sub := &model.Subcategory{CategoryID: categoryID, Name: name, Slug: slug}
	if err := s.subcategories.Create(ctx, sub); err != nil {
		return nil, translate(err, "категория "+categoryID)
	}
	s.cache.Invalidate()
	return sub, nil
}

// UpdateSubcategory применяет патч к подкатегории.
func (s *CatalogService) UpdateSubcategory(ctx context.Context, categoryID, id string, patch model.SubcategoryPatch) (*model.Subcategory, error) {
	if err := requireID(categoryID, "категория"); err != nil {
		return nil, err
	}
	if err := requireID(id, "подкатегория"); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		slug, err := slugFor(name, "подкатегории")
		if err != nil {
			return nil, err
		}
		patch.Name, patch.Slug = &name, &slug
	}

	sub, err := s.subcategories.Update(ctx, categoryID, id, patch)
	if err != nil {
		return nil, translate(err, "подкатегория "+id)
	}
	s.cache.Invalidate()
	return sub, nil
}

// DeleteSubcategory удаляет подкатегорию вместе с флаерами.
func (s *CatalogService) DeleteSubcategory(ctx context.Context, categoryID, id string) error {
	if err := requireID(categoryID, "категория"); err != nil {
		return err
	}
	if err := requireID(id, "подкатегория"); err != nil {
		return err
	}
	if err := s.subcategories.Delete(ctx, categoryID, id); err != nil {
		return translate(err, "подкатегория "+id)
	}
	s.cache.Invalidate()
	return nil
}

// --- Флаеры ---

// ListActiveItems возвращает активные флаеры для посетителей.
// Фильтр по подкатегории имеет приоритет над фильтром по категории.
func (s *CatalogService) ListActiveItems(ctx context.Context, categoryID, subcategoryID *string) ([]*model.Item, error) {
	filter := model.ItemFilter{ActiveOnly: true}
	switch {
	case subcategoryID != nil && *subcategoryID != "":
		if err := requireID(*subcategoryID, "подкатегория"); err != nil {
			return []*model.Item{}, nil
		}
		filter.SubcategoryID = subcategoryID
	case categoryID != nil && *categoryID != "":
		if err := requireID(*categoryID, "категория"); err != nil {
			return []*model.Item{}, nil
		}
		filter.CategoryID = categoryID
	}

	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, translate(err, "список флаеров")
	}
	return items, nil
}

// ListAllItems возвращает все флаеры для администратора.
func (s *CatalogService) ListAllItems(ctx context.Context) ([]*model.Item, error) {
	items, err := s.items.List(ctx, model.ItemFilter{})
	if err != nil {
		return nil, translate(err, "список флаеров")
	}
	return items, nil
}

// GetItem возвращает флаер по ID.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	if err := requireID(id, "флаер"); err != nil {
		return nil, err
	}
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "флаер "+id)
	}
	return it, nil
}

// CreateItem создаёт флаер с новым кодом. Код выделяется и флаер
// сохраняется в одной транзакции.
func (s *CatalogService) CreateItem(ctx context.Context, in NewItem) (*model.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: название флаера обязательно", ErrValidation)
	case in.ImageURL == "":
		return nil, fmt.Errorf("%w: изображение флаера обязательно", ErrValidation)
	case in.SubcategoryID == "":
		return nil, fmt.Errorf("%w: подкатегория обязательна", ErrValidation)
	}
	if err := requireID(in.SubcategoryID, "подкатегория"); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	item := &model.Item{
		Title:         in.Title,
		Description:   trimOptional(in.Description),
		ImageURL:      in.ImageURL,
		Active:        active,
		SubcategoryID: in.SubcategoryID,
	}

	code, err := s.allocator.Allocate(ctx, s.codePrefix, func(ctx context.Context, tx repository.DBTX, code string) error {
		item.Code = code
		return s.itemsIn(tx).Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	s.logger.Info("Флаер создан",
		slog.String("item_id", item.ID),
		slog.String("code", code),
	)

	// Проекция (имена категории, счётчики) читается после фиксации
	created, err := s.items.GetByID(ctx, item.ID)
	if err != nil {
		return item, nil
	}
	return created, nil
}

// UpdateItem применяет патч к флаеру. Код не меняется.
func (s *CatalogService) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	if err := requireID(id, "флаер"); err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: название флаера не может быть пустым", ErrValidation)
		}
		patch.Title = &title
	}
	if patch.ImageURL != nil {
		url := strings.TrimSpace(*patch.ImageURL)
		if url == "" {
			return nil, fmt.Errorf("%w: изображение флаера не может быть пустым", ErrValidation)
		}
		patch.ImageURL = &url
	}
	if patch.SubcategoryID != nil {
		if err := requireID(*patch.SubcategoryID, "подкатегория"); err != nil {
			return nil, err
		}
	}
	patch.Description = trimOptional(patch.Description)

	it, err := s.items.Update(ctx, id, patch)
	if err != nil {
		return nil, translate(err, "флаер "+id)
	}
	s.cache.Invalidate()
	return it, nil
}

// DeleteItem удаляет флаер.
func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	if err := requireID(id, "флаер"); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return translate(err, "флаер "+id)
	}
	s.cache.Invalidate()
	return nil
}

// RecordView фиксирует просмотр флаера. visitorID — nil для анонимного просмотра.
func (s *CatalogService) RecordView(ctx context.Context, itemID string, visitorID *string) error {
	if err := requireID(itemID, "флаер"); err != nil {
		return err
	}
	ev := &model.ViewEvent{ItemID: itemID, VisitorID: visitorID}
	if err := s.items.RecordView(ctx, ev); err != nil {
		return translate(err, "флаер "+itemID)
	}
	return nil
}

// --- Вспомогательные функции ---

// slugFor проверяет имя и строит slug.
func slugFor(name, what string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: имя %s обязательно", ErrValidation, what)
	}
	slug := Slugify(name)
	if slug == "" {
		return "", fmt.Errorf("%w: имя %s должно содержать буквы или цифры", ErrValidation, what)
	}
	return slug, nil
}

// trimOptional убирает пробелы; пустая строка становится nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
