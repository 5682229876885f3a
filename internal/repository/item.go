package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// ItemRepository — доступ к таблицам items и view_events.
type ItemRepository interface {
	// Create добавляет флаер. Код уже выделен вызывающим.
	Create(ctx context.Context, item *model.Item) error
	// GetByID возвращает флаер с полями проекции.
	GetByID(ctx context.Context, id string) (*model.Item, error)
	// List возвращает флаеры по фильтру, новые первыми.
	List(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error)
	// TopByViews возвращает limit флаеров с наибольшим числом просмотров.
	TopByViews(ctx context.Context, limit int) ([]*model.Item, error)
	// Update применяет патч. Код флаера не меняется.
	Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error)
	// Delete удаляет флаер вместе с просмотрами и заявками.
	Delete(ctx context.Context, id string) error
	// RecordView добавляет событие просмотра.
	RecordView(ctx context.Context, ev *model.ViewEvent) error
}

type itemRepo struct {
	db DBTX
}

// NewItemRepository создаёт репозиторий флаеров.
func NewItemRepository(db DBTX) ItemRepository {
	return &itemRepo{db: db}
}

// itemProjection — колонки флаера с именами категории и счётчиками.
var itemProjection = []string{
	"i.id", "i.code", "i.title", "i.description", "i.image_url", "i.active",
	"i.subcategory_id", "i.created_at",
	"s.name", "c.id", "c.name",
	"(SELECT COUNT(*) FROM view_events v WHERE v.item_id = i.id) AS view_count",
	"(SELECT COUNT(*) FROM requests rq WHERE rq.item_id = i.id) AS request_count",
}

// selectItems — базовый запрос проекции флаеров.
func selectItems() sq.SelectBuilder {
	return psql.Select(itemProjection...).
		From("items i").
		Join("subcategories s ON s.id = i.subcategory_id").
		Join("categories c ON c.id = s.category_id")
}

func scanItem(row pgx.Row) (*model.Item, error) {
	it := &model.Item{}
	err := row.Scan(
		&it.ID, &it.Code, &it.Title, &it.Description, &it.ImageURL, &it.Active,
		&it.SubcategoryID, &it.CreatedAt,
		&it.SubcategoryName, &it.CategoryID, &it.CategoryName,
		&it.ViewCount, &it.RequestCount,
	)
	return it, err
}

func (r *itemRepo) queryItems(ctx context.Context, b sq.SelectBuilder) ([]*model.Item, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса флаеров: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения флаеров: %w", err))
	}
	defer rows.Close()

	result := []*model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования флаера: %w", err)
		}
		result = append(result, it)
	}
	return result, mapErr(rows.Err())
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO items (id, code, title, description, image_url, active, subcategory_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		item.ID, item.Code, item.Title, item.Description, item.ImageURL, item.Active, item.SubcategoryID,
	).Scan(&item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: флаер с кодом %s уже существует", ErrConflict, item.Code)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: подкатегория %s", ErrNotFound, item.SubcategoryID)
		}
		return mapErr(fmt.Errorf("ошибка создания флаера: %w", err))
	}
	return nil
}

func (r *itemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	query, args, err := selectItems().Where(sq.Eq{"i.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса флаера: %w", err)
	}
	it, err := scanItem(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения флаера: %w", err))
	}
	return it, nil
}

func (r *itemRepo) List(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	b := selectItems()
	if filter.ActiveOnly {
		b = b.Where(sq.Eq{"i.active": true})
	}
	// Фильтр по подкатегории имеет приоритет над фильтром по категории
	switch {
	case filter.SubcategoryID != nil:
		b = b.Where(sq.Eq{"i.subcategory_id": *filter.SubcategoryID})
	case filter.CategoryID != nil:
		b = b.Where(sq.Eq{"s.category_id": *filter.CategoryID})
	}
	return r.queryItems(ctx, b.OrderBy("i.created_at DESC", "i.code DESC"))
}

func (r *itemRepo) TopByViews(ctx context.Context, limit int) ([]*model.Item, error) {
	b := selectItems().OrderBy("view_count DESC", "i.created_at DESC").Limit(uint64(limit))
	return r.queryItems(ctx, b)
}

func (r *itemRepo) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE items
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			image_url = COALESCE($4, image_url),
			active = COALESCE($5, active),
			subcategory_id = COALESCE($6, subcategory_id)
		WHERE id = $1`,
		id, patch.Title, patch.Description, patch.ImageURL, patch.Active, patch.SubcategoryID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: подкатегория %s", ErrNotFound, *patch.SubcategoryID)
		}
		return nil, mapErr(fmt.Errorf("ошибка обновления флаера: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *itemRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка удаления флаера: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) RecordView(ctx context.Context, ev *model.ViewEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO view_events (id, item_id, visitor_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		ev.ID, ev.ItemID, ev.VisitorID,
	).Scan(&ev.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: флаер %s", ErrNotFound, ev.ItemID)
		}
		return mapErr(fmt.Errorf("ошибка записи просмотра: %w", err))
	}
	return nil
}
