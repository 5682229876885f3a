package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// CategoryRepository — доступ к таблице categories.
type CategoryRepository interface {
	// List возвращает категории с подкатегориями и счётчиками флаеров.
	// activeOnly — только активные категории, подкатегории и флаеры.
	List(ctx context.Context, activeOnly bool) ([]*model.Category, error)
	// GetByID возвращает категорию без подкатегорий.
	GetByID(ctx context.Context, id string) (*model.Category, error)
	// Create добавляет категорию в конец списка (sort_order = max + 1).
	Create(ctx context.Context, c *model.Category) error
	// Update применяет патч и возвращает обновлённую категорию.
	Update(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error)
	// Delete удаляет категорию вместе с подкатегориями и флаерами.
	Delete(ctx context.Context, id string) error
}

type categoryRepo struct {
	db DBTX
}

// NewCategoryRepository создаёт репозиторий категорий.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

const categoryColumns = `id, name, slug, description, sort_order, active, created_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	c := &model.Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.SortOrder, &c.Active, &c.CreatedAt)
	return c, err
}

func (r *categoryRepo) List(ctx context.Context, activeOnly bool) ([]*model.Category, error) {
	catQ := psql.Select(categoryColumns).From("categories").OrderBy("sort_order", "name")
	if activeOnly {
		catQ = catQ.Where(sq.Eq{"active": true})
	}
	query, args, err := catQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса категорий: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения категорий: %w", err))
	}
	var categories []*model.Category
	byID := make(map[string]*model.Category)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования категории: %w", err)
		}
		c.Subcategories = []*model.Subcategory{}
		categories = append(categories, c)
		byID[c.ID] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}

	itemJoin := "items i ON i.subcategory_id = s.id"
	if activeOnly {
		itemJoin += " AND i.active"
	}
	subQ := psql.Select(
		"s.id", "s.category_id", "s.name", "s.slug", "s.sort_order", "s.active", "s.created_at",
		"COUNT(i.id)",
	).
		From("subcategories s").
		LeftJoin(itemJoin).
		GroupBy("s.id").
		OrderBy("s.sort_order", "s.name")
	if activeOnly {
		subQ = subQ.Where(sq.Eq{"s.active": true})
	}
	query, args, err = subQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса подкатегорий: %w", err)
	}

	rows, err = r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения подкатегорий: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		s := &model.Subcategory{}
		if err := rows.Scan(
			&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.SortOrder, &s.Active, &s.CreatedAt,
			&s.ItemCount,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования подкатегории: %w", err)
		}
		// Подкатегории неактивных категорий отфильтрованы вместе с категорией
		if c, ok := byID[s.CategoryID]; ok {
			c.Subcategories = append(c.Subcategories, s)
		}
	}
	return categories, mapErr(rows.Err())
}

func (r *categoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения категории: %w", err))
	}
	return c, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (id, name, slug, description, sort_order)
		SELECT $1::uuid, $2::text, $3::text, $4::text, COALESCE(MAX(sort_order), 0) + 1
		FROM categories
		RETURNING sort_order, active, created_at`,
		c.ID, c.Name, c.Slug, c.Description,
	).Scan(&c.SortOrder, &c.Active, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: категория с таким именем уже существует", ErrConflict)
		}
		return mapErr(fmt.Errorf("ошибка создания категории: %w", err))
	}
	c.Subcategories = []*model.Subcategory{}
	return nil
}

func (r *categoryRepo) Update(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	query := fmt.Sprintf(`
		UPDATE categories
		SET name = COALESCE($2, name),
			slug = COALESCE($3, slug),
			description = COALESCE($4, description),
			sort_order = COALESCE($5, sort_order),
			active = COALESCE($6, active)
		WHERE id = $1
		RETURNING %s`, categoryColumns)

	c, err := scanCategory(r.db.QueryRow(ctx, query,
		id, patch.Name, patch.Slug, patch.Description, patch.SortOrder, patch.Active,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: категория с таким именем уже существует", ErrConflict)
		}
		return nil, mapErr(fmt.Errorf("ошибка обновления категории: %w", err))
	}
	return c, nil
}

func (r *categoryRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка удаления категории: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
