package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// SubcategoryRepository — доступ к таблице subcategories.
// Все операции адресуют подкатегорию парой (categoryID, id).
type SubcategoryRepository interface {
	// Create добавляет подкатегорию в конец списка категории.
	// Несуществующая категория — ErrNotFound.
	Create(ctx context.Context, s *model.Subcategory) error
	// Update применяет патч.
	Update(ctx context.Context, categoryID, id string, patch model.SubcategoryPatch) (*model.Subcategory, error)
	// Delete удаляет подкатегорию вместе с флаерами.
	Delete(ctx context.Context, categoryID, id string) error
}

type subcategoryRepo struct {
	db DBTX
}

// NewSubcategoryRepository создаёт репозиторий подкатегорий.
func NewSubcategoryRepository(db DBTX) SubcategoryRepository {
	return &subcategoryRepo{db: db}
}

const subcategoryColumns = `id, category_id, name, slug, sort_order, active, created_at`

func scanSubcategory(row pgx.Row) (*model.Subcategory, error) {
	s := &model.Subcategory{}
	err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.SortOrder, &s.Active, &s.CreatedAt)
	return s, err
}

func (r *subcategoryRepo) Create(ctx context.Context, s *model.Subcategory) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO subcategories (id, category_id, name, slug, sort_order)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, COALESCE(MAX(sort_order), 0) + 1
		FROM subcategories WHERE category_id = $2::uuid
		RETURNING sort_order, active, created_at`,
		s.ID, s.CategoryID, s.Name, s.Slug,
	).Scan(&s.SortOrder, &s.Active, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: подкатегория с таким именем уже существует в категории", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: категория %s", ErrNotFound, s.CategoryID)
		}
		return mapErr(fmt.Errorf("ошибка создания подкатегории: %w", err))
	}
	return nil
}

func (r *subcategoryRepo) Update(ctx context.Context, categoryID, id string, patch model.SubcategoryPatch) (*model.Subcategory, error) {
	query := fmt.Sprintf(`
		UPDATE subcategories
		SET name = COALESCE($3, name),
			slug = COALESCE($4, slug),
			sort_order = COALESCE($5, sort_order),
			active = COALESCE($6, active)
		WHERE category_id = $1 AND id = $2
		RETURNING %s`, subcategoryColumns)

	s, err := scanSubcategory(r.db.QueryRow(ctx, query,
		categoryID, id, patch.Name, patch.Slug, patch.SortOrder, patch.Active,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: подкатегория с таким именем уже существует в категории", ErrConflict)
		}
		return nil, mapErr(fmt.Errorf("ошибка обновления подкатегории: %w", err))
	}
	return s, nil
}

func (r *subcategoryRepo) Delete(ctx context.Context, categoryID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM subcategories WHERE category_id = $1 AND id = $2`, categoryID, id)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка удаления подкатегории: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
