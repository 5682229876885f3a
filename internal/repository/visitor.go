package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// VisitorRepository — доступ к таблице visitors.
type VisitorRepository interface {
	// Upsert создаёт посетителя или обновляет имя существующего.
	// nil в firstName/lastName — поле не меняется.
	Upsert(ctx context.Context, email string, firstName, lastName *string) (*model.Visitor, error)
	// GetByEmail возвращает посетителя по email (в нижнем регистре).
	GetByEmail(ctx context.Context, email string) (*model.Visitor, error)
	// GetByID возвращает посетителя по UUID.
	GetByID(ctx context.Context, id string) (*model.Visitor, error)
	// List возвращает посетителей, новые первыми.
	List(ctx context.Context) ([]*model.Visitor, error)
	// WithTx возвращает репозиторий, работающий в транзакции tx.
	WithTx(tx DBTX) VisitorRepository
}

type visitorRepo struct {
	db DBTX
}

// NewVisitorRepository создаёт репозиторий посетителей.
func NewVisitorRepository(db DBTX) VisitorRepository {
	return &visitorRepo{db: db}
}

func (r *visitorRepo) WithTx(tx DBTX) VisitorRepository {
	return &visitorRepo{db: tx}
}

const visitorColumns = `id, email, first_name, last_name, created_at`

func scanVisitor(row pgx.Row) (*model.Visitor, error) {
	v := &model.Visitor{}
	err := row.Scan(&v.ID, &v.Email, &v.FirstName, &v.LastName, &v.CreatedAt)
	return v, err
}

func (r *visitorRepo) Upsert(ctx context.Context, email string, firstName, lastName *string) (*model.Visitor, error) {
	query := fmt.Sprintf(`
		INSERT INTO visitors (id, email, first_name, last_name)
		VALUES ($1, $2, COALESCE($3::text, ''), COALESCE($4::text, ''))
		ON CONFLICT (email) DO UPDATE
		SET first_name = COALESCE($3::text, visitors.first_name),
			last_name = COALESCE($4::text, visitors.last_name)
		RETURNING %s`, visitorColumns)

	v, err := scanVisitor(r.db.QueryRow(ctx, query, uuid.NewString(), email, firstName, lastName))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка сохранения посетителя: %w", err))
	}
	return v, nil
}

func (r *visitorRepo) GetByEmail(ctx context.Context, email string) (*model.Visitor, error) {
	query := fmt.Sprintf(`SELECT %s FROM visitors WHERE email = $1`, visitorColumns)
	v, err := scanVisitor(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения посетителя по email: %w", err))
	}
	return v, nil
}

func (r *visitorRepo) GetByID(ctx context.Context, id string) (*model.Visitor, error) {
	query := fmt.Sprintf(`SELECT %s FROM visitors WHERE id = $1`, visitorColumns)
	v, err := scanVisitor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения посетителя: %w", err))
	}
	return v, nil
}

func (r *visitorRepo) List(ctx context.Context) ([]*model.Visitor, error) {
	query := fmt.Sprintf(`SELECT %s FROM visitors ORDER BY created_at DESC`, visitorColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения списка посетителей: %w", err))
	}
	defer rows.Close()

	var result []*model.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования посетителя: %w", err)
		}
		result = append(result, v)
	}
	return result, mapErr(rows.Err())
}
