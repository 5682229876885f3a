package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// AdminRepository — доступ к таблице admins.
type AdminRepository interface {
	// GetByEmail возвращает администратора по email (в нижнем регистре).
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	// GetByID возвращает администратора по UUID.
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	// Upsert создаёт администратора или обновляет хэш пароля и имя.
	Upsert(ctx context.Context, a *model.Admin) error
}

type adminRepo struct {
	db DBTX
}

// NewAdminRepository создаёт репозиторий администраторов.
func NewAdminRepository(db DBTX) AdminRepository {
	return &adminRepo{db: db}
}

const adminColumns = `id, email, password_hash, name, created_at`

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	a := &model.Admin{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.CreatedAt)
	return a, err
}

func (r *adminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE email = $1`, adminColumns)
	a, err := scanAdmin(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения администратора по email: %w", err))
	}
	return a, nil
}

func (r *adminRepo) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE id = $1`, adminColumns)
	a, err := scanAdmin(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения администратора: %w", err))
	}
	return a, nil
}

func (r *adminRepo) Upsert(ctx context.Context, a *model.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO admins (id, email, password_hash, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name
		RETURNING id, created_at`,
		a.ID, a.Email, a.PasswordHash, a.Name,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка сохранения администратора: %w", err))
	}
	return nil
}
