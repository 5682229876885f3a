package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// LoginAttemptRepository — журнал попыток входа.
// Только добавление и чтение: методов изменения и удаления нет.
type LoginAttemptRepository interface {
	// Create добавляет запись в журнал.
	Create(ctx context.Context, a *model.LoginAttempt) error
	// ListRecent возвращает не более limit последних записей, новые первыми.
	ListRecent(ctx context.Context, limit int) ([]*model.LoginAttempt, error)
	// WithTx возвращает репозиторий, работающий в транзакции tx.
	WithTx(tx DBTX) LoginAttemptRepository
}

type loginAttemptRepo struct {
	db DBTX
}

// NewLoginAttemptRepository создаёт репозиторий журнала входов.
func NewLoginAttemptRepository(db DBTX) LoginAttemptRepository {
	return &loginAttemptRepo{db: db}
}

func (r *loginAttemptRepo) WithTx(tx DBTX) LoginAttemptRepository {
	return &loginAttemptRepo{db: tx}
}

func (r *loginAttemptRepo) Create(ctx context.Context, a *model.LoginAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO login_attempts (id, visitor_id, email, success, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		a.ID, a.VisitorID, a.Email, a.Success, a.IPAddress, a.UserAgent,
	).Scan(&a.CreatedAt)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка записи попытки входа: %w", err))
	}
	return nil
}

func (r *loginAttemptRepo) ListRecent(ctx context.Context, limit int) ([]*model.LoginAttempt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, visitor_id, email, success, ip_address, user_agent, created_at
		FROM login_attempts
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения журнала входов: %w", err))
	}
	defer rows.Close()

	var result []*model.LoginAttempt
	for rows.Next() {
		a := &model.LoginAttempt{}
		if err := rows.Scan(
			&a.ID, &a.VisitorID, &a.Email, &a.Success,
			&a.IPAddress, &a.UserAgent, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования попытки входа: %w", err)
		}
		result = append(result, a)
	}
	return result, mapErr(rows.Err())
}
