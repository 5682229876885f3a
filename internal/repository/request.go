package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/workflow"
)

// RequestRepository — доступ к таблице requests.
type RequestRepository interface {
	// Create добавляет заявку со статусом PENDING.
	// Несуществующий флаер или посетитель — ErrNotFound.
	Create(ctx context.Context, req *model.Request) error
	// LockStatus читает текущий статус с блокировкой строки (FOR UPDATE).
	// Вызывается только внутри транзакции.
	LockStatus(ctx context.Context, id string) (workflow.Status, error)
	// SetStatus записывает новый статус и возвращает обновлённую заявку.
	SetStatus(ctx context.Context, id string, status workflow.Status) (*model.Request, error)
	// List возвращает заявки с данными флаера и посетителя, новые первыми.
	// limit <= 0 — без ограничения.
	List(ctx context.Context, limit int) ([]*model.Request, error)
	// CountByStatus возвращает количество заявок в каждом статусе.
	CountByStatus(ctx context.Context) (map[workflow.Status]int, error)
}

type requestRepo struct {
	db DBTX
}

// NewRequestRepository создаёт репозиторий заявок.
func NewRequestRepository(db DBTX) RequestRepository {
	return &requestRepo{db: db}
}

func (r *requestRepo) Create(ctx context.Context, req *model.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = workflow.StatusPending
	err := r.db.QueryRow(ctx, `
		INSERT INTO requests (id, item_id, visitor_id, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		req.ID, req.ItemID, req.VisitorID, req.Message, string(req.Status),
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: флаер %s или посетитель %s", ErrNotFound, req.ItemID, req.VisitorID)
		}
		return mapErr(fmt.Errorf("ошибка создания заявки: %w", err))
	}
	return nil
}

func (r *requestRepo) LockStatus(ctx context.Context, id string) (workflow.Status, error) {
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT status FROM requests WHERE id = $1 FOR UPDATE`, id,
	).Scan(&status)
	if err != nil {
		return "", mapErr(fmt.Errorf("ошибка чтения статуса заявки: %w", err))
	}
	return workflow.Status(status), nil
}

func (r *requestRepo) SetStatus(ctx context.Context, id string, status workflow.Status) (*model.Request, error) {
	req := &model.Request{}
	var st string
	err := r.db.QueryRow(ctx, `
		UPDATE requests SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, item_id, visitor_id, message, status, created_at, updated_at`,
		id, string(status),
	).Scan(&req.ID, &req.ItemID, &req.VisitorID, &req.Message, &st, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка обновления статуса заявки: %w", err))
	}
	req.Status = workflow.Status(st)
	return req, nil
}

func (r *requestRepo) List(ctx context.Context, limit int) ([]*model.Request, error) {
	b := psql.Select(
		"r.id", "r.item_id", "r.visitor_id", "r.message", "r.status", "r.created_at", "r.updated_at",
		"i.code", "i.title", "v.email", "v.first_name", "v.last_name",
	).
		From("requests r").
		Join("items i ON i.id = r.item_id").
		Join("visitors v ON v.id = r.visitor_id").
		OrderBy("r.created_at DESC", "r.id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса заявок: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения заявок: %w", err))
	}
	defer rows.Close()

	result := []*model.Request{}
	for rows.Next() {
		req := &model.Request{}
		var st string
		v := model.Visitor{}
		if err := rows.Scan(
			&req.ID, &req.ItemID, &req.VisitorID, &req.Message, &st, &req.CreatedAt, &req.UpdatedAt,
			&req.ItemCode, &req.ItemTitle, &v.Email, &v.FirstName, &v.LastName,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		req.Status = workflow.Status(st)
		req.VisitorEmail = v.Email
		req.VisitorName = v.DisplayName()
		result = append(result, req)
	}
	return result, mapErr(rows.Err())
}

func (r *requestRepo) CountByStatus(ctx context.Context) (map[workflow.Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка подсчёта заявок: %w", err))
	}
	defer rows.Close()

	result := make(map[workflow.Status]int, 4)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счётчика заявок: %w", err)
		}
		result[workflow.Status(st)] = n
	}
	return result, mapErr(rows.Err())
}
