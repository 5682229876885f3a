// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM. Динамические фильтры
// собираются через squirrel.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена (или нарушен внешний ключ).
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrTimeout — истёк deadline операции с хранилищем.
	ErrTimeout = errors.New("хранилище не ответило вовремя")
)

// psql — построитель запросов с плейсхолдерами PostgreSQL ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner позволяет выполнять операции в транзакции.
// Если у контекста нет deadline, применяется таймаут хранилища.
type TxRunner struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool, timeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, timeout: timeout}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается.
// При успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx DBTX) error) error {
	ctx, cancel := WithStoreTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка начала транзакции: %w", err))
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return mapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapErr(fmt.Errorf("ошибка фиксации транзакции: %w", err))
	}
	return nil
}

// Timed — DBTX, применяющий таймаут хранилища к каждому запросу,
// если у контекста вызывающего нет собственного deadline.
type Timed struct {
	db      DBTX
	timeout time.Duration
}

// NewTimed оборачивает пул (или транзакцию) таймаутом хранилища.
func NewTimed(db DBTX, timeout time.Duration) *Timed {
	return &Timed{db: db, timeout: timeout}
}

// Exec выполняет запрос без результата.
func (t *Timed) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	ctx, cancel := WithStoreTimeout(ctx, t.timeout)
	defer cancel()
	return t.db.Exec(ctx, sql, arguments...)
}

// Query выполняет запрос, возвращающий строки.
// Таймаут отменяется при закрытии строк.
func (t *Timed) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, cancel := WithStoreTimeout(ctx, t.timeout)
	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelRows{Rows: rows, cancel: cancel}, nil
}

// QueryRow выполняет запрос, возвращающий одну строку.
func (t *Timed) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, cancel := WithStoreTimeout(ctx, t.timeout)
	return &cancelRow{row: t.db.QueryRow(ctx, sql, args...), cancel: cancel}
}

// cancelRows освобождает контекст запроса после Close.
type cancelRows struct {
	pgx.Rows
	cancel context.CancelFunc
}

func (r *cancelRows) Close() {
	r.Rows.Close()
	r.cancel()
}

// cancelRow освобождает контекст запроса после Scan.
type cancelRow struct {
	row    pgx.Row
	cancel context.CancelFunc
}

func (r *cancelRow) Scan(dest ...any) error {
	defer r.cancel()
	return r.row.Scan(dest...)
}

// WithStoreTimeout добавляет таймаут, только если у ctx нет deadline.
func WithStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// mapErr переводит ошибки драйвера в ошибки слоя репозиториев.
// Уже переведённые ошибки возвращаются без изменений.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: связанная запись отсутствует", ErrNotFound)
	default:
		return err
	}
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation проверяет нарушение внешнего ключа.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
