package repository

import (
	"context"
	"fmt"
)

// StatsRepository — счётчики для панели администратора.
type StatsRepository interface {
	// Count возвращает количество строк в одной из таблиц проекции.
	Count(ctx context.Context, table StatsTable) (int, error)
}

// StatsTable — таблица, по которой считается итог.
type StatsTable string

const (
	StatsItems    StatsTable = "items"
	StatsViews    StatsTable = "view_events"
	StatsVisitors StatsTable = "visitors"
	StatsRequests StatsTable = "requests"
)

type statsRepo struct {
	db DBTX
}

// NewStatsRepository создаёт репозиторий счётчиков.
func NewStatsRepository(db DBTX) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) Count(ctx context.Context, table StatsTable) (int, error) {
	switch table {
	case StatsItems, StatsViews, StatsVisitors, StatsRequests:
	default:
		return 0, fmt.Errorf("неизвестная таблица статистики: %q", table)
	}

	var n int
	// Имя таблицы берётся только из закрытого набора констант выше
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, mapErr(fmt.Errorf("ошибка подсчёта %s: %w", table, err))
	}
	return n, nil
}
