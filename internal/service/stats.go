// stats.go — сводка для панели администратора.
// Независимые счётчики читаются параллельно через errgroup.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/workflow"
)

// Размеры списков сводки.
const (
	statsTopItems       = 5
	statsRecentRequests = 5
)

// StatsService — проекция для панели администратора.
type StatsService struct {
	stats    repository.StatsRepository
	items    repository.ItemRepository
	requests repository.RequestRepository
	logger   *slog.Logger
}

// NewStatsService создаёт сервис сводки.
func NewStatsService(
	stats repository.StatsRepository,
	items repository.ItemRepository,
	requests repository.RequestRepository,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		stats:    stats,
		items:    items,
		requests: requests,
		logger:   logger.With(slog.String("component", "stats_service")),
	}
}

// Stats собирает сводку. Ошибка любого запроса прерывает остальные.
func (s *StatsService) Stats(ctx context.Context) (*model.Stats, error) {
	st := &model.Stats{}
	g, gctx := errgroup.WithContext(ctx)

	counts := []struct {
		table repository.StatsTable
		dst   *int
	}{
		{repository.StatsItems, &st.TotalItems},
		{repository.StatsViews, &st.TotalViews},
		{repository.StatsRequests, &st.TotalRequests},
		{repository.StatsVisitors, &st.TotalVisitors},
	}
	for _, c := range counts {
		g.Go(func() error {
			n, err := s.stats.Count(gctx, c.table)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}

	g.Go(func() error {
		byStatus, err := s.requests.CountByStatus(gctx)
		if err != nil {
			return err
		}
		st.PendingRequests = byStatus[workflow.StatusPending]
		st.CompletedRequests = byStatus[workflow.StatusCompleted]
		return nil
	})

	g.Go(func() error {
		top, err := s.items.TopByViews(gctx, statsTopItems)
		if err != nil {
			return err
		}
		st.TopItems = top
		return nil
	})

	g.Go(func() error {
		recent, err := s.requests.List(gctx, statsRecentRequests)
		if err != nil {
			return err
		}
		st.RecentRequests = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, translate(err, "сводка")
	}
	return st, nil
}
