package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
	"github.com/bigkaa/promovault/internal/workflow"
)

func TestStats(t *testing.T) {
	stats := &mockStatsRepo{counts: map[repository.StatsTable]int{
		repository.StatsItems:    12,
		repository.StatsViews:    340,
		repository.StatsVisitors: 25,
		repository.StatsRequests: 3,
	}}
	var topLimit int
	items := &mockItemRepo{
		topFn: func(_ context.Context, limit int) ([]*model.Item, error) {
			topLimit = limit
			return []*model.Item{{ID: testItemID, ViewCount: 99}}, nil
		},
	}
	requests := newMemRequestRepo(
		&model.Request{ID: "r1", Status: workflow.StatusPending},
		&model.Request{ID: "r2", Status: workflow.StatusPending},
		&model.Request{ID: "r3", Status: workflow.StatusCompleted},
	)
	svc := NewStatsService(stats, items, requests, testLogger())

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalItems != 12 || st.TotalViews != 340 || st.TotalVisitors != 25 || st.TotalRequests != 3 {
		t.Errorf("итоги = %+v", st)
	}
	if st.PendingRequests != 2 || st.CompletedRequests != 1 {
		t.Errorf("по статусам: pending=%d completed=%d", st.PendingRequests, st.CompletedRequests)
	}
	if topLimit != 5 || len(st.TopItems) != 1 {
		t.Errorf("топ флаеров: limit=%d, len=%d", topLimit, len(st.TopItems))
	}
	if len(st.RecentRequests) != 3 {
		t.Errorf("последних заявок %d, ожидалось 3", len(st.RecentRequests))
	}
}

func TestStats_StoreTimeout(t *testing.T) {
	svc := NewStatsService(&mockStatsRepo{err: repository.ErrTimeout}, &mockItemRepo{}, newMemRequestRepo(), testLogger())

	if _, err := svc.Stats(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ошибка = %v, ожидалась ErrUnavailable", err)
	}
}

func TestUpdateGalleryPassword(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, testLogger())

	if _, err := svc.UpdateGalleryPassword(context.Background(), ""); !errors.Is(err, ErrValidation) {
		t.Errorf("пустой пароль: ошибка = %v, ожидалась ErrValidation", err)
	}
	st, err := svc.UpdateGalleryPassword(context.Background(), "spring2025")
	if err != nil {
		t.Fatalf("UpdateGalleryPassword: %v", err)
	}
	if st.GalleryPassword != "spring2025" {
		t.Errorf("пароль = %q", st.GalleryPassword)
	}
}
