// settings.go — настройки галереи (общий пароль посетителей).
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/promovault/internal/domain/model"
	"github.com/bigkaa/promovault/internal/repository"
)

// SettingsService — чтение и изменение настроек галереи.
type SettingsService struct {
	repo   repository.SettingsRepository
	logger *slog.Logger
}

// NewSettingsService создаёт сервис настроек.
func NewSettingsService(repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		logger: logger.With(slog.String("component", "settings_service")),
	}
}

// Get возвращает настройки, создавая их при первом обращении.
func (s *SettingsService) Get(ctx context.Context) (*model.GallerySettings, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return nil, translate(err, "чтение настроек галереи")
	}
	return st, nil
}

// UpdateGalleryPassword заменяет общий пароль. Пустой пароль недопустим.
func (s *SettingsService) UpdateGalleryPassword(ctx context.Context, password string) (*model.GallerySettings, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: пароль галереи не может быть пустым", ErrValidation)
	}
	st, err := s.repo.UpdatePassword(ctx, password)
	if err != nil {
		return nil, translate(err, "обновление пароля галереи")
	}
	s.logger.Info("Пароль галереи изменён")
	return st, nil
}
