package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/promovault/internal/domain/model"
)

// SettingsRepository — доступ к единственной строке gallery_settings.
type SettingsRepository interface {
	// Get возвращает настройки, создавая строку при первом обращении.
	Get(ctx context.Context) (*model.GallerySettings, error)
	// UpdatePassword заменяет общий пароль галереи.
	UpdatePassword(ctx context.Context, password string) (*model.GallerySettings, error)
}

// SequenceCounter — атомарный счётчик кодов флаеров.
// Вызывается внутри транзакции: блокировка строки держится до её завершения.
type SequenceCounter interface {
	// Next возвращает текущее значение счётчика и увеличивает его на 1.
	Next(ctx context.Context) (int, error)
}

// settingsRepo — реализация SettingsRepository и SequenceCounter.
type settingsRepo struct {
	db DBTX
}

// NewSettingsRepository создаёт репозиторий настроек галереи.
func NewSettingsRepository(db DBTX) SettingsRepository {
	return &settingsRepo{db: db}
}

// NewSequenceCounter создаёт счётчик кодов поверх транзакции.
func NewSequenceCounter(tx DBTX) SequenceCounter {
	return &settingsRepo{db: tx}
}

// ensure создаёт строку настроек, если её ещё нет.
func (r *settingsRepo) ensure(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO gallery_settings (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		model.SettingsID,
	)
	if err != nil {
		return mapErr(fmt.Errorf("ошибка создания настроек: %w", err))
	}
	return nil
}

func (r *settingsRepo) Get(ctx context.Context) (*model.GallerySettings, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	s := &model.GallerySettings{}
	err := r.db.QueryRow(ctx, `
		SELECT id, gallery_password, next_sequence_number, updated_at
		FROM gallery_settings WHERE id = $1`, model.SettingsID,
	).Scan(&s.ID, &s.GalleryPassword, &s.NextSequenceNumber, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка получения настроек: %w", err))
	}
	return s, nil
}

func (r *settingsRepo) UpdatePassword(ctx context.Context, password string) (*model.GallerySettings, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	s := &model.GallerySettings{}
	err := r.db.QueryRow(ctx, `
		UPDATE gallery_settings
		SET gallery_password = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, gallery_password, next_sequence_number, updated_at`,
		model.SettingsID, password,
	).Scan(&s.ID, &s.GalleryPassword, &s.NextSequenceNumber, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ошибка обновления пароля галереи: %w", err))
	}
	return s, nil
}

// Next захватывает значение счётчика одним UPDATE ... RETURNING.
// Строковая блокировка сериализует конкурентные транзакции.
func (r *settingsRepo) Next(ctx context.Context) (int, error) {
	if err := r.ensure(ctx); err != nil {
		return 0, err
	}

	var n int
	err := r.db.QueryRow(ctx, `
		UPDATE gallery_settings
		SET next_sequence_number = next_sequence_number + 1, updated_at = now()
		WHERE id = $1
		RETURNING next_sequence_number - 1`, model.SettingsID,
	).Scan(&n)
	if err != nil {
		return 0, mapErr(fmt.Errorf("ошибка выделения номера: %w", err))
	}
	return n, nil
}
