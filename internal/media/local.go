package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LocalStore — хранение изображений в локальной директории.
// Файлы раздаются HTTP-сервером по префиксу publicURL.
type LocalStore struct {
	dir       string
	publicURL string
	logger    *slog.Logger
	now       func() time.Time
}

// NewLocalStore создаёт LocalStore. Создаёт директорию, если её нет.
func NewLocalStore(dir, publicURL string, logger *slog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию медиа %s: %w", dir, err)
	}
	return &LocalStore{
		dir:       dir,
		publicURL: publicURL,
		logger:    logger.With(slog.String("component", "media_local")),
		now:       time.Now,
	}, nil
}

// Backend возвращает "local".
func (s *LocalStore) Backend() string { return "local" }

// Dir возвращает директорию хранения (для раздачи файлов).
func (s *LocalStore) Dir() string { return s.dir }

// Save записывает файл: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *LocalStore) Save(ctx context.Context, name, contentType string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(name, contentType, s.now())
	fullPath := filepath.Join(s.dir, key)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	s.logger.Info("Изображение сохранено",
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return joinURL(s.publicURL, key), nil
}
