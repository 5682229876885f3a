// Пакет media — хранение изображений флаеров.
// Store сохраняет байты и возвращает URL, по которому изображение доступно
// посетителям. Бэкенды: локальная директория (local) и S3-совместимое
// хранилище (s3).
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedType — загружаемый файл не является поддерживаемым изображением.
var ErrUnsupportedType = errors.New("неподдерживаемый тип файла")

// Поддерживаемые типы изображений и расширения файлов.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store — хранилище изображений.
type Store interface {
	// Save сохраняет содержимое reader и возвращает публичный URL.
	// name — исходное имя файла (используется как основа ключа).
	Save(ctx context.Context, name, contentType string, reader io.Reader) (string, error)
	// Backend возвращает имя бэкенда (local, s3).
	Backend() string
}

// DetectImage определяет тип изображения по первым байтам.
// Возвращает ErrUnsupportedType для всего, что не jpeg, png, gif или webp.
func DetectImage(head []byte) (string, error) {
	ct := http.DetectContentType(head)
	if _, ok := imageExtensions[ct]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	return ct, nil
}

// objectKey генерирует ключ объекта.
// Формат: {name}_{timestamp}_{uuid8}{ext}, например poster_20260221150405_a1b2c3d4.png
func objectKey(originalName, contentType string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	name := sanitize(base)
	if len(name) > 50 {
		name = name[:50]
	}

	ext := imageExtensions[contentType]
	ts := now.UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
}

// sanitize оставляет в имени только латиницу, цифры, дефис и подчёркивание,
// чтобы ключ можно было использовать в URL без экранирования.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "image"
	}
	return result.String()
}

// joinURL соединяет публичный базовый URL и ключ объекта.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
