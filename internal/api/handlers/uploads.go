// uploads.go — обработчик POST /admin/uploads.
// Принимает изображение в multipart-поле "file" и сохраняет его в хранилище медиа.
package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/promovault/internal/api/errors"
	"github.com/bigkaa/promovault/internal/media"
)

const (
	// multipartOverhead — запас на заголовки multipart сверх размера файла
	multipartOverhead = 64 << 10
	// sniffLen — число байт для определения типа содержимого
	sniffLen = 512
)

// UploadMedia — POST /admin/uploads.
// Допускаются только jpeg, png, gif и webp не больше PV_UPLOAD_MAX_BYTES.
func (h *APIHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.PayloadTooLarge(w, "Файл превышает допустимый размер")
			return
		}
		apierrors.ValidationError(w, "Ожидается multipart-поле file: "+err.Error())
		return
	}
	defer file.Close()

	if header.Size > h.uploadMaxBytes {
		apierrors.PayloadTooLarge(w, "Файл превышает допустимый размер")
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(w, "Не удалось прочитать файл")
		return
	}
	head = head[:n]

	contentType, err := media.DetectImage(head)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	url, err := h.media.Save(r.Context(), header.Filename, contentType, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		h.logger.Error("Ошибка сохранения изображения",
			slog.String("backend", h.media.Backend()),
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка сохранения изображения")
		return
	}

	h.logger.Info("Изображение загружено",
		slog.String("backend", h.media.Backend()),
		slog.String("url", url),
		slog.Int64("size", header.Size),
	)
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
