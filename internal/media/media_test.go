package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// pngHeader — сигнатура PNG, достаточная для http.DetectContentType.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetectImage(t *testing.T) {
	tests := []struct {
		name    string
		head    []byte
		want    string
		wantErr bool
	}{
		{"png", pngHeader, "image/png", false},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF"), "image/jpeg", false},
		{"gif", []byte("GIF89a\x01\x00"), "image/gif", false},
		{"текст", []byte("hello world"), "", true},
		{"pdf", []byte("%PDF-1.7"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectImage(tt.head)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedType) {
					t.Errorf("ошибка = %v, ожидалась ErrUnsupportedType", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("DetectImage = %q, %v; ожидалось %q", got, err, tt.want)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 2, 21, 15, 4, 5, 0, time.UTC)
	key := objectKey("../../Летний постер (1).PNG", "image/png", now)

	re := regexp.MustCompile(`^1_20260221150405_[0-9a-f]{8}\.png$`)
	if !re.MatchString(key) {
		t.Errorf("ключ %q не соответствует формату", key)
	}

	key = objectKey("", "image/jpeg", now)
	if !strings.HasPrefix(key, "image_") || !strings.HasSuffix(key, ".jpg") {
		t.Errorf("ключ без имени = %q", key)
	}

	long := strings.Repeat("a", 80) + ".gif"
	if k := objectKey(long, "image/gif", now); len(strings.SplitN(k, "_", 2)[0]) != 50 {
		t.Errorf("имя должно обрезаться до 50 символов: %q", k)
	}
}

func TestLocalStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media")
	store, err := NewLocalStore(dir, "/media", testLogger())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if store.Backend() != "local" {
		t.Errorf("Backend = %q", store.Backend())
	}

	content := append(append([]byte{}, pngHeader...), []byte("payload")...)
	url, err := store.Save(context.Background(), "poster.png", "image/png", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/media/poster_") || !strings.HasSuffix(url, ".png") {
		t.Errorf("URL = %q", url)
	}

	key := strings.TrimPrefix(url, "/media/")
	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("файл не записан: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое файла не совпадает")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("временный файл не удалён: %s", e.Name())
		}
	}
}

// failingReader возвращает ошибку после первых байтов.
type failingReader struct{ done bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("соединение прервано")
	}
	r.done = true
	return copy(p, pngHeader), nil
}

func TestLocalStore_SaveErrorRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media", testLogger())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if _, err := store.Save(context.Background(), "x.png", "image/png", &failingReader{}); err == nil {
		t.Fatal("ожидалась ошибка записи")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("после ошибки в директории остались файлы: %d", len(entries))
	}
}

// mockS3 — мок putObjectAPI.
type mockS3 struct {
	putFn func(ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	body  []byte
	input *s3.PutObjectInput
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = in
	m.body, _ = io.ReadAll(in.Body)
	if m.putFn != nil {
		return m.putFn(ctx, in)
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	client := &mockS3{}
	store := newS3Store(client, "flyers", "https://cdn.example.com/flyers/", testLogger())

	content := append(append([]byte{}, pngHeader...), []byte("payload")...)
	url, err := store.Save(context.Background(), "poster.png", "image/png", io.NopCloser(bytes.NewReader(content)))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	key := aws.ToString(client.input.Key)
	if url != "https://cdn.example.com/flyers/"+key {
		t.Errorf("URL = %q, ключ %q", url, key)
	}
	if aws.ToString(client.input.Bucket) != "flyers" || aws.ToString(client.input.ContentType) != "image/png" {
		t.Errorf("запрос = %+v", client.input)
	}
	if aws.ToInt64(client.input.ContentLength) != int64(len(content)) {
		t.Errorf("ContentLength = %d, ожидалось %d", aws.ToInt64(client.input.ContentLength), len(content))
	}
	if !bytes.Equal(client.body, content) {
		t.Error("тело объекта не совпадает")
	}
}

func TestS3Store_SaveError(t *testing.T) {
	client := &mockS3{
		putFn: func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
			return nil, errors.New("AccessDenied")
		},
	}
	store := newS3Store(client, "flyers", "https://cdn.example.com", testLogger())

	if _, err := store.Save(context.Background(), "a.png", "image/png", bytes.NewReader(pngHeader)); err == nil {
		t.Fatal("ожидалась ошибка загрузки")
	}
}
