package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// putObjectAPI — часть клиента S3, используемая S3Store.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config — параметры S3-совместимого хранилища.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL — базовый URL, по которому объекты bucket доступны посетителям
	PublicURL string
}

// S3Store — хранение изображений в S3 (MinIO и совместимые).
type S3Store struct {
	client    putObjectAPI
	bucket    string
	publicURL string
	logger    *slog.Logger
	now       func() time.Time
}

// NewS3Store создаёт клиент S3. Если задан Endpoint, используется path-style
// адресация (MinIO). Пустые ключи — цепочка учётных данных AWS по умолчанию.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg.Bucket, cfg.PublicURL, logger), nil
}

func newS3Store(client putObjectAPI, bucket, publicURL string, logger *slog.Logger) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
		logger:    logger.With(slog.String("component", "media_s3")),
		now:       time.Now,
	}
}

// Backend возвращает "s3".
func (s *S3Store) Backend() string { return "s3" }

// Save загружает объект в bucket и возвращает PublicURL/key.
// Поток без Seek читается в память: подпись запроса требует известной длины.
func (s *S3Store) Save(ctx context.Context, name, contentType string, reader io.Reader) (string, error) {
	body, ok := reader.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("ошибка чтения данных: %w", err)
		}
		body = bytes.NewReader(data)
	}

	size, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("ошибка определения размера: %w", err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("ошибка определения размера: %w", err)
	}

	key := objectKey(name, contentType, s.now())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки в S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info("Изображение загружено в S3",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return joinURL(s.publicURL, key), nil
}
