// "Тупой" S3 клиент для архива транскриптов сессий.

package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/kodik-ai/pkg/config"
)

// transcriptPrefix — под этим префиксом лежат все транскрипты в бакете.
const transcriptPrefix = "transcripts/"

// ClientInterface определяет интерфейс для S3 клиента.
// Используется для мокания в тестах и внедрения зависимостей.
type ClientInterface interface {
	UploadTranscript(ctx context.Context, sessionID string, data []byte) (string, error)
	ListTranscripts(ctx context.Context) ([]StoredObject, error)
	DownloadTranscript(ctx context.Context, key string) ([]byte, error)
}

// Client — обёртка над minio клиентом с фиксированным бакетом.
type Client struct {
	api    *minio.Client
	bucket string
}

// Проверка что Client реализует ClientInterface
var _ ClientInterface = (*Client)(nil)

// StoredObject - сырой объект из S3
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// New создает клиент, используя наш конфиг
func New(cfg config.S3Config) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
	}, nil
}

// UploadTranscript сохраняет транскрипт сессии и возвращает ключ объекта.
//
// Ключ: transcripts/<sessionID>-<timestamp>.json
func (c *Client) UploadTranscript(ctx context.Context, sessionID string, data []byte) (string, error) {
	key := fmt.Sprintf("%s%s-%s.json", transcriptPrefix, sessionID, time.Now().Format("2006-01-02-15-04-05"))

	_, err := c.api.PutObject(ctx, c.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}

	return key, nil
}

// ListTranscripts возвращает список сохранённых транскриптов.
func (c *Client) ListTranscripts(ctx context.Context) ([]StoredObject, error) {
	var objects []StoredObject

	for obj := range c.api.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    transcriptPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list transcripts: %w", obj.Err)
		}
		objects = append(objects, StoredObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return objects, nil
}

// DownloadTranscript скачивает транскрипт по ключу.
func (c *Client) DownloadTranscript(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return data, nil
}
