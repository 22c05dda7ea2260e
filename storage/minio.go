package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/snapfactor/snapfactor/config"
)

// MediaStore wraps the MinIO client for snap and story media.
type MediaStore struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
}

// NewMediaStore creates a MinIO backed media store and ensures the bucket exists.
func NewMediaStore(cfg config.AppConfig) (*MediaStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ttl := time.Duration(cfg.MediaURLTTLMins) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	ms := &MediaStore{client: client, bucket: cfg.MinioBucket, urlTTL: ttl}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return ms, nil
}

func (m *MediaStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Put stores media under a date partitioned object name and returns the name.
// kind is the key prefix, "snaps" or "stories".
func (m *MediaStore) Put(ctx context.Context, kind, filename, contentType string, size int64, r io.Reader) (string, error) {
	now := time.Now()
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = extForContentType(contentType)
	}
	objectName := fmt.Sprintf("%s/%d/%02d/%02d/%s%s",
		kind, now.Year(), int(now.Month()), now.Day(), uuid.NewString(), ext)

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio: %w", err)
	}
	return objectName, nil
}

// PresignedURL returns a short-lived GET URL for an object. Media is never
// served directly; clients always go through presigned URLs.
func (m *MediaStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, m.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("generate presigned url: %w", err)
	}
	return u.String(), nil
}

// Remove deletes an object.
func (m *MediaStore) Remove(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Get downloads an object, used by the tutor when analyzing snap images.
func (m *MediaStore) Get(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func extForContentType(ct string) string {
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
