package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaStore keeps the bytes of uploaded media. The forum only persists the
// returned key and URL.
type MediaStore interface {
	Store(ctx context.Context, data []byte, mimeType string) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}

type StoredObject struct {
	Key string
	URL string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // base URL clients fetch objects from
}

// MinioStore stores media in an S3-compatible bucket under the SHA-256 of
// the content, so identical uploads share one object.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s *MinioStore) Store(ctx context.Context, data []byte, mimeType string) (StoredObject, error) {
	key := ObjectKey(data, mimeType)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return StoredObject{
		Key: key,
		URL: fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key),
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// ObjectKey derives the content address for an upload.
func ObjectKey(data []byte, mimeType string) string {
	sum := sha256.Sum256(data)
	key := "forum-media/" + hex.EncodeToString(sum[:])
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		key += exts[0]
	}
	return key
}
