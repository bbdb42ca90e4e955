package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

const presignExpiry = 15 * time.Minute

// ObjectStore is the contract the attachment service needs from the file
// storage collaborator. Put returns the object key the bytes were stored
// under; PresignGet returns a short-lived download URL.
type ObjectStore interface {
	Put(ctx context.Context, prefix, fileName, contentType string, size int64, reader io.Reader) (string, error)
	PresignGet(ctx context.Context, objectKey, downloadName string) (string, error)
}

type MinIOStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOStore creates the MinIO-backed object store and the bucket if it
// does not exist yet.
func NewMinIOStore(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logrus.Infof("Bucket %s created successfully", bucketName)
	}

	return &MinIOStore{client: client, bucketName: bucketName}, nil
}

func (s *MinIOStore) Put(ctx context.Context, prefix, fileName, contentType string, size int64, reader io.Reader) (string, error) {
	// Random key per upload; the original name survives only in metadata
	// and the content-disposition on download.
	ext := strings.ToLower(filepath.Ext(fileName))
	objectKey := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	return objectKey, nil
}

func (s *MinIOStore) PresignGet(ctx context.Context, objectKey, downloadName string) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName))

	presigned, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, presignExpiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	return presigned.String(), nil
}
