package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StoredObject is the subset of object metadata the orphan sweep needs.
type StoredObject struct {
	Key          string
	LastModified time.Time
}

type StorageService interface {
	Upload(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (string, error)
	Delete(ctx context.Context, bucketName, objectName string) error
	PublicURL(bucketName, objectName string) string
	GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error)
	ListObjects(ctx context.Context, bucketName, prefix string) ([]StoredObject, error)
	EnsureBucketExists(ctx context.Context, bucketName string) error
}

type minioStorage struct {
	client   *minio.Client
	endpoint string
	useSSL   bool
}

func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool) (StorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioStorage{client: client, endpoint: endpoint, useSSL: useSSL}, nil
}

// Upload writes the object and returns its public URL.
func (m *minioStorage) Upload(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return m.PublicURL(bucketName, objectName), nil
}

func (m *minioStorage) Delete(ctx context.Context, bucketName, objectName string) error {
	return m.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{})
}

// PublicURL builds the anonymous-read URL for buckets with a public
// read policy.
func (m *minioStorage) PublicURL(bucketName, objectName string) string {
	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.endpoint, bucketName, objectName)
}

func (m *minioStorage) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, bucketName, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (m *minioStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]StoredObject, error) {
	var objects []StoredObject
	for obj := range m.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, StoredObject{Key: obj.Key, LastModified: obj.LastModified})
	}
	return objects, nil
}

func (m *minioStorage) EnsureBucketExists(ctx context.Context, bucketName string) error {
	found, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	}
	return nil
}
