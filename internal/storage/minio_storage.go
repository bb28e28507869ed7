package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage connects to an S3-compatible bucket
func NewMinIOStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (BlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &minioStorage{client: client, bucket: bucket}, nil
}

func (s *minioStorage) Name() string {
	return "minio:" + s.bucket
}

func (s *minioStorage) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	var blobs []BlobInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", s.bucket, obj.Err)
		}
		// Non-recursive listing reports sub-prefixes with a trailing slash
		if len(obj.Key) > 0 && obj.Key[len(obj.Key)-1] == '/' {
			continue
		}
		blobs = append(blobs, BlobInfo{
			Name:    obj.Key,
			Size:    obj.Size,
			ModTime: obj.LastModified,
			ETag:    obj.ETag,
		})
	}
	return blobs, nil
}

func (s *minioStorage) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(name, err)
	}
	return data, nil
}

func (s *minioStorage) mapError(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", name, ErrBlobNotFound)
	}
	return fmt.Errorf("get %s: %w", name, err)
}
