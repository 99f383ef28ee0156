package minio

import (
	"context"
	"fmt"
	"io"

	"watermark-studio/internal/config"
	"watermark-studio/internal/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
)

type Store struct {
	client *minio.Client
	bucket string
	logger *zlog.Zerolog
}

func NewStore(cfg *config.Config, logger *zlog.Zerolog) (*Store, error) {
	client, err := minio.New(cfg.Storage.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.Minio.AccessKey, cfg.Storage.Minio.SecretKey, ""),
		Secure: cfg.Storage.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &Store{
		client: client,
		bucket: cfg.Storage.Minio.Bucket,
		logger: logger,
	}

	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	s.logger.Info().Str("bucket", s.bucket).Msg("Created bucket")
	return nil
}

func (s *Store) Put(ctx context.Context, path string, data io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", storage.ErrStorage, path, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", storage.ErrStorage, path, err)
	}

	// GetObject is lazy; surface missing objects on first stat.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("%w: stat %s: %v", storage.ErrStorage, path, err)
	}

	return obj, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %v", storage.ErrStorage, path, err)
	}
	return nil
}

func (s *Store) DeleteWithPrefix(ctx context.Context, prefix string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("%w: list %s: %v", storage.ErrStorage, prefix, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			s.logger.Error().Err(err).Str("key", obj.Key).Msg("Failed to remove object")
		}
	}

	return nil
}
