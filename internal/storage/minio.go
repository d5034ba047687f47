package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// MinioConfig holds the S3-compatible endpoint settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

// MinioStore keeps content in an S3-compatible bucket and hands out presigned GET URLs.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "init minio client failed")
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	s := &MinioStore{client: client, bucket: cfg.Bucket, expiry: expiry}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	logger.L().Info("minio store ready", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "check bucket failed")
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "create bucket failed")
	}
	logger.L().Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinioStore) Put(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	key := ObjectKey(name, data)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, appErr.Wrap(err, appErr.CodeUnavailable, "upload asset failed")
	}
	return Object{Ref: key, Name: SafeName(name), ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *MinioStore) URL(ctx context.Context, ref string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, s.expiry, make(url.Values))
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "presign asset url failed")
	}
	return u.String(), nil
}

func (s *MinioStore) Open(ctx context.Context, ref string) (io.ReadCloser, Object, error) {
	info, err := s.client.StatObject(ctx, s.bucket, ref, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, Object{}, appErr.New(appErr.CodeNotFound, "asset content not found")
		}
		return nil, Object{}, appErr.Wrap(err, appErr.CodeUnavailable, "stat asset failed")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, appErr.Wrap(err, appErr.CodeUnavailable, "open asset failed")
	}
	return obj, Object{Ref: ref, Name: NameFromRef(ref), ContentType: info.ContentType, Size: info.Size}, nil
}

var _ Store = (*MinioStore)(nil)
