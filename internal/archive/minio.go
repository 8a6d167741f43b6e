package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	pkgerrors "github.com/pkg/errors"

	"github.com/terraproof/service/internal/config"
)

// Minio implements Archive on MinIO or any S3-compatible store.
type Minio struct {
	client     *minio.Client
	bucket     string
	publicBase string
	logger     *log.Logger
}

var _ Archive = (*Minio)(nil)

// NewMinio connects to cfg.Endpoint, creates the bucket if missing and applies
// a public-read policy.
func NewMinio(ctx context.Context, cfg config.Archive, logger *log.Logger) (*Minio, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "archive")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "check bucket existence")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, pkgerrors.Wrapf(err, "create bucket %q", cfg.Bucket)
		}
		logger.Info("created bucket", "bucket", cfg.Bucket)
	}

	if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
		return nil, pkgerrors.Wrap(err, "set bucket policy")
	}

	publicBase := cfg.PublicBase
	if publicBase == "" {
		publicBase = defaultPublicBase(cfg)
	}

	return &Minio{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger,
	}, nil
}

func (m *Minio) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	info, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "put object %q", key)
	}
	m.logger.Debug("archived object", "key", key, "etag", info.ETag)
	return nil
}

// PublicURL joins the public base and key, e.g.
// "http://localhost:9000/terra-proof/uploads/2024/05/<uuid>-photo.jpg".
func (m *Minio) PublicURL(key string) string {
	return m.publicBase + "/" + key
}

func defaultPublicBase(cfg config.Archive) string {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

// publicReadPolicy allows anonymous GET on every object in bucket.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
