package cache

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader copies a local file to object storage
type Uploader interface {
	Upload(ctx context.Context, key, localPath string) (string, error)
}

// PublishOptions configures an S3-compatible destination for finished cache files
type PublishOptions struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Publisher uploads cache files to a MinIO or S3-compatible bucket
type Publisher struct {
	client *minio.Client
	bucket string
}

var _ Uploader = (*Publisher)(nil)

// NewPublisher creates a publisher from static credentials
func NewPublisher(opts PublishOptions) (*Publisher, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("publish: endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return &Publisher{client: client, bucket: opts.Bucket}, nil
}

// Upload puts localPath at key and returns the object's location
func (p *Publisher) Upload(ctx context.Context, key, localPath string) (string, error) {
	_, err := p.client.FPutObject(ctx, p.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to %s/%s: %w", localPath, p.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

// ObjectKey joins prefix and the base name of localPath into an object key
func ObjectKey(prefix, localPath string) string {
	name := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
