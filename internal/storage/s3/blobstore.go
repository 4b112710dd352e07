// Package s3 archives raw student media in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Rrens/rag-tutor/internal/config"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// BlobStore uploads media and returns a URL for the research log
type BlobStore struct {
	bucket    string
	prefix    string
	publicURL string
	up        uploader
	now       func() time.Time
}

// NewBlobStore builds an uploader from static credentials. An empty endpoint
// means AWS itself; anything else is treated as an S3-compatible service.
func NewBlobStore(ctx context.Context, cfg config.StorageConfig) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey},
		}))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: cfg.Region}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return newBlobStore(cfg, manager.NewUploader(client)), nil
}

func newBlobStore(cfg config.StorageConfig, up uploader) *BlobStore {
	return &BlobStore{
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		up:        up,
		now:       time.Now,
	}
}

// Upload stores data under a fresh key and returns where it can be fetched
func (b *BlobStore) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	key := b.objectKey(mimeType)

	out, err := b.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	if b.publicURL != "" {
		return b.publicURL + "/" + key, nil
	}
	if out != nil && out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("s3://%s/%s", b.bucket, key), nil
}

func (b *BlobStore) objectKey(mimeType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return path.Join(b.prefix, b.now().UTC().Format("2006/01/02"), uuid.NewString()+ext)
}
