// Package storage provides the S3 backed object store for profile
// images.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// S3Store uploads profile images to a bucket and hands back a public
// URL. Objects are keyed profiles/{ownerID}/{uuid}{ext} so re-uploads
// never collide and old images stay resolvable until cleaned up.
type S3Store struct {
	uploader        *manager.Uploader
	bucket          string
	region          string
	publicBaseURL   string
	defaultImageURL string
}

// Option mutates the store during construction.
type Option func(*S3Store)

// WithPublicBaseURL overrides the URL prefix for uploaded objects, for
// CDN fronted buckets.
func WithPublicBaseURL(base string) Option {
	return func(s *S3Store) {
		s.publicBaseURL = strings.TrimRight(base, "/")
	}
}

// WithDefaultImageURL sets the image URL assigned to accounts that
// never uploaded one.
func WithDefaultImageURL(u string) Option {
	return func(s *S3Store) {
		if u != "" {
			s.defaultImageURL = u
		}
	}
}

// NewS3Store builds a store from the ambient AWS configuration.
func NewS3Store(ctx context.Context, region, bucket string, opts ...Option) (*S3Store, error) {
	if bucket == "" {
		return nil, goerrors.New("bucket is required", goerrors.CategoryOperation)
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(cfg)

	store := &S3Store{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// Put stores the image and returns its public URL.
func (s *S3Store) Put(ctx context.Context, ownerID string, data []byte, contentType string) (string, error) {
	key := objectKey(ownerID, contentType)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to upload object")
	}

	escaped := url.PathEscape(key)
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, escaped), nil
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped), nil
}

// DefaultImageURL returns the placeholder assigned to new accounts.
func (s *S3Store) DefaultImageURL() string {
	return s.defaultImageURL
}

func objectKey(ownerID, contentType string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("profiles/%s/%s%s", ownerID, uuid.New(), ext)
}
