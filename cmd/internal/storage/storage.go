// Package storage stores uploaded objects in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config carries the bucket connection settings. Endpoint points at an
// S3-compatible service such as MinIO.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string // base URL objects are served from; Endpoint when empty
}

// Bucket wraps an S3 client for a single bucket.
type Bucket struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewBucket builds the S3 client with static credentials, pointing at the
// configured endpoint with path-style addressing (required by MinIO).
func NewBucket(ctx context.Context, cfg Config) (*Bucket, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &Bucket{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// NewKey returns a collision-free storage key under prefix, partitioned by
// date so the bucket stays browsable.
func NewKey(prefix, filename string, now time.Time) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s",
		strings.Trim(prefix, "/"),
		now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

// Put writes an object and returns its key.
func (b *Bucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for a stored object.
func (b *Bucket) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", b.publicURL, b.bucket, key)
}
