// utils/r2.go
package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mock-assessment-service/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrStorageDisabled is returned by every R2Client operation when no bucket is
// configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// R2Client hands out presigned uploads for assessment artwork. It talks to
// Cloudflare R2 when an account id is set and to any S3-compatible endpoint
// (or AWS itself) otherwise.
type R2Client struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	cdnBase   string
	ttl       time.Duration
}

// NewR2Client returns a disabled client when cfg.Bucket is empty.
func NewR2Client(ctx context.Context, cfg config.StorageConfig) (*R2Client, error) {
	if cfg.Bucket == "" {
		return &R2Client{}, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion("auto")}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	cdnBase := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdnBase == "" {
		cdnBase = strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &R2Client{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		cdnBase:   cdnBase,
		ttl:       ttl,
	}, nil
}

func (r *R2Client) Enabled() bool { return r != nil && r.bucket != "" }

// PublicURL is the CDN address of key.
func (r *R2Client) PublicURL(key string) string {
	return r.cdnBase + "/" + key
}

// PresignUpload returns a time-limited PUT URL for key and the public URL the
// object will be served from once uploaded.
func (r *R2Client) PresignUpload(ctx context.Context, key, contentType string) (uploadURL, publicURL string, err error) {
	if !r.Enabled() {
		return "", "", ErrStorageDisabled
	}
	req, err := r.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, r.PublicURL(key), nil
}

// KeyFromURL reverses PublicURL. ok is false for URLs served from elsewhere.
func (r *R2Client) KeyFromURL(publicURL string) (key string, ok bool) {
	if !r.Enabled() {
		return "", false
	}
	key, ok = strings.CutPrefix(publicURL, r.cdnBase+"/")
	return key, ok && key != ""
}

// DeleteByURL removes the object behind a URL returned by PublicURL. URLs that
// do not point into the bucket are ignored.
func (r *R2Client) DeleteByURL(ctx context.Context, publicURL string) error {
	key, ok := r.KeyFromURL(publicURL)
	if !ok {
		return nil
	}
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from R2: %w", key, err)
	}
	return nil
}
