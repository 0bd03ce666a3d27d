// Package storage provides the two persistence backends for uploaded audio:
// a Backblaze B2 bucket accessed through its S3-compatible API (primary) and
// a local filesystem directory (fallback). Backend failures are normalized
// to a small set of error codes so callers never branch on SDK error types.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const defaultRequestTimeout = 20 * time.Second

// B2Config holds the settings needed to reach a B2 bucket over the
// S3-compatible API.
type B2Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	KeyID          string
	ApplicationKey string
	RequestTimeout time.Duration
}

// Configured reports whether all required credentials are present.
func (c B2Config) Configured() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.KeyID != "" && c.ApplicationKey != ""
}

// B2Store uploads objects to a Backblaze B2 bucket. Every request is bounded
// by the configured timeout so a hung backend cannot delay fallback.
type B2Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
	timeout  time.Duration
}

// NewB2Store creates a B2Store from cfg. cfg must be Configured.
func NewB2Store(cfg B2Config) *B2Store {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.ApplicationKey, ""),
		UsePathStyle: true,
	})

	return &B2Store{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		timeout:  timeout,
	}
}

// PutBytes streams body to the bucket at key and returns the public object
// URL. The payload is never buffered to disk; body is handed directly to
// the S3 client.
func (s *B2Store) PutBytes(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", normalizeS3Error(err, fmt.Sprintf("put object %q", key))
	}

	return s.Location(key), nil
}

// Delete removes the object at key. A missing object is not an error,
// matching the delete semantics of the local store.
func (s *B2Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return normalizeS3Error(err, fmt.Sprintf("delete object %q", key))
	}
	return nil
}

// CheckHealth probes the bucket with a HeadBucket request.
func (s *B2Store) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return normalizeS3Error(err, "head bucket")
	}
	return nil
}

// Location returns the public URL for an object key.
func (s *B2Store) Location(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
}

// KeyFromLocation extracts the object key from a URL previously returned by
// Location. The second return is false if the URL belongs to a different
// endpoint or bucket.
func (s *B2Store) KeyFromLocation(location string) (string, bool) {
	prefix := s.endpoint + "/" + s.bucket + "/"
	if !strings.HasPrefix(location, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(location, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// normalizeS3Error maps SDK failures to the error-code taxonomy. Timeouts
// take priority over API classification because a deadline expiry may
// surface wrapped inside a transport error.
func normalizeS3Error(err error, detail string) *StorageError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewStorageError(ErrCodeTimeout, detail, err)
	}

	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return NewStorageError(ErrCodeBucketNotFound, detail, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return NewStorageError(ErrCodeBucketNotFound, detail, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Unauthorized", "UnauthorizedAccess", "ExpiredToken":
			return NewStorageError(ErrCodeAuth, detail, err)
		case "SlowDown", "TooManyRequests", "RequestLimitExceeded", "Throttling", "ThrottlingException":
			return NewStorageError(ErrCodeRateLimited, detail, err)
		}
	}

	return NewStorageError(ErrCodeNetwork, detail, err)
}
