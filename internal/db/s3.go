package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config selects the bucket and, for S3-compatible stores such as MinIO,
// a custom endpoint. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket   string
	Endpoint string
	Region   string
	Prefix   string
}

// S3KV stores each slot as one object. PutObject replaces an object
// atomically, so readers see the previous value or the new one.
type S3KV struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3KV loads the default AWS configuration and builds a client for cfg.
func NewS3KV(ctx context.Context, cfg S3Config) (*S3KV, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: empty bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// Path-style addressing is what MinIO and Ceph expect.
			o.UsePathStyle = true
		}
	})

	return NewS3KVFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3KVFromClient wraps an existing client.
func NewS3KVFromClient(client *s3.Client, bucket, prefix string) *S3KV {
	if prefix == "" {
		prefix = "recipebox/"
	}
	return &S3KV{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3KV) objectKey(key string) string {
	return s.prefix + key + ".json"
}

// Get downloads the object for key. A missing object means the slot is absent.
func (s *S3KV) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("s3 get %s/%s: %w", s.bucket, s.objectKey(key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, fmt.Errorf("s3 read body %s/%s: %w", s.bucket, s.objectKey(key), err)
	}
	return string(data), true, nil
}

// Set uploads value as the object for key.
func (s *S3KV) Set(ctx context.Context, key, value string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          strings.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		if strings.Contains(err.Error(), "EntityTooLarge") {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, s.objectKey(key), err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no connection state to release.
func (s *S3KV) Close() error {
	return nil
}
