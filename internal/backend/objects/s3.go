package objects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultURLTTL is how long a presigned read link stays valid.
const DefaultURLTTL = 15 * time.Minute

// Options configures an S3Store.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Store implements Store on an S3-compatible endpoint.
type S3Store struct {
	bucket  string
	ttl     time.Duration
	client  s3API
	presign presignAPI
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds the S3 client with static credentials and path-style
// addressing, which the backend's storage gateway requires.
func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	return newS3Store(opts.Bucket, opts.URLTTL, client, s3.NewPresignClient(client)), nil
}

func newS3Store(bucket string, ttl time.Duration, client s3API, presign presignAPI) *S3Store {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &S3Store{bucket: bucket, ttl: ttl, client: client, presign: presign}
}

// Upload implements Store.
func (s *S3Store) Upload(ctx context.Context, path string, body io.ReadSeeker, size int64, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	// returned as-is, the message is shown to the user
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", err
	}
	return path, nil
}

// Remove implements Store.
func (s *S3Store) Remove(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// URL implements Store with a presigned GET.
func (s *S3Store) URL(ctx context.Context, path string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return req.URL, nil
}
