package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Options configures the S3 backend. Endpoint is set for S3-compatible services.
type S3Options struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// S3Storage keeps blobs in a bucket. Credentials come from the default AWS chain.
type S3Storage struct {
	opts     S3Options
	client   s3iface.S3API
	uploader *s3manager.Uploader
}

// NewS3Storage creates a session and client for opts.
func NewS3Storage(opts S3Options) (*S3Storage, error) {
	awsCfg := &aws.Config{Region: aws.String(opts.Region)}
	if opts.Endpoint != "" {
		awsCfg.Endpoint = aws.String(opts.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newS3StorageWithClient(opts, s3.New(sess)), nil
}

func newS3StorageWithClient(opts S3Options, client s3iface.S3API) *S3Storage {
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	return &S3Storage{
		opts:     opts,
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}
}

func (s *S3Storage) remotePath(key string) string {
	if s.opts.Prefix == "" {
		return key
	}
	return s.opts.Prefix + "/" + key
}

func (s *S3Storage) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(s.remotePath(key)),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(s.remotePath(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) URL(key string) string {
	if key == "" {
		return ""
	}
	if s.opts.Endpoint != "" {
		return strings.TrimRight(s.opts.Endpoint, "/") + "/" + s.opts.Bucket + "/" + s.remotePath(key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, s.remotePath(key))
}
