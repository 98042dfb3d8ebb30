package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"media_share_service/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client AWS S3 (或相容服務) 物件儲存
type S3Client struct {
	client        *s3.Client
	bucketName    string
	publicBaseURL string
}

// NewS3Client create S3 client; static credentials are used when User is set,
// otherwise the default AWS credential chain
func NewS3Client(ctx context.Context, d S3Connection) (*S3Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(d.Region)}
	if d.User != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(d.User, d.Password, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if d.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := d.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", d.BucketName, d.Region)
	}

	logger.Log.Info(fmt.Sprintf("S3 bucket[%s] region[%s] ready", d.BucketName, d.Region))
	return &S3Client{client: client, bucketName: d.BucketName, publicBaseURL: base}, nil
}

// Scheme s3://key
func (s *S3Client) Scheme() string {
	return "s3"
}

// Upload put data under key and return its public url
func (s *S3Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.PublicURL(key), nil
}

// Download read the whole object
func (s *S3Client) Download(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

// Delete remove an object
func (s *S3Client) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	return err
}

// PublicURL url served for key
func (s *S3Client) PublicURL(key string) string {
	return strings.TrimRight(s.publicBaseURL, "/") + "/" + key
}
