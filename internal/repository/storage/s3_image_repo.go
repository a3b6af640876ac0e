package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/scholarx/scholarx-backend/internal/config"
)

// Avatar keys are never rewritten, so clients may cache them for good.
const avatarCacheControl = "public, max-age=31536000, immutable"

// objectAPI is the subset of the S3 client the repository uses
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageRepository stores profile pictures in an S3 compatible bucket
type S3ImageRepository struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// NewS3ImageRepository connects to S3 (or a compatible endpoint such as
// LocalStack) and creates the bucket when it is missing.
func NewS3ImageRepository(ctx context.Context, s3cfg cfg.S3Config) (*S3ImageRepository, error) {
	client, err := newS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}

	repo := newS3ImageRepository(client, s3cfg.Bucket, publicBaseURL(s3cfg))
	if err := repo.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newS3ImageRepository(api objectAPI, bucket, baseURL string) *S3ImageRepository {
	return &S3ImageRepository{api: api, bucket: bucket, baseURL: baseURL}
}

func newS3Client(ctx context.Context, s3cfg cfg.S3Config) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(s3cfg.Region)}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(static))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func isMissingBucket(err error) bool {
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchBucket)
}

func (r *S3ImageRepository) ensureBucket(ctx context.Context) error {
	_, err := r.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	switch {
	case err == nil:
		return nil
	case !isMissingBucket(err):
		return fmt.Errorf("head bucket %s: %w", r.bucket, err)
	}

	if _, err := r.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(r.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", r.bucket, err)
	}
	return nil
}

// Upload writes the object and returns its key. A negative size buffers the
// reader first so the request carries a content length.
func (r *S3ImageRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if size < 0 {
		buf, err := io.ReadAll(data)
		if err != nil {
			return "", fmt.Errorf("read avatar: %w", err)
		}
		data, size = bytes.NewReader(buf), int64(len(buf))
	}

	_, err := r.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(objectPath),
		Body:          data,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String(avatarCacheControl),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectPath, err)
	}
	return objectPath, nil
}

func (r *S3ImageRepository) Delete(ctx context.Context, objectPath string) error {
	_, err := r.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", objectPath, err)
	}
	return nil
}

func (r *S3ImageRepository) URL(objectPath string) string {
	return r.baseURL + "/" + objectPath
}

func (r *S3ImageRepository) ObjectPath(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, r.baseURL+"/")
	return key, ok && key != ""
}

// publicBaseURL prefers an explicit public URL, then a path-style custom
// endpoint, then the virtual-hosted AWS address.
func publicBaseURL(s3cfg cfg.S3Config) string {
	if s3cfg.PublicURL != "" {
		return strings.TrimSuffix(s3cfg.PublicURL, "/")
	}
	if s3cfg.Endpoint != "" {
		return strings.TrimSuffix(s3cfg.Endpoint, "/") + "/" + s3cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s3cfg.Bucket, s3cfg.Region)
}
