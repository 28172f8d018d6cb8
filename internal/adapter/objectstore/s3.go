package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	appconfig "github.com/paulcyi/cloudops-automation-toolkit/internal/config"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
)

type S3Store struct {
	client     *s3.Client
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	bucket     string
}

// NewS3 builds an S3-backed object store and verifies bucket access before
// returning. A failed access check surfaces as *domain.ConnectionError with
// "not found" distinguished from "access denied".
func NewS3(ctx context.Context, cfg *appconfig.BackupConfig) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	s := &S3Store{
		client:     client,
		uploader:   s3manager.NewUploader(client),
		downloader: s3manager.NewDownloader(client),
		bucket:     cfg.Bucket,
	}

	if err := s.verifyBucketAccess(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *S3Store) verifyBucketAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err == nil {
		return nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 404:
			return &domain.ConnectionError{Bucket: s.bucket, Reason: "bucket does not exist", Err: err}
		case 403:
			return &domain.ConnectionError{Bucket: s.bucket, Reason: "access denied", Err: err}
		}
	}
	return &domain.ConnectionError{Bucket: s.bucket, Reason: "bucket access check failed", Err: err}
}

func (s *S3Store) Bucket() string { return s.bucket }

// PutObject uploads body under key with the given user metadata and returns
// the version ID assigned by the store (empty on unversioned buckets).
func (s *S3Store) PutObject(ctx context.Context, key string, body io.Reader, metadata map[string]string) (string, error) {
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   &s.bucket,
		Key:      &key,
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return "", s.operationError("put_object", key, err)
	}

	if out.VersionID != nil {
		return *out.VersionID, nil
	}
	return "", nil
}

// HeadObject returns the user metadata stored on key. A missing object is a
// permanent OperationError.
func (s *S3Store) HeadObject(ctx context.Context, key string) (map[string]string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, s.operationError("head_object", key, err)
	}
	return out.Metadata, nil
}

// ListObjects lists keys under prefix. A maxItems of zero or less means no
// limit.
func (s *S3Store) ListObjects(ctx context.Context, prefix string, maxItems int) ([]domain.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	}
	if maxItems > 0 {
		limit := int32(maxItems)
		input.MaxKeys = &limit
	}
	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, s.operationError("list_objects", prefix, err)
	}

	var objects []domain.ObjectInfo
	for _, obj := range out.Contents {
		info := domain.ObjectInfo{Key: *obj.Key}
		if obj.Size != nil {
			info.Size = *obj.Size
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		objects = append(objects, info)
	}

	return objects, nil
}

func (s *S3Store) DownloadObject(ctx context.Context, key string, destPath string) error {
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	_, err = s.downloader.Download(ctx, dest, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return s.operationError("download_object", key, err)
	}

	return nil
}

// operationError classifies a failed call: server faults, throttling and
// transport-level failures are transient; client faults such as a missing
// object or bad credentials are permanent.
func (s *S3Store) operationError(op, key string, err error) error {
	transient := true

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "RequestTimeout", "SlowDown", "Throttling", "ThrottlingException",
			"InternalError", "ServiceUnavailable":
			transient = true
		default:
			transient = apiErr.ErrorFault() == smithy.FaultServer
		}
	}

	return &domain.OperationError{Op: op, Key: key, Transient: transient, Err: err}
}
