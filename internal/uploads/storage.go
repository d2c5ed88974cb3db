package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// PresignAPI is the subset of the S3 presign client used by Storage.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectAPI is the subset of the S3 client used for object deletion.
type ObjectAPI interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage issues short-lived signed URLs against the patient-files bucket.
// Read URLs are generated per request and never cached since they expire.
type Storage struct {
	bucket      string
	presign     PresignAPI
	objects     ObjectAPI
	uploadTTL   time.Duration
	downloadTTL time.Duration
	logger      *logging.Logger
}

// NewStorage creates the signed-URL issuer.
func NewStorage(presign PresignAPI, objects ObjectAPI, bucket string, uploadTTL, downloadTTL time.Duration, logger *logging.Logger) *Storage {
	if logger == nil {
		logger = logging.Default()
	}
	if uploadTTL <= 0 {
		uploadTTL = 10 * time.Minute
	}
	if downloadTTL <= 0 {
		downloadTTL = 15 * time.Minute
	}
	return &Storage{
		bucket:      bucket,
		presign:     presign,
		objects:     objects,
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
		logger:      logger,
	}
}

// SignedUploadURL returns a write-capable URL for the given key.
func (s *Storage) SignedUploadURL(ctx context.Context, key, mimeType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}
	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		return "", fmt.Errorf("uploads: presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// SignedDownloadURL returns a read URL for the given key.
func (s *Storage) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.downloadTTL))
	if err != nil {
		return "", fmt.Errorf("uploads: presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// DeleteObject removes an object; used by the orphan sweeper.
func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	if s.objects == nil {
		return fmt.Errorf("uploads: object client not configured")
	}
	if _, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("uploads: delete %s: %w", key, err)
	}
	return nil
}
