package server

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// deleteBatchLimit is the S3 DeleteObjects ceiling per call.
const deleteBatchLimit = 1000

// S3BlobStore implements the BlobStore interface using AWS S3
type S3BlobStore struct {
	s3Client   *s3.S3
	uploader   *s3manager.Uploader
	bucketName string
	region     string
}

// NewS3BlobStore creates a new S3 blob store
func NewS3BlobStore(region, bucketName string) (*S3BlobStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &S3BlobStore{
		s3Client:   s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucketName: bucketName,
		region:     region,
	}, nil
}

// Upload stores data under key and returns the object URL
func (s *S3BlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key), nil
}

// ListKeys returns one listing page of keys under prefix. truncated
// reports whether more keys exist beyond that page; callers must not
// assume a single page covers prefixes with very large object counts.
func (s *S3BlobStore) ListKeys(ctx context.Context, prefix string) ([]string, bool, error) {
	output, err := s.s3Client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list blobs: %v", err)
	}

	keys := make([]string, 0, len(output.Contents))
	for _, obj := range output.Contents {
		keys = append(keys, *obj.Key)
	}

	truncated := output.IsTruncated != nil && *output.IsTruncated

	return keys, truncated, nil
}

// DeleteKeys removes the given keys, chunked to the DeleteObjects batch
// limit. Deletion is best effort: remaining chunks are still attempted
// after a failure, and all failures are reported together.
func (s *S3BlobStore) DeleteKeys(ctx context.Context, keys []string) error {
	var failed int
	var firstErr error

	for i := 0; i < len(keys); i += deleteBatchLimit {
		end := i + deleteBatchLimit
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]*s3.ObjectIdentifier, 0, end-i)
		for _, key := range keys[i:end] {
			objects = append(objects, &s3.ObjectIdentifier{
				Key: aws.String(key),
			})
		}

		output, err := s.s3Client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucketName),
			Delete: &s3.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			failed += end - i
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		// Quiet mode only reports keys that failed to delete
		failed += len(output.Errors)
		if len(output.Errors) > 0 && firstErr == nil {
			firstErr = fmt.Errorf("%s: %s", aws.StringValue(output.Errors[0].Key), aws.StringValue(output.Errors[0].Message))
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d blobs: %v", failed, len(keys), firstErr)
	}

	return nil
}
