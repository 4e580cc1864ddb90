package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 30 * time.Second
)

// AWSClient implements Client against an S3-compatible endpoint, typically
// the bucket service on a shipped storage appliance.
type AWSClient struct {
	client     *s3.Client
	downloader *manager.Downloader
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewAWSClient creates a client for the given endpoint. Appliance endpoints
// do not serve virtual-hosted bucket names, so path-style addressing is used.
func NewAWSClient(cfg aws.Config, endpoint string) *AWSClient {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return &AWSClient{
		client:     client,
		downloader: manager.NewDownloader(client),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
}

// ListPage fetches one page of the bucket listing. An empty cursor requests
// the first page; the returned Page carries the cursor for the next one.
func (c *AWSClient) ListPage(ctx context.Context, bucket, cursor string) (*Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}

	output, err := c.listObjectsV2WithRetry(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	page := &Page{
		Truncated:  aws.ToBool(output.IsTruncated),
		NextCursor: aws.ToString(output.NextContinuationToken),
	}
	for _, obj := range output.Contents {
		if obj.Key == nil || obj.Size == nil {
			continue
		}
		page.Objects = append(page.Objects, Object{
			Key:  *obj.Key,
			Size: aws.ToInt64(obj.Size),
		})
	}

	return page, nil
}

// DownloadFile downloads the object to localPath, blocking until the file is
// fully written. The bytes land in a temporary sibling file that is renamed
// onto localPath only after the download succeeds, so localPath never holds a
// partially written object. The downloader writes parts concurrently via
// WriteAt, which makes a half-finished destination indistinguishable from a
// complete one by size alone.
func (c *AWSClient) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(localPath), filepath.Base(localPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = c.downloadWithRetry(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if closeErr := tmp.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download object: %w", err)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func (c *AWSClient) listObjectsV2WithRetry(ctx context.Context, input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		output, err := c.client.ListObjectsV2(ctx, input)
		if err == nil {
			return output, nil
		}

		if !c.isRetryableError(err) {
			return nil, err
		}

		lastErr = err
		if attempt < c.maxRetries {
			delay := c.calculateDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *AWSClient) downloadWithRetry(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput) (int64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		n, err := c.downloader.Download(ctx, w, input)
		if err == nil {
			return n, nil
		}

		if !c.isRetryableError(err) {
			return 0, err
		}

		lastErr = err
		if attempt < c.maxRetries {
			delay := c.calculateDelay(attempt)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return 0, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError checks if an error is retryable
func (c *AWSClient) isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException":
			return true
		}
		// Retry on 5xx errors
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
	}
	// Also retry on network errors
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// calculateDelay calculates the retry delay with exponential backoff and jitter
func (c *AWSClient) calculateDelay(attempt int) time.Duration {
	base := float64(c.baseDelay)
	delay := base * math.Pow(2.0, float64(attempt))

	// Add jitter (±25%)
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter

	// Cap at maxDelay
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}

	return time.Duration(delay)
}
