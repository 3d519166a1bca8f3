package refusal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source supplies advice documents in the order they should be merged
type Source interface {
	Documents(ctx context.Context) ([]Document, error)
}

// FileSource reads advice from the local filesystem. Each pattern may be a
// plain path or a glob; glob matches are read in lexical order.
type FileSource struct {
	Patterns []string
}

// Documents implements Source
func (f FileSource) Documents(ctx context.Context) ([]Document, error) {
	seen := map[string]bool{}
	var docs []Document
	for _, pattern := range f.Patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, &ConfigError{Source: pattern, Err: err}
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, fmt.Errorf("failed to read refusal advice %s: %w", pattern, os.ErrNotExist)
		}
		sort.Strings(matches)

		for _, path := range matches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if seen[path] {
				continue
			}
			seen[path] = true

			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read refusal advice %s: %w", path, err)
			}
			docs = append(docs, Document{Name: path, Data: data})
		}
	}
	return docs, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

const (
	defaultHTTPTimeout = 30 * time.Second
	maxRetries         = 3
	initialBackoff     = 2 * time.Second
)

// HTTPSource fetches advice documents from a list of URLs
type HTTPSource struct {
	URLs    []string
	client  *http.Client
	backoff time.Duration
}

// NewHTTPSource creates an HTTPSource with a bounded client timeout
func NewHTTPSource(urls []string) *HTTPSource {
	return &HTTPSource{
		URLs:    urls,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		backoff: initialBackoff,
	}
}

// Documents implements Source
func (h *HTTPSource) Documents(ctx context.Context) ([]Document, error) {
	docs := make([]Document, 0, len(h.URLs))
	for _, url := range h.URLs {
		body, err := h.fetchWithRetry(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch refusal advice %s: %w", url, err)
		}
		docs = append(docs, Document{Name: url, Data: body})
	}
	return docs, nil
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry
func (h *HTTPSource) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := h.backoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("not found (HTTP 404)")
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// S3API is the subset of the S3 client used to read advice
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates advice documents in a bucket
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// S3Source reads every .yml/.yaml object under a prefix, in key order
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Source builds an S3 client from the default credential chain
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3SourceWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3SourceWithClient wraps an existing client
func NewS3SourceWithClient(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// Documents implements Source
func (s *S3Source) Documents(ctx context.Context) ([]Document, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".yml") || strings.HasSuffix(key, ".yaml") {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
		}
		docs = append(docs, Document{Name: "s3://" + s.bucket + "/" + key, Data: data})
	}
	return docs, nil
}
