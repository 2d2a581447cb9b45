package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/openmined/notereview/internal/snapshot"
)

// s3API is the subset of *s3.Client used by S3BlobStore.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3BlobStore keeps snapshot blobs as objects <prefix><hash>.sn in a bucket.
type S3BlobStore struct {
	client s3API
	config *S3Config
}

func NewS3BlobStore(ctx context.Context, cfg *S3Config) (*S3BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 30 * time.Second,
	}

	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(httpClient),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	} else {
		opts = append(opts, config.WithRegion("us-east-1"))
	}
	// fall back to the default credential chain when no static keys are configured
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3BlobStore(client, cfg), nil
}

func newS3BlobStore(client s3API, cfg *S3Config) *S3BlobStore {
	return &S3BlobStore{client: client, config: cfg}
}

func (s *S3BlobStore) key(hash string) string {
	return s.config.prefix() + snapshot.BlobRef(hash)
}

// ===================================================================================================

func (s *S3BlobStore) Put(ctx context.Context, hash string, payload string) error {
	if !snapshot.IsValidHash(hash) {
		return snapshot.ErrInvalidHash
	}
	key := s.key(hash)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err == nil {
		return nil
	} else if !isNotFound(err) {
		return fmt.Errorf("head %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.config.BucketName,
		Key:           &key,
		Body:          strings.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *S3BlobStore) Get(ctx context.Context, hash string) (string, error) {
	if !snapshot.IsValidHash(hash) {
		return "", snapshot.ErrInvalidHash
	}
	key := s.key(hash)

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:       &s.config.BucketName,
		Key:          &key,
		ChecksumMode: types.ChecksumModeEnabled,
	})
	if isNotFound(err) {
		return "", fmt.Errorf("%w: %s", snapshot.ErrBlobNotFound, hash)
	} else if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), nil
}

func (s *S3BlobStore) Delete(ctx context.Context, hash string) error {
	if !snapshot.IsValidHash(hash) {
		return snapshot.ErrInvalidHash
	}
	key := s.key(hash)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3BlobStore) List(ctx context.Context) ([]string, error) {
	prefix := s.config.prefix()
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.config.BucketName,
		Prefix: aws.String(prefix),
	})

	var hashes []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			hash, ok := strings.CutSuffix(name, snapshot.BlobSuffix)
			if !ok || !snapshot.IsValidHash(hash) {
				continue
			}
			hashes = append(hashes, hash)
		}
	}

	sort.Strings(hashes)
	return hashes, nil
}

// ===================================================================================================

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// check if S3BlobStore implements snapshot.BlobStore
var _ snapshot.BlobStore = (*S3BlobStore)(nil)
