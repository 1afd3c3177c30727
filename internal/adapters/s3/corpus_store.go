// Package s3 stores corpora as objects in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

const (
	keyPrefix   = "corpora/"
	keySuffix   = ".txt"
	metaNameKey = "Corpus-Name"
)

// Options configure the S3 client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// CorpusStore keeps one object per corpus under corpora/<id>.txt with the
// display name in user metadata.
type CorpusStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewCorpusStore creates a store backed by a MinIO client.
func NewCorpusStore(opts Options) (*CorpusStore, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &CorpusStore{client: client, bucket: opts.Bucket, region: opts.Region}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *CorpusStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func objectKey(id string) string { return keyPrefix + id + keySuffix }

func idFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, keySuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix), true
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func (s *CorpusStore) Lookup(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", model.ErrCorpusNotFound, id)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %q", model.ErrCorpusNotFound, id)
		}
		return "", fmt.Errorf("s3 get object: %w", err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on first read.
	body, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %q", model.ErrCorpusNotFound, id)
		}
		return "", fmt.Errorf("s3 read object: %w", err)
	}
	return string(body), nil
}

func (s *CorpusStore) Create(ctx context.Context, req *model.CreateCorpusRequest) (*model.Corpus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	info, err := s.client.PutObject(ctx, s.bucket, objectKey(id),
		bytes.NewReader([]byte(req.Text)), int64(len(req.Text)),
		minio.PutObjectOptions{
			ContentType:  "text/plain; charset=utf-8",
			UserMetadata: map[string]string{metaNameKey: req.Name},
		})
	if err != nil {
		return nil, fmt.Errorf("s3 put object: %w", err)
	}
	return &model.Corpus{ID: id, Name: req.Name, Text: req.Text, CreatedAt: info.LastModified}, nil
}

// List pages through objects in key order. Names come from a metadata read
// per returned object.
func (s *CorpusStore) List(ctx context.Context, limit, offset int) ([]*model.CorpusSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := []*model.CorpusSummary{}
	skipped := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: keyPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", obj.Err)
		}
		id, ok := idFromKey(obj.Key)
		if !ok {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit >= 0 && len(out) >= limit {
			break
		}

		stat, err := s.client.StatObject(ctx, s.bucket, obj.Key, minio.StatObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("s3 stat object: %w", err)
		}
		out = append(out, &model.CorpusSummary{
			ID:        id,
			Name:      stat.UserMetadata[metaNameKey],
			CreatedAt: obj.LastModified,
		})
	}
	return out, nil
}

var _ core.CorpusRepository = (*CorpusStore)(nil)
