// Package s3 stores document binaries in an S3 bucket: presigned upload
// targets for envelope submission, direct uploads for normalization and
// the artifact store used between workflow activities.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/domain"
)

// Store is an S3-backed blob store.
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
}

// New builds a Store from cfg. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies. A custom
// endpoint targets S3-compatible stores such as LocalStack or MinIO.
func New(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		expiry:    cfg.PresignExpiry.Std(),
	}, nil
}

func (s *Store) key(parts ...string) string {
	return path.Join(append([]string{s.prefix}, parts...)...)
}

// IssueUploadTargets presigns one PUT per file under a fresh submission
// prefix. PublicURL is a presigned GET of the same object.
func (s *Store) IssueUploadTargets(ctx context.Context, files []domain.FileDescriptor) ([]domain.UploadTarget, error) {
	batch := uuid.NewString()
	out := make([]domain.UploadTarget, len(files))
	for i, f := range files {
		key := s.key("envelopes", batch, f.Name)

		put, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			ContentType: aws.String(f.MIMEType),
		}, s3.WithPresignExpires(s.expiry))
		if err != nil {
			return nil, fmt.Errorf("failed to presign put object: %w", err)
		}

		get, err := s.presignGet(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = domain.UploadTarget{UploadURL: put.URL, PublicURL: get, Name: f.Name}
	}
	return out, nil
}

func (s *Store) presignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return req.URL, nil
}

// UploadDocument writes content and returns a presigned GET URL the
// conversion service can read.
func (s *Store) UploadDocument(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	key := s.key("exports", uuid.NewString(), name)
	if err := s.put(ctx, key, mimeType, content); err != nil {
		return "", err
	}
	return s.presignGet(ctx, key)
}

func (s *Store) put(ctx context.Context, key, contentType string, content []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Get implements artifact.Store.
func (s *Store) Get(ctx context.Context, ref domain.ArtifactRef) ([]byte, error) {
	if ref.Key == "" {
		return nil, artifact.ErrKeyEmpty
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref.Key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, ref.Key)
		}
		return nil, fmt.Errorf("get object %s: %w", ref.Key, err)
	}
	defer func() { _ = out.Body.Close() }()
	return io.ReadAll(out.Body)
}

// Put implements artifact.Store.
func (s *Store) Put(ctx context.Context, content []byte, kind domain.ArtifactKind, key string) (domain.ArtifactRef, error) {
	if key == "" {
		return domain.ArtifactRef{}, artifact.ErrKeyEmpty
	}
	if err := s.put(ctx, s.key(key), "application/octet-stream", content); err != nil {
		return domain.ArtifactRef{}, err
	}
	return domain.ArtifactRef{Key: key, Size: int64(len(content)), Kind: kind}, nil
}

// Exists implements artifact.Store.
func (s *Store) Exists(ctx context.Context, ref domain.ArtifactRef) (bool, error) {
	if ref.Key == "" {
		return false, artifact.ErrKeyEmpty
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref.Key)),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("head object %s: %w", ref.Key, err)
	}
}

// Delete implements artifact.Store.
func (s *Store) Delete(ctx context.Context, ref domain.ArtifactRef) error {
	if ref.Key == "" {
		return artifact.ErrKeyEmpty
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref.Key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object %s: %w", ref.Key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

var _ artifact.Store = (*Store)(nil)
