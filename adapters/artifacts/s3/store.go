// Package s3 stores training artifacts in an S3-compatible bucket. Each run
// is written under its own key prefix; a pointer object naming the live run
// is written last, so readers never observe a half-published run.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"cropyield/adapters/artifacts"
	"cropyield/domain/core"
	"cropyield/ports"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// pointerName is the object holding the live run id.
const pointerName = "CURRENT"

// Config holds explicit construction parameters. Empty credentials fall back
// to the default AWS credential chain.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // optional; set for MinIO and other S3-compatible servers
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// Store is an S3-backed ports.ArtifactStore.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an artifact store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Describe names the backend for logs.
func (s *Store) Describe() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *Store) key(parts ...string) string {
	return path.Join(append([]string{s.prefix}, parts...)...)
}

func (s *Store) runKey(runID, name string) string {
	return s.key("runs", runID, artifacts.FileName(name))
}

// Save uploads the run's objects, then repoints CURRENT at the run.
func (s *Store) Save(ctx context.Context, bundle *ports.ArtifactBundle) error {
	blobs, err := artifacts.EncodeBundle(bundle)
	if err != nil {
		return err
	}
	runID := bundle.RunID.String()
	for _, name := range ports.ArtifactNames {
		if err := s.put(ctx, s.runKey(runID, name), blobs[name]); err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}
	}
	if err := s.put(ctx, s.key(pointerName), []byte(runID)); err != nil {
		return fmt.Errorf("failed to publish run pointer: %w", err)
	}
	log.Printf("[ArtifactStore] published run %s to %s", runID, s.Describe())
	return nil
}

// Load resolves CURRENT and fetches that run's objects.
func (s *Store) Load(ctx context.Context) (*ports.ArtifactBundle, error) {
	pointer, err := s.get(ctx, s.key(pointerName))
	if isNotFound(err) {
		return nil, core.NewMissingArtifactsError(ports.ArtifactNames...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run pointer: %w", err)
	}
	runID, err := core.ParseRunID(string(pointer))
	if err != nil {
		return nil, core.NewArtifactMismatchError("run pointer: %v", err)
	}

	blobs := make(map[string][]byte, len(ports.ArtifactNames))
	for _, name := range ports.ArtifactNames {
		data, err := s.get(ctx, s.runKey(runID.String(), name))
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", name, err)
		}
		blobs[name] = data
	}
	return artifacts.DecodeBundle(blobs)
}

func (s *Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	return err
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

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
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
