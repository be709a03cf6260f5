// Package storage exports run artifacts to S3 compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dslunde/Glyph-sub000/internal/config"
	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	putRetries    = 3
	putRetryDelay = 500 * time.Millisecond
	linkExpiry    = 15 * time.Minute
)

// Artifact file names under runs/<runID>/.
const (
	GraphArtifact   = "graph.json"
	MinimalArtifact = "minimal.json"
	PlanArtifact    = "plan.json"
)

// ObjectWriter is the part of the S3 client the exporter writes with.
type ObjectWriter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client creates a client for cfg. A custom endpoint switches to path
// style addressing, which MinIO and other S3 compatible stores need.
func NewS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	}), nil
}

// Exporter writes run artifacts as JSON objects.
type Exporter struct {
	client ObjectWriter
	bucket string
	prefix string
}

// NewExporter creates an Exporter writing to bucket. Keys are
// <prefix>/runs/<runID>/<artifact>; an empty prefix writes at the root.
func NewExporter(client ObjectWriter, bucket, prefix string) *Exporter {
	return &Exporter{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// RunKey returns the object key of an artifact of runID.
func (e *Exporter) RunKey(runID, artifact string) string {
	return path.Join(e.prefix, "runs", runID, artifact)
}

// PutJSON marshals v and uploads it to key, retrying transient failures.
func (e *Exporter) PutJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	err = util.RetryErrWithContext(ctx, putRetries, putRetryDelay, func(ctx context.Context) error {
		_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(e.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

// Export uploads the graph, minimal subgraph and plan of a run and returns
// the written keys. Nil artifacts are skipped.
func (e *Exporter) Export(
	ctx context.Context,
	runID string,
	graph *common.Graph,
	minimal *common.MinimalSubgraph,
	plan *common.LearningPlan,
) ([]string, error) {
	artifacts := []struct {
		name  string
		value any
		ok    bool
	}{
		{GraphArtifact, graph, graph != nil},
		{MinimalArtifact, minimal, minimal != nil},
		{PlanArtifact, plan, plan != nil},
	}

	keys := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if !a.ok {
			continue
		}
		key := e.RunKey(runID, a.name)
		if err := e.PutJSON(ctx, key, a.value); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	logger.Info("[Storage] Exported run artifacts", "run_id", runID, "bucket", e.bucket, "objects", len(keys))
	return keys, nil
}

// GenerateDownloadLink presigns a GET for key. When publicEndpoint is set
// the link is signed for that host, and a path prefix on it is kept.
func GenerateDownloadLink(ctx context.Context, baseClient *s3.Client, bucket, publicEndpoint, key string) (string, error) {
	client := baseClient
	prefix := ""
	if publicEndpoint != "" {
		publicURL, err := url.Parse(publicEndpoint)
		if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
			return "", fmt.Errorf("invalid public endpoint: %s", publicEndpoint)
		}
		prefix = strings.TrimSuffix(publicURL.Path, "/")

		// The signature covers the Host header, so sign for the public host.
		client = s3.NewFromConfig(
			aws.Config{
				Region:      baseClient.Options().Region,
				Credentials: baseClient.Options().Credentials,
				HTTPClient:  baseClient.Options().HTTPClient,
			},
			func(o *s3.Options) {
				o.BaseEndpoint = aws.String(publicURL.Scheme + "://" + publicURL.Host)
				o.UsePathStyle = true
			},
		)
	}

	out, err := s3.NewPresignClient(client).PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(linkExpiry),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}

	if prefix == "" {
		return out.URL, nil
	}
	signedURL, err := url.Parse(out.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned url: %w", err)
	}
	signedURL.Path = prefix + signedURL.Path
	return signedURL.String(), nil
}
