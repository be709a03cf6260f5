// Package s3 reads source files addressed as s3://bucket/key from an S3
// compatible object store.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/loader"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const maxObjectSize = 32 << 20

// ObjectAPI is the subset of the S3 client used by S3FileSystem.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FileSystem is a loader.FileSystem over an S3 bucket.
//
// This loader is useful when source files are uploaded to object storage
// instead of being available on the worker's filesystem.
type S3FileSystem struct {
	client   ObjectAPI
	decoders map[string]loader.Decoder
	cache    *loader.Cache[[]byte]
}

// NewS3FileSystemWithClient creates an S3FileSystem using an existing
// client. Folder expansion keeps plain text files and decoder extensions.
func NewS3FileSystemWithClient(client ObjectAPI, decoders map[string]loader.Decoder) *S3FileSystem {
	return &S3FileSystem{
		client:   client,
		decoders: decoders,
		cache:    loader.NewCache[[]byte](),
	}
}

// NewS3FileSystemParams defines the configuration for NewS3FileSystem.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO), in which case path style addressing is used.
type NewS3FileSystemParams struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Decoders  map[string]loader.Decoder
}

// NewS3FileSystem creates an S3FileSystem with static credentials.
//
// Example:
//
//	fs, err := s3.NewS3FileSystem(ctx, s3.NewS3FileSystemParams{
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	files, err := fs.Expand(ctx, "s3://sources/notes/")
func NewS3FileSystem(ctx context.Context, params NewS3FileSystemParams) (*S3FileSystem, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = params.Endpoint != ""
	})
	return NewS3FileSystemWithClient(client, params.Decoders), nil
}

// ParseURI splits s3://bucket/key into its bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Expand returns the object at uri, or every supported object under it
// when the key is empty or ends in a slash.
func (l *S3FileSystem) Expand(ctx context.Context, uri string) ([]loader.File, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	if key != "" && !strings.HasSuffix(key, "/") {
		out, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to stat object: %w", err)
		}
		return []loader.File{{
			Path:    uri,
			Size:    aws.ToInt64(out.ContentLength),
			ModTime: aws.ToTime(out.LastModified),
		}}, nil
	}

	var files []loader.File
	p := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(key),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, "/") || !loader.Supported(k, l.decoders) {
				continue
			}
			files = append(files, loader.File{
				Path:    fmt.Sprintf("s3://%s/%s", bucket, k),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	slices.SortFunc(files, func(a, b loader.File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// GetFileText downloads the object. Downloads are shared within one
// loader.Scope.
func (l *S3FileSystem) GetFileText(ctx context.Context, file loader.File) ([]byte, error) {
	bucket, key, err := ParseURI(file.Path)
	if err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf("%s:%d", file.Path, file.ModTime.UnixNano())

	return l.cache.Get(ctx, cacheKey, func(ctx context.Context) ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get object: %w", err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, io.LimitReader(out.Body, maxObjectSize)); err != nil {
			return nil, fmt.Errorf("failed to read object: %w", err)
		}
		return buf.Bytes(), nil
	})
}
