package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the S3 backend.
type S3Config struct {
	Region    string
	Bucket    string
	Prefix    string
	PublicURL string // CDN or bucket URL; defaults to the bucket's virtual-hosted URL
}

// S3 stores images in an S3 bucket.
type S3 struct {
	client    putter
	bucket    string
	prefix    string
	publicURL string
}

// NewS3 loads AWS credentials from the default chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("imagestore: load aws config: %w", err)
	}
	return newS3(s3.NewFromConfig(awsCfg), cfg, awsCfg.Region), nil
}

func newS3(client putter, cfg S3Config, region string) *S3 {
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, publicURL: public}
}

func (s *S3) Put(ctx context.Context, contentType string, r io.Reader) (string, error) {
	key, err := ObjectKey(s.prefix, contentType)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("imagestore: put %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

var _ Store = (*S3)(nil)
