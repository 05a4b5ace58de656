package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mamadbah2/cableshop/internal/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Remote writes one JSON object per entity type to an S3-compatible bucket
// (AWS S3 or MinIO). Keys are <prefix>/<device>/<entity>.json and are overwritten
// on every push.
type S3Remote struct {
	client objectPutter
	bucket string
	prefix string
}

type s3Object struct {
	DeviceID    string          `json:"deviceId"`
	Entity      string          `json:"entity"`
	GeneratedAt string          `json:"generatedAt"`
	Records     json.RawMessage `json:"records"`
}

// NewS3Remote builds the remote. Without a bucket and access key it returns an
// unconfigured remote.
func NewS3Remote(ctx context.Context, cfg config.S3Config) (*S3Remote, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" {
		return &S3Remote{}, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Remote{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Name identifies the remote in logs.
func (r *S3Remote) Name() string { return "s3" }

// Configured reports whether a bucket client exists.
func (r *S3Remote) Configured() bool { return r.client != nil && r.bucket != "" }

// Push uploads every entity of the batch. The first failed upload aborts the push.
func (r *S3Remote) Push(ctx context.Context, batch Batch) error {
	for _, key := range batch.Keys() {
		body, err := json.Marshal(s3Object{
			DeviceID:    batch.DeviceID,
			Entity:      key,
			GeneratedAt: batch.GeneratedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			Records:     batch.Entities[key],
		})
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		objectKey := path.Join(r.prefix, batch.DeviceID, key+".json")
		if _, err := r.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(r.bucket),
			Key:         aws.String(objectKey),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		}); err != nil {
			return fmt.Errorf("put %s: %w", objectKey, err)
		}
	}
	return nil
}
