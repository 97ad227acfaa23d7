// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// MaxUploadBytes bounds a single feature image.
const MaxUploadBytes = 10 << 20

// S3Config configures an S3Uploader. Endpoint and static credentials are
// optional; when unset the AWS default chain applies.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

// putObjectAPI is the part of *s3.Client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores images in an S3-compatible bucket.
type S3Uploader struct {
	client  putObjectAPI
	bucket  string
	baseURL string
	now     func() time.Time
	newID   func() string
}

// NewS3Uploader builds an uploader from cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, oops.Code("MEDIA_INVALID_CONFIG").Errorf("media bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, oops.Code("MEDIA_INVALID_CONFIG").With("operation", "load aws config").Wrap(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Uploader(client, cfg), nil
}

func newS3Uploader(client putObjectAPI, cfg S3Config) *S3Uploader {
	base := cfg.PublicBaseURL
	if base == "" {
		base = defaultPublicBase(cfg)
	}
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func defaultPublicBase(cfg S3Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// Upload stores body under items/YYYY/MM/DD/<uuid><ext>.
func (u *S3Uploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if body == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadBytes+1))
	if err != nil {
		return "", oops.Code("MEDIA_READ_FAILED").With("filename", filename).Wrap(err)
	}
	if len(data) == 0 && filename == "" {
		return "", nil
	}
	if len(data) > MaxUploadBytes {
		return "", oops.Code("MEDIA_TOO_LARGE").
			With("filename", filename).
			With("max_bytes", MaxUploadBytes).
			Errorf("upload exceeds %d bytes", MaxUploadBytes)
	}

	key := u.objectKey(filename)
	in := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return "", oops.Code("MEDIA_UPLOAD_FAILED").
			With("bucket", u.bucket).
			With("key", key).
			Wrap(err)
	}
	return u.baseURL + "/" + key, nil
}

func (u *S3Uploader) objectKey(filename string) string {
	d := u.now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("items/%04d/%02d/%02d/%s%s", d.Year(), int(d.Month()), d.Day(), u.newID(), ext)
}

var _ Uploader = (*S3Uploader)(nil)
