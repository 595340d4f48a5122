package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader pushes an export bundle to a bucket under a fixed key prefix.
type S3Uploader struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Uploader builds a client from static credentials. Passing empty
// accessKey/secretKey falls back to the default AWS credential chain
// (environment, shared config, instance profile).
func NewS3Uploader(ctx context.Context, region, bucket, accessKey, secretKey string) (*S3Uploader, error) {
	if region == "" {
		return nil, fmt.Errorf("s3 region not set")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket not set")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: bucket,
		region: region,
	}, nil
}

// Upload puts data at key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte) (string, error) {
	uploader := manager.NewUploader(u.client)

	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := uploader.Upload(ctxUpload, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key), nil
}
