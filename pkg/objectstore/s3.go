package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/log"
)

// S3 uploads through the AWS SDK. Credentials fall back to the default AWS
// chain when the config carries none.
type S3 struct {
	client *s3.Client
	cfg    config.Storage
}

func NewS3(ctx context.Context, cfg config.Storage) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyId != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.AccessKeySecret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, uploadFailed("s3", "config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, cfg: cfg}, nil
}

func (s *S3) Upload(ctx context.Context, localPath, key string) (string, error) {
	key = objectKey(s.cfg.Prefix, key)
	f, err := os.Open(localPath)
	if err != nil {
		return "", uploadFailed("s3", key, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			log.GetLogger().Error("s3 put object rejected",
				zap.String("bucket", s.cfg.Bucket), zap.String("key", key),
				zap.String("code", apiErr.ErrorCode()), zap.String("message", apiErr.ErrorMessage()))
		}
		return "", uploadFailed("s3", key, err)
	}
	return S3URL(s.cfg, key), nil
}

// S3URL is the object URL for key, honouring a custom endpoint and path
// style addressing.
func S3URL(cfg config.Storage, key string) string {
	if cfg.Endpoint != "" {
		base := strings.TrimRight(cfg.Endpoint, "/")
		if cfg.UsePathStyle {
			return fmt.Sprintf("%s/%s/%s", base, cfg.Bucket, key)
		}
		scheme, host, ok := strings.Cut(base, "://")
		if !ok {
			return fmt.Sprintf("https://%s.%s/%s", cfg.Bucket, base, key)
		}
		return fmt.Sprintf("%s://%s.%s/%s", scheme, cfg.Bucket, host, key)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	if cfg.UsePathStyle {
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", region, cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, region, key)
}
