package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"

	"storyreel/config"
	apperrors "storyreel/pkg/errors"
)

type OSS struct {
	client *oss.Client
	cfg    config.Storage
}

// NewOSS needs static credentials; OSS has no ambient chain here.
func NewOSS(cfg config.Storage) (*OSS, error) {
	if cfg.AccessKeyId == "" || cfg.AccessKeySecret == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "oss storage needs access_key_id and access_key_secret")
	}
	if cfg.Region == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "oss storage needs a region")
	}

	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.AccessKeySecret)).
		WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		ossCfg = ossCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.UsePathStyle {
		ossCfg = ossCfg.WithUsePathStyle(true)
	}
	return &OSS{client: oss.NewClient(ossCfg), cfg: cfg}, nil
}

func (o *OSS) Upload(ctx context.Context, localPath, key string) (string, error) {
	key = objectKey(o.cfg.Prefix, key)
	_, err := o.client.PutObjectFromFile(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(o.cfg.Bucket),
		Key:         oss.Ptr(key),
		ContentType: oss.Ptr("video/mp4"),
	}, localPath)
	if err != nil {
		return "", uploadFailed("oss", key, err)
	}
	return OSSURL(o.cfg, key), nil
}

// OSSURL is the virtual-hosted object URL for key.
func OSSURL(cfg config.Storage, key string) string {
	host := strings.TrimRight(cfg.Endpoint, "/")
	if host == "" {
		host = fmt.Sprintf("oss-%s.aliyuncs.com", strings.TrimPrefix(cfg.Region, "oss-"))
	}
	scheme := "https"
	if s, h, ok := strings.Cut(host, "://"); ok {
		scheme, host = s, h
	}
	if cfg.UsePathStyle {
		return fmt.Sprintf("%s://%s/%s/%s", scheme, host, cfg.Bucket, key)
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, cfg.Bucket, host, key)
}
