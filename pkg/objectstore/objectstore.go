// Package objectstore publishes finished videos to S3 or Aliyun OSS.
package objectstore

import (
	"context"
	"path"
	"strings"

	"storyreel/config"
	apperrors "storyreel/pkg/errors"
)

// Uploader copies a local file to key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// New picks the backend named by cfg.Provider. An empty provider gives Noop.
func New(ctx context.Context, cfg config.Storage) (Uploader, error) {
	switch cfg.Provider {
	case "":
		return Noop{}, nil
	case config.StorageS3:
		return NewS3(ctx, cfg)
	case config.StorageOSS:
		return NewOSS(cfg)
	default:
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "unknown storage provider", cfg.Provider, nil)
	}
}

// Noop keeps videos local; Upload returns an empty URL.
type Noop struct{}

func (Noop) Upload(context.Context, string, string) (string, error) {
	return "", nil
}

func objectKey(prefix, key string) string {
	return strings.TrimLeft(path.Join(strings.Trim(prefix, "/"), key), "/")
}

func uploadFailed(provider, key string, err error) error {
	return apperrors.WrapWithDetail(apperrors.CodeUploadFailed, "Upload failed", provider+": "+key, err)
}
