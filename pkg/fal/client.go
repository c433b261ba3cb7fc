// Package fal calls fal.ai model endpoints synchronously and downloads the
// media they return.
package fal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

const defaultBaseUrl = "https://fal.run"

type Client struct {
	api   *resty.Client
	media *resty.Client
}

func NewClient(cfg config.Fal) *Client {
	base := strings.TrimRight(cfg.BaseUrl, "/")
	if base == "" {
		base = defaultBaseUrl
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		api: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("Authorization", "Key "+cfg.ApiKey).
			SetHeader("Content-Type", "application/json"),
		media: resty.New().SetTimeout(timeout),
	}
}

// Run posts input to model and decodes the JSON result into out.
func (c *Client) Run(ctx context.Context, model string, input, out any) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(input).
		Post("/" + strings.TrimLeft(model, "/"))
	if err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeUpstreamService, "fal request failed", model, err)
	}
	if resp.IsError() {
		log.GetLogger().Warn("fal returned error status", zap.String("model", model), zap.Int("status", resp.StatusCode()))
		return apperrors.WrapWithDetail(apperrors.CodeUpstreamService, "fal returned error status",
			fmt.Sprintf("%s: status %d: %s", model, resp.StatusCode(), truncate(resp.String(), 500)), nil)
	}
	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeUpstreamInvalidPayload, "fal result is not valid JSON", model, err)
	}
	return nil
}

// Download fetches url into path, creating parent dirs. A failed download
// leaves no file behind.
func (c *Client) Download(ctx context.Context, url, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Create media dir failed", err)
	}
	resp, err := c.media.R().SetContext(ctx).Get(url)
	if err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeMediaDownloadFailed, "Media download failed", url, err)
	}
	if resp.IsError() {
		return apperrors.WrapWithDetail(apperrors.CodeMediaDownloadFailed, "Media download failed",
			fmt.Sprintf("%s: status %d", url, resp.StatusCode()), nil)
	}
	if err = os.WriteFile(path, resp.Body(), 0o644); err != nil {
		_ = os.Remove(path)
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Write media failed", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
