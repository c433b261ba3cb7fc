// Package imagegen produces story illustrations through a fal image model,
// retrying a bounded number of times.
package imagegen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

// StylePrefix keeps every illustration in the same comic look.
const StylePrefix = "Comic book illustration style, vibrant colors, bold outlines, dynamic poses, expressive characters, graphic novel aesthetic. No text or speech bubbles. "

// Fal is the subset of the fal client the generator uses.
type Fal interface {
	Run(ctx context.Context, model string, input, out any) error
	Download(ctx context.Context, url, path string) error
}

// ImageGenerator is what the story generator depends on.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, path string, onRetry func(attempt int)) error
}

type request struct {
	Prompt          string `json:"prompt"`
	ImageSize       string `json:"image_size"`
	SafetyTolerance string `json:"safety_tolerance"`
	OutputFormat    string `json:"output_format"`
}

type result struct {
	Images []struct {
		Url string `json:"url"`
	} `json:"images"`
}

type Generator struct {
	fal         Fal
	model       string
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(fal Fal, falCfg config.Fal, imageCfg config.Image) *Generator {
	return &Generator{
		fal:         fal,
		model:       falCfg.ImageModel,
		maxAttempts: max(1, imageCfg.MaxAttempts),
		backoff:     time.Duration(imageCfg.RetryBackoffMs) * time.Millisecond,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func StyledPrompt(prompt string) string {
	return StylePrefix + prompt
}

func (g *Generator) attempt(ctx context.Context, prompt, path string) error {
	var res result
	err := g.fal.Run(ctx, g.model, request{
		Prompt:          StyledPrompt(prompt),
		ImageSize:       "landscape_16_9",
		SafetyTolerance: "2",
		OutputFormat:    "png",
	}, &res)
	if err != nil {
		return err
	}
	if len(res.Images) == 0 || res.Images[0].Url == "" {
		return apperrors.New(apperrors.CodeImageGenerationFailed, "Image result has no images")
	}
	return g.fal.Download(ctx, res.Images[0].Url, path)
}

// Generate writes one illustration for prompt to path. After every failed
// attempt it waits the backoff (except after the last) and then calls
// onRetry with the number of attempts made so far.
func (g *Generator) Generate(ctx context.Context, prompt, path string, onRetry func(attempt int)) error {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		err := g.attempt(ctx, prompt, path)
		if err == nil {
			return nil
		}
		lastErr = err
		log.GetLogger().Warn("image generation attempt failed",
			zap.Int("attempt", attempt), zap.Int("max_attempts", g.maxAttempts), zap.Error(err))

		if attempt < g.maxAttempts {
			if sleepErr := g.sleep(ctx, g.backoff); sleepErr != nil {
				return sleepErr
			}
		}
		if onRetry != nil {
			onRetry(attempt)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return apperrors.WrapWithDetail(apperrors.CodeUpstreamRetriesExhausted, "Image generation failed after retries",
		fmt.Sprintf("attempts=%d", g.maxAttempts), lastErr)
}
