// Package render draws compositions frame by frame and streams the frames
// into ffmpeg.
package render

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storyreel/internal/appdirs"
	"storyreel/internal/composition"
	"storyreel/internal/textfit"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

// Progress is called after each batch with frames written so far.
type Progress func(done, total int)

type OpenSink func(ctx context.Context, out string, c composition.Composition, audio []AudioInput) (FrameSink, error)

type Options struct {
	Concurrency int
	Encode      EncodeOptions
}

type Renderer struct {
	concurrency int
	fitter      *textfit.Fitter
	encoder     *Encoder
	openSink    OpenSink
}

type RendererOption func(*Renderer)

// WithSink replaces the ffmpeg sink, mainly for tests.
func WithSink(open OpenSink) RendererOption {
	return func(r *Renderer) {
		r.openSink = open
	}
}

func New(opts Options, options ...RendererOption) (*Renderer, error) {
	fitter, err := textfit.Default()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRenderFailed, "Load font failed", err)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	r := &Renderer{
		concurrency: concurrency,
		fitter:      fitter,
		encoder:     NewEncoder(opts.Encode),
	}
	r.openSink = r.encoder.Open
	for _, o := range options {
		o(r)
	}
	return r, nil
}

func (r *Renderer) Encoder() *Encoder {
	return r.encoder
}

// Render writes res to out. Frames are evaluated in parallel batches and
// written in order. Any error, or a cancelled ctx, removes the partial output.
func (r *Renderer) Render(ctx context.Context, res *composition.Resolved, out string, progress Progress) (err error) {
	total := res.DurationInFrames
	logger := log.GetLogger().With(zap.String("composition", res.ID), zap.String("out", out))

	if err = os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Create output dir failed", err)
	}

	fr := NewFrameRenderer(res.Width, res.Height, r.fitter)
	draw := r.drawFunc(fr, res)

	var audio []AudioInput
	if res.Schedule != nil {
		audio = AudioInputs(res.Schedule, func(uid string) string {
			return appdirs.AudioPathFor(res.ContentDir, res.ID, uid)
		})
	}

	sink, err := r.openSink(ctx, out, res.Composition, audio)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			sink.Abort()
			_ = os.Remove(out)
			logger.Warn("render aborted", zap.Error(err))
		}
	}()

	logger.Info("render started", zap.Int("frames", total), zap.Int("audio_clips", len(audio)), zap.Int("workers", r.concurrency))

	batch := make([]*image.RGBA, r.concurrency*4)
	for start := 0; start < total; start += len(batch) {
		n := min(len(batch), total-start)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				img, err := draw(start + i)
				if err != nil {
					return err
				}
				batch[i] = img
				return nil
			})
		}
		if err = g.Wait(); err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			if err = sink.WriteFrame(batch[i]); err != nil {
				return err
			}
			batch[i] = nil
		}
		if progress != nil {
			progress(start+n, total)
		}
	}

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = sink.Close(); err != nil {
		return err
	}
	logger.Info("render finished", zap.Int("frames", total))
	return nil
}

func (r *Renderer) drawFunc(fr *FrameRenderer, res *composition.Resolved) func(frame int) (*image.RGBA, error) {
	if res.Scene != nil {
		return func(frame int) (*image.RGBA, error) {
			return fr.DrawScene(res.Scene, res.Scene.FrameAt(frame))
		}
	}
	return func(frame int) (*image.RGBA, error) {
		return fr.DrawStory(res.ContentDir, res.ID, res.Schedule.At(frame))
	}
}
