package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"storyreel/internal/composition"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

type EncodeOptions struct {
	FfmpegPath string
	VideoCodec string
	Preset     string
	Crf        int
	AudioCodec string
}

// AudioInput is one narration clip placed on the output timeline.
type AudioInput struct {
	Path        string
	DelayMs     int
	DurationSec float64
}

// AudioInputs places each scheduled audio cue at its frame-aligned start,
// trimmed to its scheduled length.
func AudioInputs(s *composition.Schedule, pathFor func(audioUrl string) string) []AudioInput {
	out := make([]AudioInput, 0, len(s.Audio))
	for _, a := range s.Audio {
		if a.Duration <= 0 {
			continue
		}
		out = append(out, AudioInput{
			Path:        pathFor(a.Cue.AudioUrl),
			DelayMs:     int(math.Round(float64(a.From) * 1000 / float64(s.Fps))),
			DurationSec: float64(a.Duration) / float64(s.Fps),
		})
	}
	return out
}

type Encoder struct {
	opts EncodeOptions
}

func NewEncoder(opts EncodeOptions) *Encoder {
	if opts.VideoCodec == "" {
		opts.VideoCodec = "libx264"
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}
	return &Encoder{opts: opts}
}

// Stream builds the ffmpeg graph: raw RGBA frames on stdin, audio clips
// delayed and mixed, encoded to out.
func (e *Encoder) Stream(out string, c composition.Composition, audio []AudioInput) *ffmpeg.Stream {
	video := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", c.Width, c.Height),
		"r":       c.Fps,
	})

	outArgs := ffmpeg.KwArgs{
		"c:v":      e.opts.VideoCodec,
		"pix_fmt":  "yuv420p",
		"r":        c.Fps,
		"frames:v": c.DurationInFrames,
	}
	if e.opts.Preset != "" {
		outArgs["preset"] = e.opts.Preset
	}
	if e.opts.Crf > 0 {
		outArgs["crf"] = e.opts.Crf
	}

	if len(audio) == 0 {
		return video.Output(out, outArgs).OverWriteOutput()
	}

	clips := make([]*ffmpeg.Stream, 0, len(audio))
	for _, a := range audio {
		clip := ffmpeg.Input(a.Path).
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": fmt.Sprintf("%.3f", a.DurationSec)}).
			Filter("adelay", ffmpeg.Args{fmt.Sprintf("%d|%d", a.DelayMs, a.DelayMs)})
		clips = append(clips, clip)
	}

	mixed := clips[0]
	if len(clips) > 1 {
		mixed = ffmpeg.Filter(clips, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
			"inputs":    len(clips),
			"duration":  "longest",
			"normalize": 0,
		})
	}

	outArgs["c:a"] = e.opts.AudioCodec
	return ffmpeg.Output([]*ffmpeg.Stream{video, mixed}, out, outArgs).OverWriteOutput()
}

func (e *Encoder) Args(out string, c composition.Composition, audio []AudioInput) []string {
	return e.Stream(out, c, audio).GetArgs()
}

func (e *Encoder) binary() string {
	if e.opts.FfmpegPath != "" {
		return e.opts.FfmpegPath
	}
	return "ffmpeg"
}

// FrameSink receives frames in order. Close finishes the output; Abort
// discards it.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort()
}

type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *stderrBuffer
	cancel context.CancelFunc
}

// Open starts ffmpeg and returns a sink feeding its stdin.
func (e *Encoder) Open(ctx context.Context, out string, c composition.Composition, audio []AudioInput) (FrameSink, error) {
	args := e.Args(out, c, audio)
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, e.binary(), args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, apperrors.Wrap(apperrors.CodeEncodeFailed, "Open ffmpeg stdin failed", err)
	}
	stderr := &stderrBuffer{}
	cmd.Stderr = stderr

	log.GetLogger().Debug("starting ffmpeg", zap.String("bin", e.binary()), zap.String("args", strings.Join(args, " ")))
	if err = cmd.Start(); err != nil {
		cancel()
		if isNotFound(err) {
			return nil, apperrors.WrapWithDetail(apperrors.CodeFfmpegMissing, "ffmpeg not found", e.binary(), err)
		}
		return nil, apperrors.Wrap(apperrors.CodeEncodeFailed, "Start ffmpeg failed", err)
	}
	return &ffmpegSink{cmd: cmd, stdin: stdin, stderr: stderr, cancel: cancel}, nil
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr)
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	if _, err := s.stdin.Write(img.Pix); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "Write frame to ffmpeg failed", tail(s.stderr.String()), err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	defer s.cancel()
	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "ffmpeg exited with error", tail(s.stderr.String()), err)
	}
	return nil
}

func (s *ffmpegSink) Abort() {
	s.cancel()
	_ = s.stdin.Close()
	_ = s.cmd.Wait()
}

// stderrBuffer is written by the exec copier goroutine while frames are
// still being fed.
type stderrBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *stderrBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *stderrBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func tail(s string) string {
	const keep = 2000
	if len(s) > keep {
		return s[len(s)-keep:]
	}
	return s
}
