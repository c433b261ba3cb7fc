// Package storygen turns a title and topic into a narrated, illustrated
// timeline under the content dir.
package storygen

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storyreel/internal/appdirs"
	"storyreel/internal/timeline"
	"storyreel/internal/wordtiming"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
	"storyreel/pkg/imagegen"
	"storyreel/pkg/openai"
	"storyreel/pkg/tts"
)

const imageConcurrency = 2

type Request struct {
	StoryID    string `json:"storyId"`
	Title      string `json:"title"`
	ShortTitle string `json:"shortTitle"`
	Topic      string `json:"topic"`
	// PhraseChars merges word cues into phrases up to this many characters;
	// 0 keeps one word per cue.
	PhraseChars int `json:"phraseChars,omitempty"`
}

// Step names reported through Progress.
const (
	StepText   = "text"
	StepScript = "script"
	StepImages = "images"
	StepVoice  = "voice"
	StepWrite  = "write"
)

// Progress reports done of total units for a step. onRetry of the image
// step reports through it with the attempt in Retry.
type Progress func(p StepProgress)

type StepProgress struct {
	Step  string `json:"step"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
	Retry int    `json:"retry,omitempty"`
}

type Generator struct {
	text       openai.Completer
	images     imagegen.ImageGenerator
	speech     tts.SpeechSynthesizer
	contentDir string
	newID      func() string
}

func New(text openai.Completer, images imagegen.ImageGenerator, speech tts.SpeechSynthesizer, contentDir string) *Generator {
	return &Generator{
		text:       text,
		images:     images,
		speech:     speech,
		contentDir: contentDir,
		newID:      uuid.NewString,
	}
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Topic) == "" {
		return apperrors.New(apperrors.CodeInvalidParams, "title and topic are required")
	}
	if r.PhraseChars < 0 {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "phraseChars must not be negative", fmt.Sprint(r.PhraseChars), nil)
	}
	id := r.StoryID
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "invalid story id", id, nil)
	}
	return nil
}

func (r Request) shortTitle() string {
	if r.ShortTitle != "" {
		return r.ShortTitle
	}
	return r.Title
}

// Generate runs the whole content pipeline and writes the timeline. Image
// and audio files land next to it. Any upstream failure aborts the run.
func (g *Generator) Generate(ctx context.Context, req Request, progress Progress) (*timeline.Timeline, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(StepProgress) {}
	}
	logger := log.GetLogger().With(zap.String("story", req.StoryID))

	progress(StepProgress{Step: StepText, Total: 1})
	var story storyText
	if err := g.text.StructuredCompletion(ctx, StoryPrompt(req.Title, req.Topic), &story); err != nil {
		return nil, err
	}
	progress(StepProgress{Step: StepText, Done: 1, Total: 1})

	progress(StepProgress{Step: StepScript, Total: 1})
	var script segments
	if err := g.text.StructuredCompletion(ctx, ImageDescriptionPrompt(story.Text), &script); err != nil {
		return nil, err
	}
	segs := script.Result
	progress(StepProgress{Step: StepScript, Done: 1, Total: 1})
	logger.Info("story script ready", zap.Int("segments", len(segs)))

	imageIDs := lo.Times(len(segs), func(int) string { return g.newID() })
	if err := g.generateImages(ctx, req.StoryID, segs, imageIDs, progress); err != nil {
		return nil, err
	}

	tl := &timeline.Timeline{ShortTitle: req.shortTitle()}
	var cursorMs float64
	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress(StepProgress{Step: StepVoice, Done: i, Total: len(segs)})

		audioID := g.newID()
		alignment, seconds, err := g.speech.Synthesize(ctx, seg.Text, appdirs.AudioPathFor(g.contentDir, req.StoryID, audioID))
		if err != nil {
			return nil, err
		}
		cues, err := wordtiming.Cues(alignment)
		if err != nil {
			return nil, err
		}
		if req.PhraseChars > 0 {
			cues = wordtiming.Phrases(cues, req.PhraseChars)
		}

		endMs := cursorMs + math.Round(seconds*1000)
		tl.Elements = append(tl.Elements, timeline.BackgroundElement{
			StartMs:         cursorMs,
			EndMs:           endMs,
			Source:          imageIDs[i],
			EnterTransition: timeline.TransitionBlur,
		})
		tl.Text = append(tl.Text, wordtiming.Offset(cues, cursorMs)...)
		tl.Audio = append(tl.Audio, timeline.AudioCue{StartMs: cursorMs, EndMs: endMs, AudioUrl: audioID})
		cursorMs = endMs
	}
	progress(StepProgress{Step: StepVoice, Done: len(segs), Total: len(segs)})

	if n := len(tl.Elements); n > 0 {
		tl.Elements[n-1].ExitTransition = timeline.TransitionBlur
	}
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	if err := tl.RequireElements(); err != nil {
		return nil, err
	}

	progress(StepProgress{Step: StepWrite, Total: 1})
	if err := timeline.Write(appdirs.TimelinePathFor(g.contentDir, req.StoryID), tl); err != nil {
		return nil, err
	}
	progress(StepProgress{Step: StepWrite, Done: 1, Total: 1})
	logger.Info("story written", zap.Int("elements", len(tl.Elements)), zap.Float64("end_ms", cursorMs))
	return tl, nil
}

func (g *Generator) generateImages(ctx context.Context, storyID string, segs []Segment, ids []string, progress Progress) error {
	if err := os.MkdirAll(appdirs.StoryDirFor(g.contentDir, storyID), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Create story dir failed", err)
	}

	var done atomic.Int32
	total := len(segs)
	progress(StepProgress{Step: StepImages, Total: total})

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(imageConcurrency)
	for i, seg := range segs {
		eg.Go(func() error {
			path := appdirs.ImagePathFor(g.contentDir, storyID, ids[i])
			err := g.images.Generate(egCtx, seg.ImageDescription, path, func(attempt int) {
				progress(StepProgress{Step: StepImages, Done: int(done.Load()), Total: total, Retry: attempt})
			})
			if err != nil {
				return err
			}
			progress(StepProgress{Step: StepImages, Done: int(done.Add(1)), Total: total})
			return nil
		})
	}
	return eg.Wait()
}
