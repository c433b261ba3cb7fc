// Package tts narrates story segments through a fal speech model and returns
// per-character timing for subtitle placement.
package tts

import (
	"context"

	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/internal/wordtiming"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
	"storyreel/pkg/util"
)

// Fal is the subset of the fal client the synthesizer uses.
type Fal interface {
	Run(ctx context.Context, model string, input, out any) error
	Download(ctx context.Context, url, path string) error
}

// SpeechSynthesizer is what the story generator depends on.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, path string) (*wordtiming.CharacterAlignment, float64, error)
}

type request struct {
	Text            string  `json:"text"`
	Voice           string  `json:"voice"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

type alignment struct {
	Characters []string  `json:"characters"`
	Starts     []float64 `json:"character_start_times_seconds"`
	Ends       []float64 `json:"character_end_times_seconds"`
}

func (a *alignment) usable() bool {
	return a != nil && len(a.Characters) > 0 &&
		len(a.Starts) == len(a.Characters) && len(a.Ends) == len(a.Characters)
}

type result struct {
	Audio struct {
		Url      string  `json:"url"`
		Duration float64 `json:"duration"`
	} `json:"audio"`
	Alignment           *alignment `json:"alignment"`
	NormalizedAlignment *alignment `json:"normalized_alignment"`
}

type Synthesizer struct {
	fal   Fal
	cfg   config.Fal
	probe func(path string) (float64, error)
}

func NewSynthesizer(fal Fal, cfg config.Fal) *Synthesizer {
	return &Synthesizer{fal: fal, cfg: cfg, probe: util.ProbeDurationSeconds}
}

// Synthesize writes the narration of text to path. The returned alignment is
// the model's own when it sends one; otherwise timing is spread evenly over
// the reported, probed or estimated duration.
func (s *Synthesizer) Synthesize(ctx context.Context, text, path string) (*wordtiming.CharacterAlignment, float64, error) {
	var res result
	err := s.fal.Run(ctx, s.cfg.TtsModel, request{
		Text:            text,
		Voice:           s.cfg.Voice,
		Stability:       s.cfg.Stability,
		SimilarityBoost: s.cfg.SimilarityBoost,
		Speed:           s.cfg.Speed,
	}, &res)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeSpeechSynthesisFailed, "Speech synthesis failed", err)
	}
	if res.Audio.Url == "" {
		return nil, 0, apperrors.New(apperrors.CodeSpeechSynthesisFailed, "Speech result has no audio")
	}
	if err = s.fal.Download(ctx, res.Audio.Url, path); err != nil {
		return nil, 0, err
	}

	for _, a := range []*alignment{res.Alignment, res.NormalizedAlignment} {
		if !a.usable() {
			continue
		}
		out := &wordtiming.CharacterAlignment{
			Characters:                 a.Characters,
			CharacterStartTimesSeconds: a.Starts,
			CharacterEndTimesSeconds:   a.Ends,
		}
		return out, max(res.Audio.Duration, out.DurationSeconds()), nil
	}

	duration := res.Audio.Duration
	if duration <= 0 && s.probe != nil {
		probed, err := s.probe(path)
		if err != nil {
			log.GetLogger().Warn("probe narration duration failed, estimating", zap.String("path", path), zap.Error(err))
		} else {
			duration = probed
		}
	}
	est := wordtiming.Estimate(text, duration)
	return est, est.DurationSeconds(), nil
}
