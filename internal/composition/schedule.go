package composition

import (
	"math"
	"sort"

	"storyreel/internal/frames"
	"storyreel/internal/timeline"
	"storyreel/internal/transition"
)

const (
	subtitleMinScale = 0.7
	subtitleLiftPx   = 30.0
)

// Sequence is a half-open frame window [From, From+Duration).
type Sequence struct {
	From     int `json:"from"`
	Duration int `json:"durationInFrames"`
}

func (s Sequence) End() int {
	return s.From + s.Duration
}

func (s Sequence) Contains(frame int) bool {
	return frame >= s.From && frame < s.End()
}

type BackgroundSequence struct {
	Sequence
	Index   int                        `json:"index"`
	Element timeline.BackgroundElement `json:"element"`
}

type SubtitleSequence struct {
	Sequence
	Cue timeline.SubtitleCue `json:"cue"`
}

type AudioSequence struct {
	Sequence
	Cue timeline.AudioCue `json:"cue"`
}

// Schedule is the frame-quantized form of a timeline. It is read-only after
// BuildSchedule and At may be called from many goroutines.
type Schedule struct {
	Fps         int                  `json:"fps"`
	TotalFrames int                  `json:"totalFrames"`
	Title       string               `json:"title"`
	Intro       Sequence             `json:"intro"`
	Backgrounds []BackgroundSequence `json:"backgrounds"`
	Subtitles   []SubtitleSequence   `json:"subtitles"`
	Audio       []AudioSequence      `json:"audio"`
}

// BuildSchedule places the intro card first, the backgrounds back to back
// after it, and subtitles and audio at their absolute story offsets.
func BuildSchedule(loaded *timeline.Loaded, conv frames.Converter) *Schedule {
	tl := loaded.Timeline
	s := &Schedule{
		Fps:         conv.FPS,
		TotalFrames: loaded.LengthFrames,
		Title:       tl.ShortTitle,
		Intro:       Sequence{From: 0, Duration: conv.IntroFrames},
		Backgrounds: make([]BackgroundSequence, 0, len(tl.Elements)),
		Subtitles:   make([]SubtitleSequence, 0, len(tl.Text)),
		Audio:       make([]AudioSequence, 0, len(tl.Audio)),
	}

	at := conv.IntroFrames
	for i, el := range tl.Elements {
		d := conv.MsToDuration(el.StartMs, el.EndMs)
		s.Backgrounds = append(s.Backgrounds, BackgroundSequence{
			Sequence: Sequence{From: at, Duration: d},
			Index:    i,
			Element:  el,
		})
		at += d
	}

	for _, cue := range tl.Text {
		s.Subtitles = append(s.Subtitles, SubtitleSequence{
			Sequence: Sequence{From: conv.MsToFrame(cue.StartMs), Duration: conv.DisplayDuration(cue.StartMs, cue.EndMs)},
			Cue:      cue,
		})
	}

	for _, cue := range tl.Audio {
		s.Audio = append(s.Audio, AudioSequence{
			Sequence: Sequence{From: conv.MsToFrame(cue.StartMs), Duration: conv.MsToDuration(cue.StartMs, cue.EndMs)},
			Cue:      cue,
		})
	}
	return s
}

type BackgroundState struct {
	Index   int
	Source  string
	LocalMs float64
	Blur    float64
}

type SubtitleState struct {
	Text     string
	Progress float64
	Scale    float64
	OffsetY  float64
}

type AudioState struct {
	AudioUrl   string
	LocalFrame int
}

// FrameState is everything visible or audible at one frame.
type FrameState struct {
	Frame      int
	Intro      bool
	Title      string
	Background *BackgroundState
	Subtitle   *SubtitleState
	Audio      []AudioState
}

// At evaluates the schedule at frame. It has no side effects.
func (s *Schedule) At(frame int) FrameState {
	st := FrameState{Frame: frame, Title: s.Title, Intro: s.Intro.Contains(frame)}

	// Backgrounds are contiguous and ordered, so the first one ending after
	// frame is the only candidate.
	i := sort.Search(len(s.Backgrounds), func(k int) bool { return s.Backgrounds[k].End() > frame })
	if i < len(s.Backgrounds) && s.Backgrounds[i].Contains(frame) {
		bg := s.Backgrounds[i]
		localMs := float64(frame-bg.From) * 1000 / float64(s.Fps)
		st.Background = &BackgroundState{
			Index:   bg.Index,
			Source:  bg.Element.Source,
			LocalMs: localMs,
			Blur:    transition.CalculateBlur(bg.Element, localMs),
		}
	}

	// Later cues draw on top of earlier ones.
	for k := len(s.Subtitles) - 1; k >= 0; k-- {
		sub := s.Subtitles[k]
		if !sub.Contains(frame) {
			continue
		}
		p := EnterProgress(frame-sub.From, s.Fps)
		st.Subtitle = &SubtitleState{
			Text:     sub.Cue.Text,
			Progress: p,
			Scale:    subtitleMinScale + (1-subtitleMinScale)*p,
			OffsetY:  subtitleLiftPx * (1 - p),
		}
		break
	}

	for _, a := range s.Audio {
		if a.Contains(frame) {
			st.Audio = append(st.Audio, AudioState{AudioUrl: a.Cue.AudioUrl, LocalFrame: frame - a.From})
		}
	}
	return st
}

// EnterProgress is a cubic ease-out from 0 to 1 over the first fps/6 frames
// of a cue.
func EnterProgress(localFrame, fps int) float64 {
	window := max(1, fps/6)
	t := math.Min(1, math.Max(0, float64(localFrame)/float64(window)))
	return 1 - math.Pow(1-t, 3)
}
