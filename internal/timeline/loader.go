package timeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"storyreel/internal/appdirs"
	"storyreel/internal/frames"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

// The raw* shapes use pointers so a missing field can be told apart from a zero value.
type rawTimeline struct {
	ShortTitle *string          `json:"shortTitle"`
	Elements   *[]rawBackground `json:"elements"`
	Text       *[]rawSubtitle   `json:"text"`
	Audio      *[]rawAudio      `json:"audio"`
}

type rawBackground struct {
	StartMs         *float64    `json:"startMs"`
	EndMs           *float64    `json:"endMs"`
	Source          *string     `json:"source"`
	EnterTransition *Transition `json:"enterTransition"`
	ExitTransition  *Transition `json:"exitTransition"`
}

type rawSubtitle struct {
	StartMs *float64 `json:"startMs"`
	EndMs   *float64 `json:"endMs"`
	Text    *string  `json:"text"`
}

type rawAudio struct {
	StartMs  *float64 `json:"startMs"`
	EndMs    *float64 `json:"endMs"`
	AudioUrl *string  `json:"audioUrl"`
}

// Load reads and parses the timeline file at path.
func Load(path string, conv frames.Converter) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.WrapWithDetail(apperrors.CodeTimelineNotFound, "Timeline not found", path, err)
		}
		return nil, apperrors.WrapWithDetail(apperrors.CodeTimelineLoad, "Timeline read failed", path, err)
	}

	loaded, err := Parse(data, conv)
	if err != nil {
		log.GetLogger().Warn("timeline rejected", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	log.GetLogger().Debug("timeline loaded",
		zap.String("path", path),
		zap.Int("elements", len(loaded.Timeline.Elements)),
		zap.Int("text", len(loaded.Timeline.Text)),
		zap.Int("audio", len(loaded.Timeline.Audio)),
		zap.Int("length_frames", loaded.LengthFrames))
	return loaded, nil
}

// LoadStory loads content/<storyId>/timeline.json.
func LoadStory(contentDir, storyID string, conv frames.Converter) (*Loaded, error) {
	return Load(appdirs.TimelinePathFor(contentDir, storyID), conv)
}

// Parse decodes, validates and normalizes a timeline document, then computes
// the render length: intro plus the content covered by the last element.
func Parse(data []byte, conv frames.Converter) (*Loaded, error) {
	var raw rawTimeline
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTimelineMalformed, "Timeline is not valid JSON", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, apperrors.WrapWithDetail(apperrors.CodeTimelineMalformed, "Timeline has trailing data",
			fmt.Sprintf("offset %d", dec.InputOffset()), err)
	}

	tl, err := raw.toTimeline()
	if err != nil {
		return nil, err
	}

	SortElements(tl.Elements)
	if err = tl.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTimelineSchema, "Timeline failed validation", err)
	}
	if err = checkFrameRange(tl, conv.FPS); err != nil {
		return nil, err
	}

	return &Loaded{Timeline: tl, LengthFrames: LengthFrames(tl, conv)}, nil
}

// LengthFrames is introFrames when there are no elements.
func LengthFrames(tl *Timeline, conv frames.Converter) int {
	contentMs := 0.0
	if n := len(tl.Elements); n > 0 {
		contentMs = tl.Elements[n-1].EndMs
	}
	return conv.IntroFrames + conv.ContentFrames(contentMs)
}

// SortElements orders by startMs; ties keep their input order.
func SortElements(elements []BackgroundElement) {
	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].StartMs < elements[j].StartMs
	})
}

func missingField(path string) error {
	return apperrors.WrapWithDetail(apperrors.CodeTimelineSchema, "Timeline missing required field", path,
		fmt.Errorf("missing field %s", path))
}

func (r rawTimeline) toTimeline() (*Timeline, error) {
	switch {
	case r.ShortTitle == nil:
		return nil, missingField("shortTitle")
	case r.Elements == nil:
		return nil, missingField("elements")
	case r.Text == nil:
		return nil, missingField("text")
	case r.Audio == nil:
		return nil, missingField("audio")
	}

	tl := &Timeline{
		ShortTitle: *r.ShortTitle,
		Elements:   make([]BackgroundElement, 0, len(*r.Elements)),
		Text:       make([]SubtitleCue, 0, len(*r.Text)),
		Audio:      make([]AudioCue, 0, len(*r.Audio)),
	}

	for i, e := range *r.Elements {
		prefix := fmt.Sprintf("elements[%d]", i)
		switch {
		case e.StartMs == nil:
			return nil, missingField(prefix + ".startMs")
		case e.EndMs == nil:
			return nil, missingField(prefix + ".endMs")
		case e.Source == nil:
			return nil, missingField(prefix + ".source")
		}
		el := BackgroundElement{StartMs: *e.StartMs, EndMs: *e.EndMs, Source: *e.Source}
		if e.EnterTransition != nil {
			el.EnterTransition = *e.EnterTransition
		}
		if e.ExitTransition != nil {
			el.ExitTransition = *e.ExitTransition
		}
		tl.Elements = append(tl.Elements, el)
	}

	for i, c := range *r.Text {
		prefix := fmt.Sprintf("text[%d]", i)
		switch {
		case c.StartMs == nil:
			return nil, missingField(prefix + ".startMs")
		case c.EndMs == nil:
			return nil, missingField(prefix + ".endMs")
		case c.Text == nil:
			return nil, missingField(prefix + ".text")
		}
		tl.Text = append(tl.Text, SubtitleCue{StartMs: *c.StartMs, EndMs: *c.EndMs, Text: *c.Text})
	}

	for i, a := range *r.Audio {
		prefix := fmt.Sprintf("audio[%d]", i)
		switch {
		case a.StartMs == nil:
			return nil, missingField(prefix + ".startMs")
		case a.EndMs == nil:
			return nil, missingField(prefix + ".endMs")
		case a.AudioUrl == nil:
			return nil, missingField(prefix + ".audioUrl")
		}
		tl.Audio = append(tl.Audio, AudioCue{StartMs: *a.StartMs, EndMs: *a.EndMs, AudioUrl: *a.AudioUrl})
	}

	return tl, nil
}

// Write persists tl as indented JSON, creating the story directory.
func Write(path string, tl *Timeline) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Create story dir failed", err)
	}
	data, err := json.MarshalIndent(tl, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Encode timeline failed", err)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CodeFileWriteError, "Write timeline failed", err)
	}
	return nil
}
