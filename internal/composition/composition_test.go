package composition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyreel/internal/frames"
	"storyreel/internal/scene"
	"storyreel/internal/timeline"
	apperrors "storyreel/pkg/errors"
)

var conv = frames.New(30, 60)

func moonTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		ShortTitle: "Moon",
		Elements: []timeline.BackgroundElement{
			{StartMs: 0, EndMs: 3000, Source: "img-a", EnterTransition: timeline.TransitionBlur},
			{StartMs: 3000, EndMs: 5000, Source: "img-b", EnterTransition: timeline.TransitionBlur, ExitTransition: timeline.TransitionBlur},
		},
		Text: []timeline.SubtitleCue{
			{StartMs: 0, EndMs: 400, Text: "One"},
			{StartMs: 400, EndMs: 800, Text: "Two"},
		},
		Audio: []timeline.AudioCue{{StartMs: 0, EndMs: 5000, AudioUrl: "narration"}},
	}
}

func writeStory(t *testing.T, contentDir, id string, tl *timeline.Timeline) {
	t.Helper()
	require.NoError(t, timeline.Write(filepath.Join(contentDir, id, "timeline.json"), tl))
}

func TestBuildScheduleSeries(t *testing.T) {
	s := BuildSchedule(&timeline.Loaded{Timeline: moonTimeline(), LengthFrames: 210}, conv)

	assert.Equal(t, Sequence{From: 0, Duration: 60}, s.Intro)
	require.Len(t, s.Backgrounds, 2)
	assert.Equal(t, Sequence{From: 60, Duration: 90}, s.Backgrounds[0].Sequence)
	assert.Equal(t, Sequence{From: 150, Duration: 60}, s.Backgrounds[1].Sequence)

	require.Len(t, s.Subtitles, 2)
	assert.Equal(t, Sequence{From: 60, Duration: 12}, s.Subtitles[0].Sequence)
	assert.Equal(t, Sequence{From: 72, Duration: 12}, s.Subtitles[1].Sequence)

	require.Len(t, s.Audio, 1)
	assert.Equal(t, Sequence{From: 60, Duration: 150}, s.Audio[0].Sequence)
}

func TestBuildScheduleClampsTinySubtitles(t *testing.T) {
	tl := &timeline.Timeline{
		Elements: []timeline.BackgroundElement{{StartMs: 0, EndMs: 1000, Source: "x"}},
		Text:     []timeline.SubtitleCue{{StartMs: 100, EndMs: 110, Text: "a"}},
	}
	s := BuildSchedule(&timeline.Loaded{Timeline: tl, LengthFrames: 90}, conv)
	assert.Equal(t, 1, s.Subtitles[0].Duration)
}

func TestScheduleAt(t *testing.T) {
	s := BuildSchedule(&timeline.Loaded{Timeline: moonTimeline(), LengthFrames: 210}, conv)

	intro := s.At(0)
	assert.True(t, intro.Intro)
	assert.Equal(t, "Moon", intro.Title)
	assert.Nil(t, intro.Background)
	assert.Nil(t, intro.Subtitle)
	assert.Empty(t, intro.Audio)

	first := s.At(60)
	assert.False(t, first.Intro)
	require.NotNil(t, first.Background)
	assert.Equal(t, "img-a", first.Background.Source)
	assert.Equal(t, 1.0, first.Background.Blur)
	require.NotNil(t, first.Subtitle)
	assert.Equal(t, "One", first.Subtitle.Text)
	assert.Equal(t, 0.7, first.Subtitle.Scale)
	assert.Equal(t, 30.0, first.Subtitle.OffsetY)
	assert.Equal(t, []AudioState{{AudioUrl: "narration", LocalFrame: 0}}, first.Audio)

	mid := s.At(75)
	assert.InDelta(t, 500, mid.Background.LocalMs, 1e-9)
	assert.InDelta(t, 0.5, mid.Background.Blur, 1e-9)
	assert.Equal(t, "Two", mid.Subtitle.Text)
	assert.InDelta(t, 0.936, mid.Subtitle.Progress, 1e-9)

	nearEnd := s.At(209)
	assert.Equal(t, 1, nearEnd.Background.Index)
	assert.InDelta(t, 1-(2000-1966.6666666)/1000, nearEnd.Background.Blur, 1e-6)
	assert.Nil(t, nearEnd.Subtitle)

	after := s.At(210)
	assert.Nil(t, after.Background)
	assert.Empty(t, after.Audio)
}

func TestEnterProgress(t *testing.T) {
	assert.Equal(t, 0.0, EnterProgress(0, 30))
	assert.Equal(t, 1.0, EnterProgress(5, 30))
	assert.Equal(t, 1.0, EnterProgress(500, 30))
	assert.Equal(t, 0.0, EnterProgress(-3, 30))
	assert.Equal(t, 1.0, EnterProgress(1, 1))
}

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	contentDir := t.TempDir()
	reg, err := NewDefaultRegistry(Options{ContentDir: contentDir, Fps: 30, IntroFrames: 60, Width: 1920, Height: 1080})
	require.NoError(t, err)
	return reg, contentDir
}

func TestRegistryListAndResolve(t *testing.T) {
	reg, contentDir := newTestRegistry(t)
	writeStory(t, contentDir, "moon", moonTimeline())

	broken := filepath.Join(contentDir, "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "timeline.json"), []byte("{"), 0o644))

	list := reg.List(context.Background())
	ids := lo.Map(list, func(c Composition, _ int) string { return c.ID })
	assert.Equal(t, []string{"FOSSHack2026", "OpenAlgoPromo", "moon"}, ids)
	assert.Equal(t, Composition{ID: "moon", Kind: KindTimeline, Fps: 30, Width: 1920, Height: 1080, DurationInFrames: 210}, list[2])

	promo, err := reg.Resolve(context.Background(), "OpenAlgoPromo")
	require.NoError(t, err)
	assert.Equal(t, KindStatic, promo.Kind)
	assert.Equal(t, 2700, promo.DurationInFrames)
	assert.NotNil(t, promo.Scene)
	assert.Nil(t, promo.Schedule)

	story, err := reg.Resolve(context.Background(), "moon")
	require.NoError(t, err)
	assert.Equal(t, 210, story.DurationInFrames)
	require.NotNil(t, story.Schedule)
	assert.Equal(t, 210, story.Schedule.TotalFrames)
	assert.Equal(t, contentDir, story.ContentDir)

	_, err = reg.Resolve(context.Background(), "broken")
	assert.True(t, apperrors.IsLoadError(err))
}

func TestRegistryResolveUnknownSuggests(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Resolve(context.Background(), "OpenalgoPromo")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCompositionNotFound, apperrors.GetCode(err))
	assert.Contains(t, apperrors.GetDetail(err), "did you mean OpenAlgoPromo?")

	_, err = reg.Resolve(context.Background(), "zzz")
	assert.Equal(t, "zzz", apperrors.GetDetail(err))
}

func TestRegistryStaticShadowsStory(t *testing.T) {
	promo := &scene.Descriptor{ID: "moon", Fps: 24, Width: 10, Height: 10, DurationFrames: 5}
	contentDir := t.TempDir()
	writeStory(t, contentDir, "moon", moonTimeline())

	reg := NewRegistry(Options{ContentDir: contentDir, Fps: 30, IntroFrames: 60, Width: 1920, Height: 1080}, promo)
	assert.Equal(t, []string{"moon"}, reg.IDs())

	got, err := reg.Resolve(context.Background(), "moon")
	require.NoError(t, err)
	assert.Equal(t, KindStatic, got.Kind)
}

func TestResolveHonoursCancelledContext(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Resolve(ctx, "OpenAlgoPromo")
	assert.ErrorIs(t, err, context.Canceled)
}
