package timeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyreel/internal/frames"
	apperrors "storyreel/pkg/errors"
)

var conv = frames.New(30, 60)

const sampleTimeline = `{
  "shortTitle": "The Moon Landing",
  "elements": [
    {"startMs": 3000, "endMs": 6000, "source": "b", "exitTransition": "blur"},
    {"startMs": 0, "endMs": 3000, "source": "a", "enterTransition": "blur"},
    {"startMs": 3000, "endMs": 4000, "source": "c"}
  ],
  "text": [{"startMs": 0, "endMs": 400, "text": "One"}],
  "audio": [{"startMs": 0, "endMs": 6000, "audioUrl": "narration"}]
}`

func TestParseSortsElementsStably(t *testing.T) {
	loaded, err := Parse([]byte(sampleTimeline), conv)
	require.NoError(t, err)

	sources := make([]string, 0, len(loaded.Timeline.Elements))
	for _, e := range loaded.Timeline.Elements {
		sources = append(sources, e.Source)
	}
	// b and c share startMs 3000 and keep input order
	assert.Equal(t, []string{"a", "b", "c"}, sources)
	assert.Equal(t, TransitionBlur, loaded.Timeline.Elements[0].EnterTransition)
	assert.Equal(t, TransitionNone, loaded.Timeline.Elements[0].ExitTransition)

	// length comes from the last sorted element (c ends at 4000)
	assert.Equal(t, 60+120, loaded.LengthFrames)
}

func TestParseSingleElementScenario(t *testing.T) {
	doc := `{"shortTitle":"x","elements":[{"startMs":0,"endMs":5000,"source":"img"}],"text":[],"audio":[]}`

	loaded, err := Parse([]byte(doc), frames.New(30, 60))
	require.NoError(t, err)
	assert.Equal(t, 210, loaded.LengthFrames)
}

func TestParseEmptyElementsIsIntroOnly(t *testing.T) {
	doc := `{"shortTitle":"x","elements":[],"text":[],"audio":[]}`

	loaded, err := Parse([]byte(doc), conv)
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.LengthFrames)
	assert.ErrorIs(t, loaded.Timeline.RequireElements(), apperrors.ErrEmptyElements)
}

func TestParseCeilsPartialFrames(t *testing.T) {
	doc := `{"shortTitle":"x","elements":[{"startMs":0,"endMs":1001,"source":"img"}],"text":[],"audio":[]}`

	loaded, err := Parse([]byte(doc), conv)
	require.NoError(t, err)
	assert.Equal(t, 60+31, loaded.LengthFrames)
}

func TestParseRejects(t *testing.T) {
	testCases := []struct {
		name       string
		doc        string
		wantCode   int
		wantDetail string
		invariant  bool
	}{
		{
			name:     "malformed json",
			doc:      `{"shortTitle": `,
			wantCode: apperrors.CodeTimelineMalformed,
		},
		{
			name:     "trailing garbage",
			doc:      `{"shortTitle":"x","elements":[],"text":[],"audio":[]} {"garbage`,
			wantCode: apperrors.CodeTimelineMalformed,
		},
		{
			name:     "second document",
			doc:      `{"shortTitle":"x","elements":[],"text":[],"audio":[]}{}`,
			wantCode: apperrors.CodeTimelineMalformed,
		},
		{
			name:     "wrong type",
			doc:      `{"shortTitle":"x","elements":[{"startMs":"0","endMs":1,"source":"a"}],"text":[],"audio":[]}`,
			wantCode: apperrors.CodeTimelineMalformed,
		},
		{
			name:       "missing title",
			doc:        `{"elements":[],"text":[],"audio":[]}`,
			wantCode:   apperrors.CodeTimelineSchema,
			wantDetail: "shortTitle",
		},
		{
			name:       "missing audio list",
			doc:        `{"shortTitle":"x","elements":[],"text":[]}`,
			wantCode:   apperrors.CodeTimelineSchema,
			wantDetail: "audio",
		},
		{
			name:       "missing element end",
			doc:        `{"shortTitle":"x","elements":[{"startMs":0,"source":"a"}],"text":[],"audio":[]}`,
			wantCode:   apperrors.CodeTimelineSchema,
			wantDetail: "elements[0].endMs",
		},
		{
			name:       "missing subtitle text",
			doc:        `{"shortTitle":"x","elements":[],"text":[{"startMs":0,"endMs":10}],"audio":[]}`,
			wantCode:   apperrors.CodeTimelineSchema,
			wantDetail: "text[0].text",
		},
		{
			name:     "negative timestamp",
			doc:      `{"shortTitle":"x","elements":[{"startMs":-1,"endMs":10,"source":"a"}],"text":[],"audio":[]}`,
			wantCode: apperrors.CodeTimelineSchema,
		},
		{
			name:       "timestamp beyond frame range",
			doc:        `{"shortTitle":"x","elements":[{"startMs":0,"endMs":1e308,"source":"a"}],"text":[],"audio":[]}`,
			wantCode:   apperrors.CodeTimelineSchema,
			wantDetail: "elements[0].endMs=1e+308 fps=30",
		},
		{
			name:     "audio end past int32 frames",
			doc:      `{"shortTitle":"x","elements":[],"text":[],"audio":[{"startMs":0,"endMs":72000000000,"audioUrl":"a"}]}`,
			wantCode: apperrors.CodeTimelineSchema,
		},
		{
			name:      "end before start",
			doc:       `{"shortTitle":"x","elements":[],"text":[],"audio":[{"startMs":100,"endMs":100,"audioUrl":"a"}]}`,
			wantCode:  apperrors.CodeTimelineSchema,
			invariant: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), conv)
			require.Error(t, err)
			assert.True(t, apperrors.IsLoadError(err), "want LoadError, got %v", err)
			assert.Equal(t, tc.wantCode, apperrors.GetCode(err))
			if tc.wantDetail != "" {
				assert.Equal(t, tc.wantDetail, apperrors.GetDetail(err))
			}
			assert.Equal(t, tc.invariant, apperrors.IsScheduleInvariantError(err))
		})
	}
}

func TestParseAcceptsTrailingWhitespace(t *testing.T) {
	doc := "{\"shortTitle\":\"x\",\"elements\":[],\"text\":[],\"audio\":[]}\n\n"

	_, err := Parse([]byte(doc), conv)
	require.NoError(t, err)
}

func TestValidateRejectsNonFiniteTimestamps(t *testing.T) {
	tl := &Timeline{
		ShortTitle: "x",
		Elements:   []BackgroundElement{{StartMs: 0, EndMs: math.Inf(1), Source: "a"}},
	}
	err := tl.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTimelineSchema, apperrors.GetCode(err))

	tl.Elements[0].EndMs = math.NaN()
	assert.Error(t, tl.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), conv)
	require.Error(t, err)
	assert.True(t, apperrors.IsLoadError(err))
	assert.Equal(t, apperrors.CodeTimelineNotFound, apperrors.GetCode(err))
}

func TestWriteThenLoadStory(t *testing.T) {
	contentDir := t.TempDir()
	tl := &Timeline{
		ShortTitle: "Round Trip",
		Elements:   []BackgroundElement{{StartMs: 0, EndMs: 2000, Source: "img1", EnterTransition: TransitionBlur}},
		Text:       []SubtitleCue{{StartMs: 0, EndMs: 300, Text: "Hi"}},
		Audio:      []AudioCue{{StartMs: 0, EndMs: 2000, AudioUrl: "a1"}},
	}

	require.NoError(t, Write(filepath.Join(contentDir, "trip", "timeline.json"), tl))

	loaded, err := LoadStory(contentDir, "trip", conv)
	require.NoError(t, err)
	assert.Equal(t, tl, loaded.Timeline)
	assert.Equal(t, 120, loaded.LengthFrames)
}

func TestValidateDetectsUnsortedElements(t *testing.T) {
	tl := &Timeline{Elements: []BackgroundElement{
		{StartMs: 1000, EndMs: 2000, Source: "b"},
		{StartMs: 0, EndMs: 1000, Source: "a"},
	}}

	err := tl.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsScheduleInvariantError(err))
}

func TestDiscover(t *testing.T) {
	contentDir := t.TempDir()
	for _, id := range []string{"zeta", "alpha"} {
		dir := filepath.Join(contentDir, id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "timeline.json"), []byte("{}"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(contentDir, "no-timeline", "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "stray.json"), []byte("{}"), 0o644))

	ids, err := Discover(contentDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)

	ids, err = Discover(filepath.Join(contentDir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}
