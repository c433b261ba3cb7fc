package scene

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storyreel/pkg/errors"
)

const sampleYAML = `
id: Sample
fps: 30
width: 640
height: 360
scenes:
  - name: a
    duration_frames: 30
    background: "#000000"
    foreground: "#ffffff"
    words: ["one"]
    transition: {kind: fade, frames: 10}
  - name: b
    duration_frames: 40
    background: "#111111"
    foreground: "#ffffff"
  - name: c
    duration_frames: 50
    background: "#222222"
    foreground: "#ffffff"
`

func TestParseAndTotals(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "Sample", d.ID)
	require.Len(t, d.Scenes, 3)
	assert.Equal(t, 110, d.SceneFrames())
	assert.Equal(t, 110, d.TotalFrames())

	d.DurationFrames = 90
	assert.Equal(t, 90, d.TotalFrames())
}

func TestFrameAt(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	tests := []struct {
		frame int
		want  Frame
	}{
		{0, Frame{Index: 0, Local: 0, From: -1}},
		{19, Frame{Index: 0, Local: 19, From: -1}},
		{20, Frame{Index: 1, Local: 0, From: 0, Progress: 0, Kind: TransitionFade}},
		{25, Frame{Index: 1, Local: 5, From: 0, Progress: 0.5, Kind: TransitionFade}},
		{30, Frame{Index: 1, Local: 10, From: -1}},
		{60, Frame{Index: 2, Local: 0, From: -1}},
		{500, Frame{Index: 2, Local: 49, From: -1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.FrameAt(tt.frame), "frame %d", tt.frame)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no id", "fps: 30\nwidth: 1\nheight: 1\nduration_frames: 10\n"},
		{"no fps", "id: x\nwidth: 1\nheight: 1\nduration_frames: 10\n"},
		{"empty", "id: x\nfps: 30\nwidth: 1\nheight: 1\n"},
		{"zero scene", "id: x\nfps: 30\nwidth: 1\nheight: 1\nscenes:\n  - name: a\n    duration_frames: 0\n"},
		{"unknown transition", "id: x\nfps: 30\nwidth: 1\nheight: 1\nscenes:\n  - name: a\n    duration_frames: 10\n    transition: {kind: spin, frames: 2}\n  - name: b\n    duration_frames: 10\n"},
		{"long transition", "id: x\nfps: 30\nwidth: 1\nheight: 1\nscenes:\n  - name: a\n    duration_frames: 10\n    transition: {kind: fade, frames: 20}\n  - name: b\n    duration_frames: 30\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeSceneDescriptorError, apperrors.GetCode(err))
		})
	}

	_, err := Parse([]byte("id: [oops"))
	assert.Equal(t, apperrors.CodeSceneDescriptorError, apperrors.GetCode(err))
}

func TestSaveLoad(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, Save(file, d))

	back, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, d, back)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, apperrors.CodeSceneDescriptorError, apperrors.GetCode(err))
}

func TestBuiltin(t *testing.T) {
	all, err := Builtin()
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "FOSSHack2026", all[0].ID)
	assert.Equal(t, 1200, all[0].TotalFrames())
	assert.Equal(t, "OpenAlgoPromo", all[1].ID)
	assert.Equal(t, 2700, all[1].TotalFrames())

	for _, d := range all {
		assert.Equal(t, 30, d.Fps)
		assert.Equal(t, 1920, d.Width)
		assert.Equal(t, 1080, d.Height)
		assert.Equal(t, 0, d.FrameAt(0).Index)
	}
}
