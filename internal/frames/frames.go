// Package frames converts story-relative millisecond timestamps into frame
// indices on the final video, which starts with a fixed intro segment.
package frames

import "math"

// Converter is a value type; the zero value is not usable (FPS must be positive).
type Converter struct {
	FPS         int
	IntroFrames int
}

func New(fps, introFrames int) Converter {
	return Converter{FPS: fps, IntroFrames: introFrames}
}

// MsToFrame maps an absolute story timestamp to an absolute frame index.
func (c Converter) MsToFrame(ms float64) int {
	return int(math.Round(ms*float64(c.FPS)/1000)) + c.IntroFrames
}

// MsToDuration rounds the interval itself. It is deliberately not
// MsToFrame(end)-MsToFrame(start); adjacent cues may therefore overlap or
// leave a one-frame gap.
func (c Converter) MsToDuration(startMs, endMs float64) int {
	return int(math.Round((endMs - startMs) * float64(c.FPS) / 1000))
}

// DisplayDuration is MsToDuration clamped to at least one frame, for cues
// that must be visible.
func (c Converter) DisplayDuration(startMs, endMs float64) int {
	return max(1, c.MsToDuration(startMs, endMs))
}

// ContentFrames is the number of frames needed to cover ms of content.
func (c Converter) ContentFrames(ms float64) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Ceil(ms / 1000 * float64(c.FPS)))
}
