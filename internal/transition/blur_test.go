package transition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storyreel/internal/timeline"
)

func element(startMs, endMs float64, enter, exit timeline.Transition) timeline.BackgroundElement {
	return timeline.BackgroundElement{StartMs: startMs, EndMs: endMs, Source: "img", EnterTransition: enter, ExitTransition: exit}
}

func TestCalculateBlurEnter(t *testing.T) {
	item := element(0, 3000, timeline.TransitionBlur, timeline.TransitionNone)

	assert.Equal(t, MaxBlur, CalculateBlur(item, 0))
	assert.InDelta(t, 0.5, CalculateBlur(item, 500), 1e-12)
	assert.InDelta(t, 0.25, CalculateBlur(item, 750), 1e-12)
	assert.Equal(t, 0.0, CalculateBlur(item, FadeMs), "continuous at the fade boundary")
	assert.Equal(t, 0.0, CalculateBlur(item, 2999))
	assert.Equal(t, 0.0, CalculateBlur(item, 3000))
}

func TestCalculateBlurEnterIsContinuousNearBoundary(t *testing.T) {
	item := element(0, 3000, timeline.TransitionBlur, timeline.TransitionNone)

	assert.InDelta(t, 0.0, CalculateBlur(item, FadeMs-1e-6), 1e-6)
	assert.Equal(t, 0.0, CalculateBlur(item, FadeMs+1e-6))
}

func TestCalculateBlurExit(t *testing.T) {
	item := element(2000, 5000, timeline.TransitionNone, timeline.TransitionBlur)

	assert.Equal(t, 0.0, CalculateBlur(item, 0))
	assert.Equal(t, 0.0, CalculateBlur(item, 2000), "exit window starts strictly after duration-fade")
	assert.InDelta(t, 0.5, CalculateBlur(item, 2500), 1e-12)
	assert.Equal(t, MaxBlur, CalculateBlur(item, 3000))
}

func TestCalculateBlurWithoutTransitions(t *testing.T) {
	item := element(0, 3000, timeline.TransitionNone, timeline.TransitionNone)
	for _, ms := range []float64{0, 500, 1500, 2500, 3000} {
		assert.Equal(t, 0.0, CalculateBlur(item, ms))
	}

	unknown := element(0, 3000, "slide", "wipe")
	assert.Equal(t, 0.0, CalculateBlur(unknown, 0))
	assert.Equal(t, 0.0, CalculateBlur(unknown, 3000))
}

func TestCalculateBlurEnterWinsOnShortClip(t *testing.T) {
	item := element(0, 600, timeline.TransitionBlur, timeline.TransitionBlur)

	// both windows cover localMs=500; only the enter branch is evaluated
	assert.InDelta(t, 0.5, CalculateBlur(item, 500), 1e-12)
	// at the very end the enter fade still applies because 600 < FadeMs
	assert.InDelta(t, 0.4, CalculateBlur(item, 600), 1e-12)
}

func TestCalculateBlurBothOnLongClip(t *testing.T) {
	item := element(0, 4000, timeline.TransitionBlur, timeline.TransitionBlur)

	assert.Equal(t, MaxBlur, CalculateBlur(item, 0))
	assert.Equal(t, 0.0, CalculateBlur(item, 2000))
	assert.Equal(t, MaxBlur, CalculateBlur(item, 4000))
}

func TestBlurRadius(t *testing.T) {
	assert.Equal(t, 0.0, BlurRadius(0, 12))
	assert.Equal(t, 0.0, BlurRadius(-0.1, 12))
	assert.Equal(t, 6.0, BlurRadius(0.5, 12))
	assert.Equal(t, 12.0, BlurRadius(1.5, 12))
}
