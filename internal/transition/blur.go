// Package transition computes the per-frame blur envelope of background elements.
package transition

import "storyreel/internal/timeline"

const (
	MaxBlur = 1.0
	FadeMs  = 1000.0
)

// CalculateBlur returns the blur intensity in [0, MaxBlur] for item at localMs
// after its own start. The enter fade wins over the exit fade when a clip is
// shorter than the fade window.
func CalculateBlur(item timeline.BackgroundElement, localMs float64) float64 {
	duration := item.EndMs - item.StartMs

	if item.EnterTransition == timeline.TransitionBlur && localMs < FadeMs {
		return (1 - localMs/FadeMs) * MaxBlur
	} else if item.ExitTransition == timeline.TransitionBlur && localMs > duration-FadeMs {
		return (1 - (duration-localMs)/FadeMs) * MaxBlur
	}
	return 0
}

// BlurRadius scales a unit blur amount to a gaussian sigma in pixels.
func BlurRadius(amount, maxRadiusPx float64) float64 {
	if amount <= 0 {
		return 0
	}
	return min(amount, MaxBlur) * maxRadiusPx
}
