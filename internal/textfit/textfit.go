// Package textfit sizes overlay text so it fits a bounded width. It shrinks
// the font and never truncates the text.
package textfit

import (
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

const (
	DesiredFontSize = 72.0
	MinFontSize     = 24.0
	WidthRatio      = 0.85

	referenceSize = 100.0
)

// Fitter measures with a single reference face guarded by a mutex; faces
// from x/image are not safe for concurrent use.
type Fitter struct {
	font *opentype.Font

	mu        sync.Mutex
	reference font.Face
}

var (
	defaultOnce   sync.Once
	defaultFitter *Fitter
	defaultErr    error
)

// Default returns a process-wide Fitter using the Go Bold face.
func Default() (*Fitter, error) {
	defaultOnce.Do(func() {
		defaultFitter, defaultErr = New(gobold.TTF)
	})
	return defaultFitter, defaultErr
}

// New parses an OpenType/TrueType font.
func New(ttf []byte) (*Fitter, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	ref, err := opentype.NewFace(f, &opentype.FaceOptions{Size: referenceSize, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	return &Fitter{font: f, reference: ref}, nil
}

// Width is the advance width of text at size, in pixels.
func (f *Fitter) Width(text string, size float64) float64 {
	f.mu.Lock()
	adv := font.MeasureString(f.reference, text)
	f.mu.Unlock()
	return float64(adv) / 64 * size / referenceSize
}

// FontSize returns desired when text fits maxWidth, otherwise the largest
// size that fits, bounded below by minSize. Below minSize the text overflows.
func (f *Fitter) FontSize(text string, maxWidth, desired, minSize float64) float64 {
	natural := f.Width(text, desired)
	if natural <= maxWidth || natural == 0 {
		return desired
	}
	fitted := math.Floor(desired*maxWidth/natural*100) / 100
	return max(minSize, min(desired, fitted))
}

// OverlaySize applies the subtitle overlay bounds for a frame of the given width.
func (f *Fitter) OverlaySize(text string, frameWidth int) float64 {
	return f.FontSize(text, float64(frameWidth)*WidthRatio, DesiredFontSize, MinFontSize)
}

// NewFace returns a fresh face at size; callers own it and must not share it
// across goroutines.
func (f *Fitter) NewFace(size float64) (font.Face, error) {
	return opentype.NewFace(f.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}
