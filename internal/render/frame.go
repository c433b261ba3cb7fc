package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"storyreel/internal/appdirs"
	"storyreel/internal/composition"
	"storyreel/internal/scene"
	"storyreel/internal/textfit"
	"storyreel/internal/transition"
	apperrors "storyreel/pkg/errors"
)

const (
	maxBlurPx = 12.0

	introFontSize   = 120.0
	introLineHeight = 122
	introPadding    = 20
	introBorder     = 10
	introWidthRatio = 0.87

	subtitleBottom = 80
	subtitleHeight = 120
	subtitleStroke = 12.0

	sceneFontSize = 110.0
	wordStagger   = 8
	wordFade      = 6
)

// FrameRenderer turns frame states into pixels. One renderer serves a whole
// render and is safe for concurrent use; faces are created per call.
type FrameRenderer struct {
	width, height int
	fitter        *textfit.Fitter
	images        *imageCache
}

func NewFrameRenderer(width, height int, fitter *textfit.Fitter) *FrameRenderer {
	return &FrameRenderer{width: width, height: height, fitter: fitter, images: newImageCache()}
}

func (fr *FrameRenderer) canvas() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, fr.width, fr.height))
}

// DrawStory paints a white canvas, the background, the current word and,
// on top of everything, the intro card.
func (fr *FrameRenderer) DrawStory(contentDir, storyID string, st composition.FrameState) (*image.RGBA, error) {
	dst := fr.canvas()
	fill(dst, dst.Bounds(), white)

	if bg := st.Background; bg != nil {
		img, err := fr.images.get(appdirs.ImagePathFor(contentDir, storyID, bg.Source), fr.width, fr.height)
		if err != nil {
			return nil, err
		}
		var src image.Image = img
		if sigma := transition.BlurRadius(bg.Blur, maxBlurPx); sigma > 0 {
			src = imaging.Blur(img, sigma)
		}
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Over)
	}

	if st.Subtitle != nil {
		if err := fr.drawSubtitle(dst, st.Subtitle); err != nil {
			return nil, err
		}
	}

	if st.Intro {
		if err := fr.drawIntro(dst, st.Title); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (fr *FrameRenderer) drawSubtitle(dst *image.RGBA, sub *composition.SubtitleState) error {
	text := strings.ToUpper(sub.Text)
	size := fr.fitter.OverlaySize(text, fr.width) * sub.Scale
	face, err := fr.fitter.NewFace(size)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRenderFailed, "Create subtitle face failed", err)
	}
	defer face.Close()

	cy := fr.height - subtitleBottom - subtitleHeight/2 + int(math.Round(sub.OffsetY))
	stroke := int(math.Round(subtitleStroke * sub.Scale))
	drawText(dst, face, text, fr.width/2, cy, gold, black, stroke)
	return nil
}

func (fr *FrameRenderer) drawIntro(dst *image.RGBA, title string) error {
	text := strings.ToUpper(title)
	boxW := int(float64(fr.width) * introWidthRatio)
	boxH := introLineHeight + 2*introPadding + 2*introBorder
	box := image.Rect(0, 0, boxW, boxH).Add(image.Pt((fr.width-boxW)/2, (fr.height-boxH)/2))

	fill(dst, box, black)
	fill(dst, box.Inset(introBorder), yellow)

	size := fr.fitter.FontSize(text, float64(boxW-2*(introBorder+introPadding)), introFontSize, textfit.MinFontSize)
	face, err := fr.fitter.NewFace(size)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRenderFailed, "Create intro face failed", err)
	}
	defer face.Close()

	drawText(dst, face, text, fr.width/2, fr.height/2, black, nil, 0)
	return nil
}

// DrawScene paints a promo frame, compositing the outgoing scene while a
// transition is running.
func (fr *FrameRenderer) DrawScene(d *scene.Descriptor, f scene.Frame) (*image.RGBA, error) {
	if f.Index < 0 {
		dst := fr.canvas()
		fill(dst, dst.Bounds(), black)
		return dst, nil
	}

	in, err := fr.drawSceneAt(d.Scenes[f.Index], f.Local)
	if err != nil || f.From < 0 {
		return in, err
	}

	prev := d.Scenes[f.From]
	out, err := fr.drawSceneAt(prev, prev.DurationFrames-prev.Transition.Frames+f.Local)
	if err != nil {
		return nil, err
	}
	return composeTransition(out, in, f.Kind, f.Progress), nil
}

func (fr *FrameRenderer) drawSceneAt(s scene.Scene, local int) (*image.RGBA, error) {
	bg, err := ParseHexColor(s.Background)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSceneDescriptorError, "Invalid scene background", err)
	}
	fg := white
	if s.Foreground != "" {
		if fg, err = ParseHexColor(s.Foreground); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeSceneDescriptorError, "Invalid scene foreground", err)
		}
	}

	dst := fr.canvas()
	fill(dst, dst.Bounds(), bg)

	if s.Image != "" {
		img, err := fr.images.get(s.Image, fr.width, fr.height)
		if err != nil {
			return nil, err
		}
		draw.Draw(dst, dst.Bounds(), img, image.Point{}, draw.Over)
	}

	if len(s.Words) == 0 {
		return dst, nil
	}

	sizes := make([]float64, len(s.Words))
	total := 0.0
	for i, w := range s.Words {
		sizes[i] = fr.fitter.FontSize(w, float64(fr.width)*textfit.WidthRatio, sceneFontSize, textfit.MinFontSize)
		total += sizes[i] * 1.25
	}

	y := (float64(fr.height) - total) / 2
	for i, w := range s.Words {
		lineH := sizes[i] * 1.25
		alpha := wordAlpha(local, i)
		if alpha > 0 {
			face, err := fr.fitter.NewFace(sizes[i])
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeRenderFailed, "Create scene face failed", err)
			}
			c := color.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: uint8(math.Round(alpha * 255))}
			drawText(dst, face, w, fr.width/2, int(math.Round(y+lineH/2)), c, nil, 0)
			face.Close()
		}
		y += lineH
	}
	return dst, nil
}

// wordAlpha staggers word i in by wordStagger frames and fades it over wordFade.
func wordAlpha(local, i int) float64 {
	t := float64(local-i*wordStagger) / wordFade
	return math.Min(1, math.Max(0, t))
}

func composeTransition(out, in *image.RGBA, kind scene.TransitionKind, p float64) *image.RGBA {
	b := in.Bounds()
	w := b.Dx()
	shift := int(math.Round(p * float64(w)))

	switch kind {
	case scene.TransitionFade:
		dst := image.NewRGBA(b)
		draw.Draw(dst, b, out, b.Min, draw.Src)
		alpha := image.NewUniform(color.Alpha{A: uint8(math.Round(p * 255))})
		draw.DrawMask(dst, b, in, b.Min, alpha, image.Point{}, draw.Over)
		return dst
	case scene.TransitionSlide:
		dst := image.NewRGBA(b)
		draw.Draw(dst, image.Rect(0, 0, w-shift, b.Dy()), out, image.Pt(shift, 0), draw.Src)
		draw.Draw(dst, image.Rect(w-shift, 0, w, b.Dy()), in, image.Point{}, draw.Src)
		return dst
	case scene.TransitionWipe:
		dst := image.NewRGBA(b)
		draw.Draw(dst, b, out, b.Min, draw.Src)
		draw.Draw(dst, image.Rect(w-shift, 0, w, b.Dy()), in, image.Pt(w-shift, 0), draw.Src)
		return dst
	default:
		return in
	}
}
