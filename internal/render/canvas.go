package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	apperrors "storyreel/pkg/errors"
)

var (
	white  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black  = color.RGBA{A: 0xff}
	gold   = color.RGBA{R: 0xff, G: 0xd7, A: 0xff}
	yellow = color.RGBA{R: 0xff, G: 0xff, A: 0xff}
)

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// textMask renders text into an alpha mask with pad pixels of margin on
// every side, so an outline fits inside it.
func textMask(face font.Face, text string, pad int) *image.Alpha {
	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	mask := image.NewAlpha(image.Rect(0, 0, w+2*pad, h+2*pad))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(pad, pad+m.Ascent.Ceil()),
	}
	d.DrawString(text)
	return mask
}

func strokeOffsets(radius int) []image.Point {
	const steps = 16
	radii := []float64{float64(radius)}
	if radius >= 4 {
		radii = append(radii, float64(radius)/2)
	}
	out := make([]image.Point, 0, steps*len(radii))
	for _, r := range radii {
		for i := 0; i < steps; i++ {
			a := 2 * math.Pi * float64(i) / steps
			out = append(out, image.Pt(int(math.Round(r*math.Cos(a))), int(math.Round(r*math.Sin(a)))))
		}
	}
	return out
}

// drawText centres text on (cx, cy). A positive strokePx paints an outline
// in stroke underneath the fill.
func drawText(dst draw.Image, face font.Face, text string, cx, cy int, fg, stroke color.Color, strokePx int) {
	if text == "" {
		return
	}
	pad := max(0, strokePx)
	mask := textMask(face, text, pad)
	b := mask.Bounds()
	at := b.Add(image.Pt(cx-b.Dx()/2, cy-b.Dy()/2))

	if strokePx > 0 && stroke != nil {
		src := image.NewUniform(stroke)
		for _, off := range strokeOffsets(strokePx) {
			draw.DrawMask(dst, at.Add(off), src, image.Point{}, mask, image.Point{}, draw.Over)
		}
	}
	draw.DrawMask(dst, at, image.NewUniform(fg), image.Point{}, mask, image.Point{}, draw.Over)
}

type cachedImage struct {
	once sync.Once
	img  *image.NRGBA
	err  error
}

// imageCache decodes and cover-fits each source once per render. Cached
// images are shared read-only between frame workers.
type imageCache struct {
	mu      sync.Mutex
	entries map[string]*cachedImage
}

func newImageCache() *imageCache {
	return &imageCache{entries: make(map[string]*cachedImage)}
}

func (c *imageCache) get(path string, width, height int) (*image.NRGBA, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	if !ok {
		e = &cachedImage{}
		c.entries[path] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		src, err := imaging.Open(path)
		if err != nil {
			e.err = apperrors.WrapWithDetail(apperrors.CodeFileNotFound, "Open media failed", path, err)
			return
		}
		e.img = imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos)
	})
	return e.img, e.err
}
