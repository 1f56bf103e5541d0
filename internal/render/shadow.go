// Package render finishes still frames written to files.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Shadow is a blurred drop shadow placed behind an exported frame.
type Shadow struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadow suits slides exported for handouts.
func DefaultShadow() Shadow {
	return Shadow{
		Radius:  24,
		Offset:  image.Pt(16, 16),
		Opacity: 0.55,
	}
}

// Apply draws img over its shadow on a transparent canvas grown to hold
// both. The canvas has a zero origin; the returned point is where img's
// top-left corner landed. With no opacity img is returned as a copy.
func (s Shadow) Apply(img image.Image) (*image.NRGBA, image.Point) {
	if img == nil {
		return nil, image.Point{}
	}
	src := imaging.Clone(img)
	if src.Rect.Empty() || s.Opacity <= 0 {
		return src, image.Point{}
	}
	opacity := min(s.Opacity, 1)
	radius := max(s.Radius, 0)

	padded := src.Rect.Inset(-radius)
	cast := padded.Add(s.Offset)
	canvas := src.Rect.Union(cast)
	shift := src.Rect.Min.Sub(canvas.Min)

	mask := image.NewGray(padded.Sub(padded.Min))
	for y := 0; y < src.Rect.Dy(); y++ {
		for x := 0; x < src.Rect.Dx(); x++ {
			if a := src.Pix[y*src.Stride+x*4+3]; a != 0 {
				mask.SetGray(x+radius, y+radius, color.Gray{Y: a})
			}
		}
	}
	alpha := toAlpha(blur.Box(mask, float64(radius)))

	dst := image.NewNRGBA(canvas.Sub(canvas.Min))
	ink := image.NewUniform(color.NRGBA{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, alpha.Rect.Add(cast.Min.Sub(canvas.Min)), ink, image.Point{}, alpha, image.Point{}, draw.Over)
	draw.Draw(dst, src.Rect.Add(shift), src, image.Point{}, draw.Over)
	return dst, shift
}

// toAlpha reads the blurred grey level back as coverage.
func toAlpha(img *image.RGBA) *image.Alpha {
	b := img.Bounds()
	out := image.NewAlpha(b.Sub(b.Min))
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}
