// Package compose builds the rasters shown on the preview and projector
// surfaces from a source image and a canvas snapshot.
package compose

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/roi"
)

// Kind identifies which surface a composite is for.
type Kind int

const (
	KindPreview Kind = iota
	KindProjector
)

func (k Kind) String() string {
	if k == KindProjector {
		return "projector"
	}
	return "preview"
}

// Result is a finished composite. The zero Result is empty and means there
// was nothing to draw.
type Result struct {
	Image    *image.NRGBA
	Kind     Kind
	Revision uint64
}

// Empty reports whether the result carries no raster.
func (r Result) Empty() bool {
	return r.Image == nil || r.Image.Rect.Empty()
}

// Options selects the pipeline steps.
type Options struct {
	Strokes  bool
	Crop     *image.Rectangle
	Rotation geom.Rotation
}

// Composite runs the pipeline in its fixed order: burn strokes, crop,
// rotate, brightness, auto-contrast. src is never modified.
func Composite(src image.Image, st canvas.State, opts Options) *image.NRGBA {
	if src == nil || src.Bounds().Empty() {
		return nil
	}
	var img image.Image = src
	if opts.Strokes && len(st.Strokes) > 0 {
		img = BurnStrokes(img, st.Strokes)
	}
	if opts.Crop != nil {
		img = imaging.Crop(img, opts.Crop.Add(img.Bounds().Min))
	}
	out := rotate(img, opts.Rotation)
	out = Brightness(out, st.Brightness)
	if st.AutoContrast {
		out = AutoContrast(out)
	}
	return out
}

// Preview composes the preview raster: rotation and tone only. Strokes are
// drawn by the surface so they stay sharp at display scale.
func Preview(src image.Image, st canvas.State) Result {
	img := Composite(src, st, Options{Rotation: st.Rotation})
	if img == nil {
		return Result{}
	}
	return Result{Image: img, Kind: KindPreview, Revision: st.Revision}
}

// Projector composes the projector raster. crop is nil when the ROI is
// disabled, in which case the image rotation applies.
func Projector(src image.Image, st canvas.State, crop *roi.Crop) Result {
	opts := Options{Strokes: true, Rotation: st.Rotation}
	if crop != nil {
		r := crop.Rect
		opts.Crop = &r
		opts.Rotation = crop.Residual
	}
	img := Composite(src, st, opts)
	if img == nil {
		return Result{}
	}
	return Result{Image: img, Kind: KindProjector, Revision: st.Revision}
}

// BurnStrokes draws strokes onto a copy of src in source pixel space with
// round caps and joins.
func BurnStrokes(src image.Image, strokes []canvas.Stroke) image.Image {
	b := src.Bounds()
	dc := gg.NewContextForImage(src)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	w, h := float64(b.Dx()), float64(b.Dy())
	for _, s := range strokes {
		if !s.Valid() {
			continue
		}
		dc.SetColor(s.Color)
		dc.SetLineWidth(s.Thickness)
		dc.NewSubPath()
		for i, p := range s.Points {
			if i == 0 {
				dc.MoveTo(p.X*w, p.Y*h)
				continue
			}
			dc.LineTo(p.X*w, p.Y*h)
		}
		dc.Stroke()
	}
	return dc.Image()
}

// rotate turns img clockwise by r. imaging rotates counter-clockwise.
func rotate(img image.Image, r geom.Rotation) *image.NRGBA {
	switch r {
	case geom.Rot90:
		return imaging.Rotate270(img)
	case geom.Rot180:
		return imaging.Rotate180(img)
	case geom.Rot270:
		return imaging.Rotate90(img)
	}
	return imaging.Clone(img)
}

// Brightness scales the colour channels by factor and leaves alpha alone.
func Brightness(img *image.NRGBA, factor float64) *image.NRGBA {
	if factor == 1 {
		return img
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(float64(i) * factor)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// AutoContrast stretches each colour channel so its darkest value maps to 0
// and its brightest to 255. The histogram is taken on the colours with alpha
// ignored, and alpha is kept. Applying it twice changes nothing.
func AutoContrast(img *image.NRGBA) *image.NRGBA {
	hist := histogram.NewRGBAHistogram(opaque(img))
	lr := stretch(hist.R.Bins)
	lg := stretch(hist.G.Bins)
	lb := stretch(hist.B.Bins)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lr[c.R], G: lg[c.G], B: lb[c.B], A: c.A}
	})
}

// opaque returns the colour view of img with every pixel fully opaque.
func opaque(img *image.NRGBA) *image.RGBA {
	out := image.NewRGBA(img.Rect)
	w := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w]
		copy(row, img.Pix[y*img.Stride:y*img.Stride+w])
		for i := 3; i < w; i += 4 {
			row[i] = 0xff
		}
	}
	return out
}

func stretch(bins []int) [256]uint8 {
	var lut [256]uint8
	lo, hi := -1, -1
	for i := 0; i < len(bins) && i < 256; i++ {
		if bins[i] == 0 {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	for i := range lut {
		lut[i] = uint8(i)
	}
	if lo < 0 || hi <= lo {
		return lut
	}
	scale := 255 / float64(hi-lo)
	for i := range lut {
		lut[i] = clamp8(float64(i-lo) * scale)
	}
	return lut
}

func clamp8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
