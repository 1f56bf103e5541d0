package surface

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/theme"
)

// ProjectorFrame is everything needed to paint one projector frame.
type ProjectorFrame struct {
	Composite  *image.NRGBA
	State      canvas.State
	Background color.NRGBA
}

// Projector paints the projector surface.
type Projector struct {
	Theme *theme.Theme
}

// NewProjector returns a painter using th, or the default theme when nil.
func NewProjector(th *theme.Theme) *Projector {
	if th == nil {
		th = theme.Default()
	}
	return &Projector{Theme: th}
}

// Paint draws the background, the composite placed by the display mode and
// the pointer, which is positioned relative to the whole surface.
func (p *Projector) Paint(dst *image.RGBA, f ProjectorFrame) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(f.Background), image.Point{}, draw.Src)
	if f.Composite != nil && !f.Composite.Rect.Empty() {
		Place(dst, f.Composite, f.State.DisplayMode)
	}
	if f.State.PointerActive() {
		area := geom.FromImage(b)
		c := geom.Pt(area.X+f.State.Pointer.X*area.W, area.Y+f.State.Pointer.Y*area.H)
		DrawPointer(gg.NewContextForRGBA(dst), c, f.State.PointerStyle, f.State.Frame, p.Theme)
	}
}

// Place draws src onto dst according to mode.
func Place(dst *image.RGBA, src *image.NRGBA, mode canvas.DisplayMode) {
	b := dst.Bounds()
	area := geom.FromImage(b)
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	switch mode {
	case canvas.DisplayFill:
		xdraw.ApproxBiLinear.Scale(dst, geom.Cover(area, float64(sw), float64(sh)).Image(), src, src.Rect, draw.Over, nil)
	case canvas.DisplayStretch:
		xdraw.ApproxBiLinear.Scale(dst, b, src, src.Rect, draw.Over, nil)
	case canvas.DisplayCenter:
		off := image.Pt(b.Min.X+(b.Dx()-sw)/2, b.Min.Y+(b.Dy()-sh)/2)
		draw.Draw(dst, image.Rectangle{Min: off, Max: off.Add(image.Pt(sw, sh))}, src, src.Rect.Min, draw.Over)
	case canvas.DisplayTile:
		for y := b.Min.Y; y < b.Max.Y; y += sh {
			for x := b.Min.X; x < b.Max.X; x += sw {
				draw.Draw(dst, image.Rect(x, y, x+sw, y+sh), src, src.Rect.Min, draw.Over)
			}
		}
	default:
		xdraw.ApproxBiLinear.Scale(dst, geom.Fit(area, float64(sw), float64(sh)).Image(), src, src.Rect, draw.Over, nil)
	}
}
