package surface

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/roi"
	"github.com/example/beamdeck/internal/theme"
)

const (
	roiOutlineWidth = 2.0
	messageSize     = 28.0
	toastSize       = 16.0
	toastPad        = 8.0
)

// PreviewFrame is everything needed to paint one preview frame.
type PreviewFrame struct {
	Layout Layout
	// Composite is the preview composite: rotated and toned, no strokes.
	Composite *image.NRGBA
	State     canvas.State
	// Live is the stroke being drawn, in normalized image coordinates.
	Live    []geom.Point
	Message string
	// Toast is a short-lived notice drawn over the bottom of the surface.
	Toast string
}

// Preview paints the operator's preview surface.
type Preview struct {
	Theme *theme.Theme
	Log   *slog.Logger
}

// NewPreview returns a painter using th, or the default theme when nil.
func NewPreview(th *theme.Theme, logger *slog.Logger) *Preview {
	if th == nil {
		th = theme.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preview{Theme: th, Log: logger}
}

// Paint draws f onto dst: background, letterbox, composite, strokes, the
// stroke in progress, the ROI outline and the pointer.
func (p *Preview) Paint(dst *image.RGBA, f PreviewFrame) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p.Theme.Background), image.Point{}, draw.Src)
	l := f.Layout
	draw.Draw(dst, l.Screen.Image(), image.NewUniform(p.Theme.Letterbox), image.Point{}, draw.Src)

	dc := gg.NewContextForRGBA(dst)
	if f.Composite == nil || f.Composite.Rect.Empty() {
		msg := f.Message
		if msg == "" {
			msg = "No image loaded"
		}
		p.drawMessage(dc, l.Screen, msg)
		p.drawToast(dc, l.Bounds, f.Toast)
		return
	}

	xdraw.ApproxBiLinear.Scale(dst, l.Display.Image(), f.Composite, f.Composite.Bounds(), draw.Over, nil)

	toSurface := l.NormalizedTransform()
	scale := l.ImageTransform().ScaleFactor()
	dc.DrawRectangle(l.Display.X, l.Display.Y, l.Display.W, l.Display.H)
	dc.Clip()
	for _, s := range f.State.Strokes {
		drawPath(dc, toSurface, s.Points, s.Color, s.Thickness*scale)
	}
	if style, ok := f.State.StyleFor(f.State.Tool); ok && len(f.Live) > 1 {
		drawPath(dc, toSurface, f.Live, style.Color, style.Thickness*scale)
	}
	dc.ResetClip()

	if f.State.ROIEnabled {
		poly := roi.Polygon(f.State, l.Display)
		for i, c := range poly {
			if i == 0 {
				dc.MoveTo(c.X, c.Y)
				continue
			}
			dc.LineTo(c.X, c.Y)
		}
		dc.ClosePath()
		dc.SetLineWidth(roiOutlineWidth)
		dc.SetColor(p.Theme.ROIOutline)
		dc.Stroke()
	}

	if f.State.PointerActive() {
		DrawPointer(dc, l.FromScreen(f.State.Pointer), f.State.PointerStyle, f.State.Frame, p.Theme)
	}
	p.drawToast(dc, l.Bounds, f.Toast)
}

func drawPath(dc *gg.Context, m geom.Matrix, pts []geom.Point, c color.Color, width float64) {
	if len(pts) < 2 || !(width > 0) || math.IsInf(width, 0) {
		return
	}
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	dc.SetLineWidth(width)
	dc.SetColor(c)
	dc.NewSubPath()
	for i, pt := range pts {
		q := m.Apply(pt)
		if i == 0 {
			dc.MoveTo(q.X, q.Y)
			continue
		}
		dc.LineTo(q.X, q.Y)
	}
	dc.Stroke()
}

func (p *Preview) drawMessage(dc *gg.Context, area geom.Rect, msg string) {
	face, err := Face(messageSize)
	if err != nil {
		p.Log.Warn("message font unavailable", "err", err)
	}
	dc.SetFontFace(face)
	dc.SetColor(p.Theme.Message)
	c := area.Center()
	dc.DrawStringAnchored(msg, c.X, c.Y, 0.5, 0.5)
}

func (p *Preview) drawToast(dc *gg.Context, area geom.Rect, msg string) {
	if msg == "" {
		return
	}
	face, err := Face(toastSize)
	if err != nil {
		p.Log.Debug("toast font unavailable", "err", err)
	}
	dc.SetFontFace(face)
	w, h := dc.MeasureString(msg)
	x := area.X + (area.W-w)/2
	y := area.MaxY() - h - 3*toastPad
	dc.SetColor(color.NRGBA{A: 200})
	dc.DrawRoundedRectangle(x-toastPad, y-toastPad, w+2*toastPad, h+2*toastPad, toastPad)
	dc.Fill()
	dc.SetColor(p.Theme.Message)
	dc.DrawStringAnchored(msg, x, y, 0, 1)
}
