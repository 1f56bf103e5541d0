package geom

import (
	"image"
	"math"
)

// Point is a position in a floating point coordinate space.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X, Y, W, H float64
}

// R is shorthand for Rect{X: x, Y: y, W: w, H: h}.
func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// FromImage converts an integer rectangle.
func FromImage(r image.Rectangle) Rect {
	return Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), W: float64(r.Dx()), H: float64(r.Dy())}
}

// MaxX is the right edge.
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY is the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Center returns the midpoint of r.
func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Corners returns the corners clockwise from the top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.MaxX(), Y: r.Y},
		{X: r.MaxX(), Y: r.MaxY()},
		{X: r.X, Y: r.MaxY()},
	}
}

// Image rounds r to the nearest integer rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.MaxX())), int(math.Round(r.MaxY())),
	)
}

// Bounds returns the smallest rectangle containing every point.
func Bounds(ps ...Point) Rect {
	if len(ps) == 0 {
		return Rect{}
	}
	minX, minY := ps[0].X, ps[0].Y
	maxX, maxY := minX, minY
	for _, p := range ps[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Fit returns the largest rectangle of size w x h scaled uniformly to fit
// inside area, centred.
func Fit(area Rect, w, h float64) Rect {
	if w <= 0 || h <= 0 || area.Empty() {
		return Rect{X: area.X, Y: area.Y}
	}
	s := math.Min(area.W/w, area.H/h)
	dw, dh := w*s, h*s
	return Rect{X: area.X + (area.W-dw)/2, Y: area.Y + (area.H-dh)/2, W: dw, H: dh}
}

// Cover returns the smallest rectangle of size w x h scaled uniformly to cover
// area, centred. Parts may fall outside area.
func Cover(area Rect, w, h float64) Rect {
	if w <= 0 || h <= 0 || area.Empty() {
		return Rect{X: area.X, Y: area.Y}
	}
	s := math.Max(area.W/w, area.H/h)
	dw, dh := w*s, h*s
	return Rect{X: area.X + (area.W-dw)/2, Y: area.Y + (area.H-dh)/2, W: dw, H: dh}
}

// Letterbox returns the largest rectangle with the given aspect ratio
// (width/height) centred inside area.
func Letterbox(area Rect, aspect float64) Rect {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		return area
	}
	return Fit(area, aspect, 1)
}
