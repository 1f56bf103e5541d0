// Package surface paints the preview and projector rasters and maps
// pointer positions between surface, screen and image coordinates.
package surface

import (
	"image"

	"github.com/example/beamdeck/internal/geom"
)

// Layout describes where things sit on the preview surface.
type Layout struct {
	// Bounds is the whole surface.
	Bounds geom.Rect
	// Screen is the letterboxed area with the projector's aspect ratio.
	Screen geom.Rect
	// Display is where the rotated image is drawn inside Screen.
	Display geom.Rect

	SrcW, SrcH int
	Rotation   geom.Rotation
}

// NewLayout computes the layout of a srcW x srcH image rotated by rot on a
// surface of the given bounds mirroring a projector of the given aspect.
func NewLayout(bounds image.Rectangle, aspect float64, srcW, srcH int, rot geom.Rotation) Layout {
	b := geom.FromImage(bounds)
	screen := geom.Letterbox(b, aspect)
	w, h := rot.Size(srcW, srcH)
	return Layout{
		Bounds:   b,
		Screen:   screen,
		Display:  geom.Fit(screen, float64(w), float64(h)),
		SrcW:     srcW,
		SrcH:     srcH,
		Rotation: rot,
	}
}

// ImageTransform maps source pixels to surface pixels.
func (l Layout) ImageTransform() geom.Matrix {
	return geom.ImageTransform(l.Display, l.Rotation, float64(l.SrcW), float64(l.SrcH))
}

// NormalizedTransform maps normalized image coordinates to surface pixels.
func (l Layout) NormalizedTransform() geom.Matrix {
	return geom.NormalizedTransform(l.Display, l.Rotation, float64(l.SrcW), float64(l.SrcH))
}

// SurfaceToNormalized maps surface pixels to normalized image coordinates.
func (l Layout) SurfaceToNormalized() (geom.Matrix, error) {
	return l.NormalizedTransform().Invert()
}

// ToScreen converts a surface position to coordinates normalized to the
// letterboxed screen, as used by the pointer. ok is false outside it.
func (l Layout) ToScreen(p geom.Point) (geom.Point, bool) {
	if l.Screen.Empty() || !l.Screen.Contains(p) {
		return geom.Point{}, false
	}
	return geom.Pt((p.X-l.Screen.X)/l.Screen.W, (p.Y-l.Screen.Y)/l.Screen.H), true
}

// FromScreen is the inverse of ToScreen.
func (l Layout) FromScreen(p geom.Point) geom.Point {
	return geom.Pt(l.Screen.X+p.X*l.Screen.W, l.Screen.Y+p.Y*l.Screen.H)
}

// OverImage reports whether p lies on the drawn image.
func (l Layout) OverImage(p geom.Point) bool {
	return !l.Display.Empty() && l.Display.Contains(p)
}
