package surface

import (
	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
)

// HitROI reports whether surface point p falls inside the ROI as drawn,
// taking the ROI rotation into account.
func HitROI(st canvas.State, display geom.Rect, p geom.Point) bool {
	if display.Empty() {
		return false
	}
	r := st.ROI.In(display)
	q := geom.RotateAbout(-st.ROIRotation.Degrees(), r.Center()).Apply(p)
	return r.Contains(q)
}

// Drag moves the ROI with the pointer.
type Drag struct {
	start   geom.Point
	origin  canvas.NormalizedRect
	display geom.Rect
	active  bool
}

// Begin starts a drag if p hits the ROI.
func (d *Drag) Begin(st canvas.State, display geom.Rect, p geom.Point) bool {
	if !st.ROIEnabled || !HitROI(st, display, p) {
		return false
	}
	d.start = p
	d.origin = st.ROI
	d.display = display
	d.active = true
	return true
}

// Move returns the new, clamped top-left corner of the ROI for pointer
// position p.
func (d *Drag) Move(p geom.Point) (x, y float64, ok bool) {
	if !d.active || d.display.Empty() {
		return 0, 0, false
	}
	r := d.origin
	r.X += (p.X - d.start.X) / d.display.W
	r.Y += (p.Y - d.start.Y) / d.display.H
	r = r.Clamp()
	return r.X, r.Y, true
}

// End stops the drag.
func (d *Drag) End() { d.active = false }

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool { return d.active }
