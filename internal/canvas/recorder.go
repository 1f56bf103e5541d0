package canvas

import (
	"math"

	"github.com/example/beamdeck/internal/geom"
)

// Recorder turns a pointer drag on the preview surface into a stroke.
// Surface positions are mapped to normalized image coordinates with the
// inverse of the preview's image transform.
type Recorder struct {
	store   *Store
	toImage geom.Matrix
	points  []geom.Point
	active  bool
}

// NewRecorder creates a recorder appending finished strokes to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Begin starts a path at surface position p. toNormalized maps surface
// coordinates to normalized image coordinates.
func (r *Recorder) Begin(p geom.Point, toNormalized geom.Matrix) {
	r.toImage = toNormalized
	r.points = r.points[:0]
	r.active = true
	r.add(p)
}

// Extend appends surface position p to the path in progress.
func (r *Recorder) Extend(p geom.Point) {
	if !r.active {
		return
	}
	r.add(p)
}

// End finishes the path and hands it to the store. It reports whether a
// stroke was added.
func (r *Recorder) End() bool {
	if !r.active {
		return false
	}
	r.active = false
	pts := r.points
	r.points = nil
	return r.store.AddStroke(pts)
}

// Cancel drops the path in progress.
func (r *Recorder) Cancel() {
	r.active = false
	r.points = nil
}

// Active reports whether a path is being recorded.
func (r *Recorder) Active() bool { return r.active }

// Points returns the normalized points recorded so far.
func (r *Recorder) Points() []geom.Point {
	out := make([]geom.Point, len(r.points))
	copy(out, r.points)
	return out
}

func (r *Recorder) add(p geom.Point) {
	n := r.toImage.Apply(p)
	if !n.Finite() {
		return
	}
	n.X = math.Max(0, math.Min(1, n.X))
	n.Y = math.Max(0, math.Min(1, n.Y))
	if k := len(r.points); k > 0 && r.points[k-1] == n {
		return
	}
	r.points = append(r.points, n)
}
