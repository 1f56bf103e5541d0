// Package roi converts the region of interest drawn on the preview into a
// pixel crop of the unrotated source image.
package roi

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
)

// ErrCropUnavailable is returned when no crop can be derived, for example
// because the preview transform is degenerate.
var ErrCropUnavailable = errors.New("roi: crop unavailable")

// edgeEps absorbs floating point noise before edges snap outward.
const edgeEps = 1e-6

// Crop is the result of Compute.
type Crop struct {
	// Rect is the crop in source pixels, inside the source bounds and at
	// least 1x1.
	Rect image.Rectangle
	// Residual is the rotation still to apply after cropping.
	Residual geom.Rotation
}

// Polygon returns the ROI corners on the preview surface: the ROI mapped into
// display and rotated about its own centre by the ROI rotation.
func Polygon(st canvas.State, display geom.Rect) [4]geom.Point {
	r := st.ROI.In(display)
	rot := geom.RotateAbout(st.ROIRotation.Degrees(), r.Center())
	corners := r.Corners()
	for i, c := range corners {
		corners[i] = rot.Apply(c)
	}
	return corners
}

// Compute derives the crop for st. display is the rectangle the rotated
// image occupies on the preview surface and srcW x srcH the source size.
func Compute(st canvas.State, display geom.Rect, srcW, srcH int) (Crop, error) {
	if srcW <= 0 || srcH <= 0 || display.Empty() {
		return Crop{}, fmt.Errorf("%w: empty source or display", ErrCropUnavailable)
	}
	fwd := geom.ImageTransform(display, st.Rotation, float64(srcW), float64(srcH))
	inv, err := fwd.Invert()
	if err != nil {
		return Crop{}, fmt.Errorf("%w: %w", ErrCropUnavailable, err)
	}
	poly := Polygon(st, display)
	pts := inv.ApplyAll(poly[:])
	for _, p := range pts {
		if !p.Finite() {
			return Crop{}, fmt.Errorf("%w: non-finite corner", ErrCropUnavailable)
		}
	}
	box := geom.Bounds(pts...)
	return Crop{
		Rect:     clampRect(box, srcW, srcH),
		Residual: st.Rotation.Sub(st.ROIRotation),
	}, nil
}

// clampRect snaps box outward to whole pixels and clips it to the source.
// A crop that ends up empty becomes the nearest 1x1 pixel.
func clampRect(box geom.Rect, w, h int) image.Rectangle {
	x0 := int(math.Floor(box.X + edgeEps))
	y0 := int(math.Floor(box.Y + edgeEps))
	x1 := int(math.Ceil(box.MaxX() - edgeEps))
	y1 := int(math.Ceil(box.MaxY() - edgeEps))

	x0 = min(max(x0, 0), w-1)
	y0 = min(max(y0, 0), h-1)
	x1 = min(max(x1, x0+1), w)
	y1 = min(max(y1, y0+1), h)
	return image.Rect(x0, y0, x1, y1)
}
