package compose

import (
	"errors"
	"image"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/roi"
)

// ErrNoSource is returned when there is no decoded image to compose.
var ErrNoSource = errors.New("compose: no source image")

// CropFor returns the crop of the projector composite, or nil when the ROI
// is disabled. The crop only depends on the display shape, so the rotated
// source bounds stand in for the preview surface.
func CropFor(st canvas.State, bounds image.Rectangle) (*roi.Crop, error) {
	if !st.ROIEnabled {
		return nil, nil
	}
	w, h := st.Rotation.Size(bounds.Dx(), bounds.Dy())
	c, err := roi.Compute(st, geom.R(0, 0, float64(w), float64(h)), bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Render composes the projector raster of src for st without any surface.
func Render(src image.Image, st canvas.State) (Result, error) {
	if src == nil || src.Bounds().Empty() {
		return Result{}, ErrNoSource
	}
	crop, err := CropFor(st, src.Bounds())
	if err != nil {
		return Result{}, err
	}
	return Projector(src, st, crop), nil
}

// ProjectorKey is the cache key of the projector composite of st.
func ProjectorKey(imageID string, st canvas.State, crop *roi.Crop) Key {
	k := Key{Image: imageID, Kind: KindProjector, Revision: st.Revision, Rotation: st.Rotation}
	if crop != nil {
		k.Crop = crop.Rect
		k.Rotation = crop.Residual
	}
	return k
}

// PreviewKey is the cache key of the preview composite of st. It depends on
// the fields Preview reads and nothing else.
func PreviewKey(imageID string, st canvas.State) Key {
	return Key{
		Image:        imageID,
		Kind:         KindPreview,
		Rotation:     st.Rotation,
		Brightness:   st.Brightness,
		AutoContrast: st.AutoContrast,
	}
}
