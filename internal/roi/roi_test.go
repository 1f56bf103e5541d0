package roi

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
)

func state(rot, roiRot geom.Rotation, r canvas.NormalizedRect) canvas.State {
	st := canvas.DefaultState()
	st.Rotation = rot
	st.ROIRotation = roiRot
	st.ROI = r
	st.ROIEnabled = true
	return st
}

var centre = canvas.NormalizedRect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

func TestComputeUnrotated(t *testing.T) {
	crop, err := Compute(state(geom.Rot0, geom.Rot0, centre), geom.R(0, 0, 1000, 500), 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(250, 125, 750, 375), crop.Rect)
	assert.Equal(t, geom.Rot0, crop.Residual)
}

func TestComputeScaledDisplay(t *testing.T) {
	// Same image shown at half size, offset inside the preview.
	crop, err := Compute(state(geom.Rot0, geom.Rot0, centre), geom.R(40, 30, 500, 250), 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(250, 125, 750, 375), crop.Rect)
}

func TestComputeImageRotated(t *testing.T) {
	crop, err := Compute(state(geom.Rot90, geom.Rot0, centre), geom.R(0, 0, 500, 1000), 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(250, 125, 750, 375), crop.Rect)
	assert.Equal(t, geom.Rot90, crop.Residual)
}

func TestComputeImageRotatedCorner(t *testing.T) {
	// The top-left quarter of the clockwise-turned display is the
	// bottom-left quarter of the source.
	r := canvas.NormalizedRect{X: 0, Y: 0, W: 0.5, H: 0.5}
	crop, err := Compute(state(geom.Rot90, geom.Rot0, r), geom.R(0, 0, 500, 1000), 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 250, 500, 500), crop.Rect)
}

func TestComputeROIRotated(t *testing.T) {
	crop, err := Compute(state(geom.Rot0, geom.Rot90, centre), geom.R(0, 0, 1000, 500), 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(375, 0, 625, 500), crop.Rect)
	assert.Equal(t, geom.Rot270, crop.Residual)
}

func TestComputeClampsToSource(t *testing.T) {
	full := canvas.NormalizedRect{X: 0, Y: 0, W: 1, H: 1}
	crop, err := Compute(state(geom.Rot0, geom.Rot90, full), geom.R(0, 0, 1000, 500), 1000, 500)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(250, 0, 750, 500), crop.Rect)
}

func TestComputeTinyROIKeepsOnePixel(t *testing.T) {
	tiny := canvas.NormalizedRect{X: 0.5, Y: 0.5, W: 0, H: 0}
	crop, err := Compute(state(geom.Rot0, geom.Rot0, tiny), geom.R(0, 0, 10, 10), 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, crop.Rect.Dx())
	assert.Equal(t, 1, crop.Rect.Dy())
	assert.True(t, crop.Rect.In(image.Rect(0, 0, 10, 10)))
}

func TestComputeUnavailable(t *testing.T) {
	_, err := Compute(state(geom.Rot0, geom.Rot0, centre), geom.R(0, 0, 0, 0), 1000, 500)
	assert.ErrorIs(t, err, ErrCropUnavailable)
	_, err = Compute(state(geom.Rot0, geom.Rot0, centre), geom.R(0, 0, 100, 100), 0, 500)
	assert.ErrorIs(t, err, ErrCropUnavailable)
}

func TestResidual(t *testing.T) {
	cases := []struct {
		img, roi, want geom.Rotation
	}{
		{geom.Rot0, geom.Rot0, geom.Rot0},
		{geom.Rot0, geom.Rot90, geom.Rot270},
		{geom.Rot90, geom.Rot0, geom.Rot90},
		{geom.Rot90, geom.Rot90, geom.Rot0},
		{geom.Rot180, geom.Rot0, geom.Rot180},
		{geom.Rot180, geom.Rot90, geom.Rot90},
		{geom.Rot270, geom.Rot0, geom.Rot270},
		{geom.Rot270, geom.Rot90, geom.Rot180},
	}
	require.Len(t, cases, 8)
	for _, c := range cases {
		w, h := c.img.Size(400, 400)
		crop, err := Compute(state(c.img, c.roi, centre), geom.R(0, 0, float64(w), float64(h)), 400, 400)
		require.NoError(t, err)
		assert.Equal(t, c.want, crop.Residual, "image %d roi %d", c.img, c.roi)
	}
}

func TestPolygonRotatesAboutCentre(t *testing.T) {
	st := state(geom.Rot0, geom.Rot90, canvas.NormalizedRect{X: 0, Y: 0, W: 0.5, H: 0.5})
	poly := Polygon(st, geom.R(0, 0, 200, 100))
	// 100x50 box centred at (50,25) turned a quarter: 50x100 around the same centre.
	b := geom.Bounds(poly[:]...)
	assert.InDelta(t, 25, b.X, 1e-9)
	assert.InDelta(t, -25, b.Y, 1e-9)
	assert.InDelta(t, 50, b.W, 1e-9)
	assert.InDelta(t, 100, b.H, 1e-9)
}
